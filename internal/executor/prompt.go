package executor

import (
	"strings"
	"text/template"

	"github.com/phase-golem/golem/internal/backlog"
)

// promptTemplate renders the phase prompt from the item, phase name, and
// any accumulated retry failure context. Deliberately a pure function of
// its inputs: the exact wording isn't load-bearing, only that it
// deterministically folds in failure context across retries.
var promptTemplate = template.Must(template.New("phase-prompt").Parse(
	`# Item {{.Item.ID}}: {{.Item.Title}}

Phase: {{.PhaseName}}
Pipeline: {{.Item.PipelineType}}
Status: {{.Item.Status}}

{{- if .Item.Description}}

## Context
{{.Item.Description.Context}}

## Problem
{{.Item.Description.Problem}}

## Solution
{{.Item.Description.Solution}}

## Impact
{{.Item.Description.Impact}}

## Sizing rationale
{{.Item.Description.SizingRationale}}
{{- end}}

{{- if .PreviousSummary}}

## Previous phase summary
{{.PreviousSummary}}
{{- end}}

{{- if .FailureContext}}

## Prior attempts on this phase failed. Accumulated failure context:
{{range .FailureContext}}
- {{.}}
{{- end}}
{{- end}}

Write your result to the file named by the PHASE_GOLEM_RESULT_PATH
environment variable as a single JSON document with fields: item_id,
phase, result (phase_complete|subphase_complete|blocked), summary, and
optionally context, updated_assessments, follow_ups.
`))

// promptData is the template's input.
type promptData struct {
	Item            backlog.Item
	PhaseName       string
	PreviousSummary string
	FailureContext  []string
}

// BuildPrompt renders the deterministic phase prompt: item + phase +
// previous-phase summary + accumulated failure_context.
func BuildPrompt(it backlog.Item, phaseName, previousSummary string, failureContext []string) (string, error) {
	var sb strings.Builder
	data := promptData{Item: it, PhaseName: phaseName, PreviousSummary: previousSummary, FailureContext: failureContext}
	if err := promptTemplate.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}
