// Command golem runs the Phase Golem orchestrator: it walks a backlog
// of work items through configured phases by spawning an external CLI
// agent per phase and recording progress in a version-controlled file
// store.
package main

func main() {
	Execute()
}
