//go:build windows

package agentrun

import "os/exec"

// setProcGroup is a no-op on Windows: process groups in the POSIX sense
// do not exist, so termination falls back to killing the direct child
// only.
func setProcGroup(cmd *exec.Cmd) {}

// signalGroup is unsupported on Windows; callers fall back to
// Process.Kill on the direct child.
func signalGroup(pid int, sig Signal) error { return errUnsupportedSignal }

const (
	sigTerm Signal = 15
	sigKill Signal = 9
)
