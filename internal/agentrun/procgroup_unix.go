//go:build !windows

package agentrun

import (
	"os/exec"
	"syscall"
)

// setProcGroup configures cmd to start in a new process group so its
// descendants can be signaled together.
func setProcGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// signalGroup sends sig to every process in the group led by pid.
func signalGroup(pid int, sig Signal) error {
	return syscall.Kill(-pid, syscall.Signal(sig))
}

const (
	sigTerm Signal = Signal(syscall.SIGTERM)
	sigKill Signal = Signal(syscall.SIGKILL)
)
