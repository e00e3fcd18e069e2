package shellsession

import (
	"cmp"
	"os"
	"os/exec"
)

func shellCommand() (string, []string) {
	comspec := cmp.Or(os.Getenv("ComSpec"), "cmd.exe")
	return comspec, nil
}

func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = nil
}

// terminate has no graceful-signal equivalent to SIGTERM on Windows, so
// it goes straight to Kill; forceKill is the same operation.
func terminate(proc *os.Process) error {
	return proc.Kill()
}

func forceKill(proc *os.Process) error {
	return proc.Kill()
}
