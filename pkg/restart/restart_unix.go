//go:build !windows

package restart

import (
	"os"
	"syscall"
)

// doExec replaces the current process image with a fresh copy of
// itself, preserving argv and environment. On success this never
// returns; the caller only sees an error if the exec call itself failed.
func doExec() error {
	path, err := os.Executable()
	if err != nil {
		return err
	}
	return syscall.Exec(path, os.Args, os.Environ())
}
