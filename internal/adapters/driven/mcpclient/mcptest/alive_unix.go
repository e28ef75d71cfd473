//go:build unix

package mcptest

import (
	"errors"
	"syscall"
)

// processAlive uses signal 0, which fails with ESRCH once the process has
// been reaped.
func processAlive(pid int) bool {
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}
