//go:build !windows
// +build !windows

package debugger

import (
	"os"
	"os/signal"
	"syscall"
)

// notifyTrap routes SIGTRAP to ch while installed
func notifyTrap(ch chan<- os.Signal) {
	signal.Notify(ch, syscall.SIGTRAP)
}

// raiseTrap sends SIGTRAP to this process
func raiseTrap() error {
	return syscall.Kill(syscall.Getpid(), syscall.SIGTRAP)
}
