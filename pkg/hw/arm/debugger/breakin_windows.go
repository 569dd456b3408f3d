//go:build windows
// +build windows

package debugger

import (
	"errors"
	"os"
)

// notifyTrap is a no-op: Windows delivers no trap signal
func notifyTrap(ch chan<- os.Signal) {}

// raiseTrap reports that directed debug traps are unsupported here
func raiseTrap() error {
	return errors.New("debug traps are not supported on this platform")
}
