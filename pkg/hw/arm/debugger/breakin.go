package debugger

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"
)

// activeSession is the process-wide rendezvous point interrupt delivery
// uses to find the debugger. At most one session is attached at a time.
var activeSession atomic.Pointer[Session]

// ActiveSession returns the attached session, or nil
func ActiveSession() *Session {
	return activeSession.Load()
}

// Attach publishes s as the process interrupt target and forwards the
// operator interrupt signal to it while attached. The returned function
// detaches, stops forwarding, and is safe to call more than once.
func Attach(s *Session) func() {
	activeSession.Store(s)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-done:
				return
			case <-sigChan:
				// only flag the transition; the session loop observes it
				if target := activeSession.Load(); target != nil {
					target.Interrupt()
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(sigChan)
			close(done)
			// only clear the slot if it is still ours; a later Attach
			// may have replaced us already
			activeSession.CompareAndSwap(s, nil)
		})
	}
}

// breakIntoMu serialises install/raise/restore so a nested break-into
// cannot corrupt the temporary trap routing
var breakIntoMu sync.Mutex

// trapGuardTimeout bounds the wait for the trap to loop back locally
const trapGuardTimeout = 100 * time.Millisecond

// breakInto raises a debug trap directed at this process, the hook an
// externally attached debugger (ptrace) catches. While raised, trap
// delivery is routed to a temporary channel: if the notification loops
// back to us, nothing outside intercepted it and a notice is printed
// instead of the process dying to an unhandled trap.
func breakInto(out io.Writer) {
	breakIntoMu.Lock()
	defer breakIntoMu.Unlock()

	trapChan := make(chan os.Signal, 1)
	notifyTrap(trapChan)
	defer signal.Stop(trapChan)

	if err := raiseTrap(); err != nil {
		fmt.Fprintln(out, "No debugger attached!")
		return
	}

	select {
	case <-trapChan:
		fmt.Fprintln(out, "No debugger attached!")
	case <-time.After(trapGuardTimeout):
		// something outside the process consumed the trap
	}
}
