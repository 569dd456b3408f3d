package debugger

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/armadillo-emu/armadillo/pkg/hw/arm"
)

// Session is one attached debugger instance. All methods except Interrupt
// must be called from the goroutine driving Run.
type Session struct {
	core   *arm.Core
	source LineSource
	out    io.Writer
	log    *slog.Logger
	style  Style

	state    State
	lastLine string
}

// State returns the current lifecycle state
func (s *Session) State() State {
	return s.state
}

// Core returns the processor under debug
func (s *Session) Core() *arm.Core {
	return s.core
}

// Interrupt requests a manual pause. It only raises the core's interrupt
// flag, so it is safe to call from signal-handling goroutines at any time.
func (s *Session) Interrupt() {
	s.core.Interrupt()
}

// Run drives the session until a quit command or input-source closure.
func (s *Session) Run() error {
	s.enter(EntryAttached)
	for {
		switch s.state {
		case StatePaused:
			s.commandLoop()
		case StateRunning:
			s.resume()
		default:
			s.log.Debug("session finished", "state", s.state)
			return nil
		}
	}
}

// enter transitions into the paused state and reports why. Manual and
// attach entries stay silent.
func (s *Session) enter(reason EntryReason) {
	s.state = StatePaused
	s.log.Debug("debugger entered", "reason", reason)
	switch reason {
	case EntryBreakpoint:
		fmt.Fprintln(s.out, "Hit breakpoint")
	case EntryWatchpoint:
		fmt.Fprintln(s.out, "Hit watchpoint")
	case EntryIllegal:
		fmt.Fprintln(s.out, "Hit illegal opcode")
	}
}

// commandLoop renders status once, then reads and dispatches lines until
// the state moves away from paused.
func (s *Session) commandLoop() {
	s.renderStatus()
	for s.state == StatePaused {
		line, err := s.source.ReadLine(Prompt)
		switch {
		case errors.Is(err, ErrInterrupted):
			// a break-in at the prompt just returns to the prompt
			continue
		case err != nil:
			s.log.Debug("input source closed", "err", err)
			s.state = StateExiting
			return
		}
		s.handleLine(line)
	}
}

// handleLine dispatches one typed line. An empty line replays the most
// recent successful one; replays are not re-recorded.
func (s *Session) handleLine(line string) {
	if line == "" {
		if s.lastLine != "" {
			s.execute(s.lastLine)
		}
		return
	}
	if s.execute(line) {
		s.lastLine = line
		s.source.AppendHistory(line)
	}
}

// resume hands control to the core and maps its stop reason back to a
// pause entry.
func (s *Session) resume() {
	// drop any interrupt request that accumulated while paused
	s.core.InterruptRequested()

	info := s.core.Run()
	s.log.Debug("core stopped",
		"reason", info.Reason, "addr", fmt.Sprintf("0x%08X", info.Addr), "steps", info.Steps)

	switch info.Reason {
	case arm.StopBreakpoint:
		s.enter(EntryBreakpoint)
	case arm.StopWatchpoint:
		s.enter(EntryWatchpoint)
	case arm.StopIllegal:
		s.enter(EntryIllegal)
	case arm.StopHalt:
		fmt.Fprintln(s.out, "Program halted")
		s.enter(EntryManual)
	default:
		s.enter(EntryManual)
	}
}
