// Package debugger implements the interactive command-line debugger.
//
// # Overview
//
// A [Session] wires a processor core to a line source and drives the
// read-parse-dispatch loop. Command arguments form a tiny expression
// language: each space-separated field is lexed, parsed and evaluated to an
// unsigned 32-bit value before the command handler runs. Operators fold
// strictly left to right in one precedence class, so 2+3*4 is 20.
//
// # Lifecycle
//
// A session starts paused. Commands either act immediately (inspection,
// breakpoints), hand control to the core (continue), or end the session
// (quit, closed input). A running core re-enters the pause loop when it
// hits a breakpoint, a watchpoint, an illegal instruction, or an interrupt
// request from the operator.
//
// # Break-in
//
// SIGINT reaches a running session through [Attach], which publishes the
// session as the process-wide interrupt target. The x command raises a
// directed SIGTRAP at the process itself so an outside debugger can take
// over; when nothing does, the session prints a notice and carries on.
package debugger

import (
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/armadillo-emu/armadillo/pkg/hw/arm"
)

// Prompt is printed before every command read
const Prompt = "(armadillo) "

// Line source errors
var (
	// ErrInterrupted reports that an interrupt arrived instead of a line
	ErrInterrupted = errors.New("interrupted")
)

// LineSource supplies operator input. Implementations wrap a line editor,
// a plain reader, or a scripted test feed.
type LineSource interface {
	// ReadLine blocks until one line is available. It returns io.EOF
	// when the source closes, or ErrInterrupted when a break-in arrives
	// instead of input.
	ReadLine(prompt string) (string, error)

	// AppendHistory records a successfully dispatched line for recall
	AppendHistory(line string)
}

// State is the session lifecycle state
type State int

const (
	// StatePaused accepts commands at the prompt
	StatePaused State = iota
	// StateRunning has handed control to the simulated processor
	StateRunning
	// StateShutdown is the terminal state after a quit command
	StateShutdown
	// StateExiting is the terminal state after the input source closed
	StateExiting
)

// String returns a lifecycle state name
func (s State) String() string {
	switch s {
	case StatePaused:
		return "paused"
	case StateRunning:
		return "running"
	case StateShutdown:
		return "shutdown"
	case StateExiting:
		return "exiting"
	default:
		return "unknown"
	}
}

// EntryReason says why the session entered the paused state
type EntryReason int

const (
	// EntryManual is an operator break-in; reported silently
	EntryManual EntryReason = iota
	// EntryAttached is the initial attach; reported silently
	EntryAttached
	// EntryBreakpoint is a breakpoint hit
	EntryBreakpoint
	// EntryWatchpoint is a watchpoint hit
	EntryWatchpoint
	// EntryIllegal is an undefined instruction trap
	EntryIllegal
)

// String returns an entry reason name
func (r EntryReason) String() string {
	switch r {
	case EntryManual:
		return "manual"
	case EntryAttached:
		return "attached"
	case EntryBreakpoint:
		return "breakpoint"
	case EntryWatchpoint:
		return "watchpoint"
	case EntryIllegal:
		return "illegal opcode"
	default:
		return "unknown"
	}
}

// Config assembles a session
type Config struct {
	// Core is the processor under debug
	Core *arm.Core

	// Source supplies operator input
	Source LineSource

	// Output receives all user-facing text. Defaults to stdout.
	Output io.Writer

	// Logger receives debug-level session traces. Defaults to discard.
	Logger *slog.Logger

	// Style selects plain or colored rendering
	Style Style
}

// New creates a paused session attached to the configured core
func New(cfg Config) *Session {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Session{
		core:   cfg.Core,
		source: cfg.Source,
		out:    out,
		log:    log,
		style:  cfg.Style,
		state:  StatePaused,
	}
}
