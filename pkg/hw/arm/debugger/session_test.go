package debugger

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armadillo-emu/armadillo/pkg/hw/arm"
)

// scriptedSource feeds a fixed sequence of read results and records what
// the session asks to keep in history. After the sequence it reports EOF.
type scriptedSource struct {
	reads   []scriptedRead
	history []string
}

type scriptedRead struct {
	line string
	err  error
}

func sourceOf(lines ...string) *scriptedSource {
	source := &scriptedSource{}
	for _, line := range lines {
		source.reads = append(source.reads, scriptedRead{line: line})
	}
	return source
}

func (s *scriptedSource) ReadLine(string) (string, error) {
	if len(s.reads) == 0 {
		return "", io.EOF
	}
	read := s.reads[0]
	s.reads = s.reads[1:]
	return read.line, read.err
}

func (s *scriptedSource) AppendHistory(line string) {
	s.history = append(s.history, line)
}

// newSessionCore builds a core with the given words placed from address 0
// and the entry point set there
func newSessionCore(t *testing.T, words ...uint32) *arm.Core {
	t.Helper()
	core := arm.NewCore(0x1000)
	for i, word := range words {
		require.NoError(t, core.Memory().StoreWord(uint32(i*4), word))
	}
	core.SetEntry(0, false)
	return core
}

func runSession(t *testing.T, core *arm.Core, source *scriptedSource) (*Session, string) {
	t.Helper()
	var out bytes.Buffer
	session := New(Config{Core: core, Source: source, Output: &out})
	require.NoError(t, session.Run())
	return session, out.String()
}

func TestSessionQuit(t *testing.T) {
	core := newSessionCore(t, 0xE3A00001) // mov r0, #1
	source := sourceOf("quit")

	session, out := runSession(t, core, source)

	assert.Equal(t, StateShutdown, session.State())
	assert.Equal(t, []string{"quit"}, source.history)
	assert.Contains(t, out, "cpsr: 00000000 [-------]\n")
}

func TestSessionSourceClosed(t *testing.T) {
	core := newSessionCore(t, 0xE3A00001)

	session, _ := runSession(t, core, sourceOf())

	assert.Equal(t, StateExiting, session.State())
}

func TestSessionStatusRender(t *testing.T) {
	core := newSessionCore(t, 0xE3A00001) // mov r0, #1
	core.SetReg(0, 0x11111111)
	core.SetReg(5, 0xDEADBEEF)

	_, out := runSession(t, core, sourceOf("quit"))

	assert.Contains(t, out, "11111111 00000000 00000000 00000000\n")
	assert.Contains(t, out, "00000000 DEADBEEF 00000000 00000000\n")
	assert.Contains(t, out, "00000000 00000000 00000000 00000004\n")
	assert.Contains(t, out, "cpsr: 00000000 [-------]\n")
	assert.Contains(t, out, "00000000:  E3A00001\tmov r0, #1\n")
}

func TestSessionStatusOncePerPause(t *testing.T) {
	core := newSessionCore(t, 0xE3A00001)

	_, out := runSession(t, core, sourceOf("break 4", "print 1", "list", "help", "quit"))

	assert.Equal(t, 1, strings.Count(out, "cpsr:"))
}

func TestSessionPrint(t *testing.T) {
	core := newSessionCore(t, 0xE3A00001)

	_, out := runSession(t, core, sourceOf("print 1 2+3*4 0x10", "quit"))

	assert.Contains(t, out, " 1 20 16\n")
}

func TestSessionPrintHex(t *testing.T) {
	core := newSessionCore(t, 0xE3A00001)

	_, out := runSession(t, core, sourceOf("p/x 1 16", "quit"))

	assert.Contains(t, out, " 0x00000001 0x00000010\n")
}

func TestSessionUnknownCommand(t *testing.T) {
	core := newSessionCore(t, 0xE3A00001)
	source := sourceOf("frobnicate", "quit")

	session, out := runSession(t, core, source)

	assert.Equal(t, 1, strings.Count(out, "Command not found"))
	assert.Equal(t, []string{"quit"}, source.history)
	assert.Equal(t, StateShutdown, session.State())
}

func TestSessionParseError(t *testing.T) {
	core := newSessionCore(t, 0xE3A00001)
	source := sourceOf("break 1/0", "break 0x", "quit")

	session, out := runSession(t, core, source)

	assert.Equal(t, 2, strings.Count(out, "Parse error"))
	assert.Empty(t, core.Breakpoints())
	// rejected lines stay out of history
	assert.Equal(t, []string{"quit"}, source.history)
	assert.Equal(t, StateShutdown, session.State())
}

func TestSessionArgumentsMissing(t *testing.T) {
	core := newSessionCore(t, 0xE3A00001)
	source := sourceOf("rb", "quit")

	_, out := runSession(t, core, source)

	assert.Contains(t, out, "Arguments missing")
	// the line reached its handler, so it is recorded
	assert.Equal(t, []string{"rb", "quit"}, source.history)
}

func TestSessionAliasesShareHandlers(t *testing.T) {
	core := newSessionCore(t, 0xE3A00001)

	runSession(t, core, sourceOf("b 0x100", "break 0x100", "B 0x100", "quit"))

	bps := core.Breakpoints()
	require.Len(t, bps, 1)
	assert.Equal(t, uint32(0x100), bps[0].Addr)
}

func TestSessionMemoryCommands(t *testing.T) {
	core := newSessionCore(t, 0xE3A00001)

	_, out := runSession(t, core, sourceOf(
		"ww 0x200 0xCAFEBABE",
		"rw 0x200",
		"rh 0x200",
		"rb 0x203",
		"wb 0x300 0xAB",
		"rb 0x300",
		"quit",
	))

	assert.Contains(t, out, " 0xCAFEBABE\n")
	assert.Contains(t, out, " 0xBABE\n")
	assert.Contains(t, out, " 0xCA\n")
	assert.Contains(t, out, " 0xAB\n")
}

func TestSessionReadOutOfRange(t *testing.T) {
	core := newSessionCore(t, 0xE3A00001)

	_, out := runSession(t, core, sourceOf("rw 0x100000", "quit"))

	assert.Contains(t, out, "address out of memory range")
}

func TestSessionEmptyLineReplaysLast(t *testing.T) {
	// mov r0,#1 / mov r1,#2 / mov r2,#3
	core := newSessionCore(t, 0xE3A00001, 0xE3A01002, 0xE3A02003)
	source := sourceOf("next", "", "quit")

	runSession(t, core, source)

	assert.Equal(t, uint32(1), core.Reg(0))
	assert.Equal(t, uint32(2), core.Reg(1))
	assert.Equal(t, uint32(0), core.Reg(2))
	// the replay is not re-recorded
	assert.Equal(t, []string{"next", "quit"}, source.history)
}

func TestSessionEmptyLineWithoutHistory(t *testing.T) {
	core := newSessionCore(t, 0xE3A00001)
	source := sourceOf("", "quit")

	session, out := runSession(t, core, source)

	assert.Equal(t, StateShutdown, session.State())
	assert.NotContains(t, out, "Command not found")
	assert.Equal(t, []string{"quit"}, source.history)
	assert.Equal(t, uint32(0), core.Reg(0))
}

func TestSessionInterruptAtPrompt(t *testing.T) {
	core := newSessionCore(t, 0xE3A00001)
	source := &scriptedSource{reads: []scriptedRead{
		{err: ErrInterrupted},
		{line: "quit"},
	}}

	session, out := runSession(t, core, source)

	assert.Equal(t, StateShutdown, session.State())
	// the aborted read returns to the prompt without a second status render
	assert.Equal(t, 1, strings.Count(out, "cpsr:"))
}

func TestSessionInterruptRaisesCoreFlag(t *testing.T) {
	core := newSessionCore(t, 0xE3A00001)
	session := New(Config{Core: core, Source: sourceOf(), Output: io.Discard})

	session.Interrupt()

	assert.True(t, core.InterruptRequested())
}

func TestSessionContinueToBreakpoint(t *testing.T) {
	// mov r0,#1 / mov r1,#2 / mov r2,#3
	core := newSessionCore(t, 0xE3A00001, 0xE3A01002, 0xE3A02003)
	source := sourceOf("break 8", "continue", "quit")

	session, out := runSession(t, core, source)

	assert.Contains(t, out, "Hit breakpoint")
	assert.Equal(t, uint32(1), core.Reg(0))
	assert.Equal(t, uint32(2), core.Reg(1))
	// stopped before the instruction at the breakpoint executed
	assert.Equal(t, uint32(0), core.Reg(2))
	assert.Equal(t, uint32(12), core.Reg(15))
	// re-entering the pause renders status again
	assert.Equal(t, 2, strings.Count(out, "cpsr:"))
	assert.Equal(t, StateShutdown, session.State())
}

func TestSessionContinuePastBreakpoint(t *testing.T) {
	core := newSessionCore(t, 0xE3A00001, 0xE3A01002, 0xE3A02003)
	core.AddTerminationAddress(12)
	source := sourceOf("break 8", "continue", "continue", "quit")

	_, out := runSession(t, core, source)

	assert.Contains(t, out, "Hit breakpoint")
	assert.Contains(t, out, "Program halted")
	assert.Equal(t, uint32(3), core.Reg(2))
}

func TestSessionContinueToWatchpoint(t *testing.T) {
	// mov r1,#0x100 / mov r0,#7 / str r0,[r1] / mov r2,#1
	core := newSessionCore(t, 0xE3A01C01, 0xE3A00007, 0xE5810000, 0xE3A02001)
	source := sourceOf("watch 0x100", "continue", "quit")

	_, out := runSession(t, core, source)

	assert.Contains(t, out, "Hit watchpoint")
	// the store completes before the stop is reported
	value, err := core.Memory().LoadWord(0x100)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), value)
	// the instruction after the store did not run
	assert.Equal(t, uint32(0), core.Reg(2))
}

func TestSessionWriteDoesNotTriggerWatchpoint(t *testing.T) {
	core := newSessionCore(t, 0xE3A00001)
	source := sourceOf("watch 0x100", "ww 0x100 5", "rw 0x100", "quit")

	session, out := runSession(t, core, source)

	assert.NotContains(t, out, "Hit watchpoint")
	assert.Contains(t, out, " 0x00000005\n")
	assert.Equal(t, StateShutdown, session.State())
}

func TestSessionContinueToIllegal(t *testing.T) {
	core := newSessionCore(t, 0xE3A00001, 0xF0000000)
	source := sourceOf("continue", "quit")

	_, out := runSession(t, core, source)

	assert.Contains(t, out, "Hit illegal opcode")
	// the processor holds at the faulting instruction
	assert.Equal(t, uint32(8), core.Reg(15))
}

func TestSessionNextAtIllegalHolds(t *testing.T) {
	core := newSessionCore(t, 0xF0000000)

	_, out := runSession(t, core, sourceOf("next", "next", "quit"))

	assert.Equal(t, 2, strings.Count(out, "Hit illegal opcode"))
	assert.Equal(t, uint32(4), core.Reg(15))
}

func TestSessionRunToHalt(t *testing.T) {
	core := newSessionCore(t, 0xE3A00001, 0xE3A01002)
	core.AddTerminationAddress(8)
	source := sourceOf("continue", "quit")

	session, out := runSession(t, core, source)

	assert.Contains(t, out, "Program halted")
	assert.Equal(t, uint32(1), core.Reg(0))
	assert.Equal(t, uint32(2), core.Reg(1))
	assert.Equal(t, StateShutdown, session.State())
}

func TestSessionStaleInterruptDropped(t *testing.T) {
	core := newSessionCore(t, 0xE3A00001, 0xE3A01002)
	core.AddTerminationAddress(8)
	core.Interrupt() // raised while still paused

	_, out := runSession(t, core, sourceOf("continue", "quit"))

	// the stale request does not stop the resumed run
	assert.Contains(t, out, "Program halted")
	assert.Equal(t, uint32(2), core.Reg(1))
}

func TestSessionDisassemble(t *testing.T) {
	core := newSessionCore(t, 0xE3A00001, 0xE3A01002)

	_, out := runSession(t, core, sourceOf("disassemble 0 2", "quit"))

	assert.Contains(t, out, "00000000:  E3A00001\tmov r0, #1\n")
	assert.Contains(t, out, "00000004:  E3A01002\tmov r1, #2\n")
}

func TestSessionDisassembleDefaultsToCurrent(t *testing.T) {
	core := newSessionCore(t, 0xE3A00001, 0xE3A01002)

	// the status render after next already shows the instruction at 4,
	// dis prints it a second time
	_, out := runSession(t, core, sourceOf("next", "dis", "quit"))

	assert.Equal(t, 2, strings.Count(out, "00000004:  E3A01002\tmov r1, #2\n"))
}

func TestSessionDisassembleOutOfRange(t *testing.T) {
	core := newSessionCore(t, 0xE3A00001)

	_, out := runSession(t, core, sourceOf("dis 0x100000", "quit"))

	assert.Contains(t, out, "00100000:  out of range\n")
}

func TestSessionThumbStatus(t *testing.T) {
	core := arm.NewCore(0x1000)
	require.NoError(t, core.Memory().StoreHalf(0, 0x2001)) // mov r0, #1
	core.SetEntry(0, true)

	_, out := runSession(t, core, sourceOf("quit"))

	assert.Contains(t, out, "cpsr: 00000020 [------T]\n")
	assert.Contains(t, out, "00000000:  2001\tmov r0, #1\n")
}

func TestSessionListAndDelete(t *testing.T) {
	core := newSessionCore(t, 0xE3A00001)

	_, out := runSession(t, core, sourceOf(
		"break 0x10", "watch 0x20", "list", "delete 0x10", "list", "quit"))

	assert.Contains(t, out, "breakpoint 1 at 0x00000010\n")
	assert.Contains(t, out, "watchpoint 2 at 0x00000020\n")
	assert.Equal(t, 1, strings.Count(out, "breakpoint 1"))
	assert.Empty(t, core.Breakpoints())
	require.Len(t, core.Watchpoints(), 1)
}

func TestSessionReset(t *testing.T) {
	core := newSessionCore(t, 0xE3A00001, 0xE3A01002)
	source := sourceOf("next", "next", "reset", "quit")

	_, out := runSession(t, core, source)

	assert.Equal(t, uint32(0), core.Reg(0))
	assert.Equal(t, uint32(4), core.Reg(15))
	// initial pause, two steps and the reset each render status
	assert.Equal(t, 4, strings.Count(out, "cpsr:"))
}

func TestSessionHelp(t *testing.T) {
	t.Run("lists every command", func(t *testing.T) {
		core := newSessionCore(t, 0xE3A00001)
		_, out := runSession(t, core, sourceOf("help", "quit"))

		assert.Contains(t, out, "break, b")
		assert.Contains(t, out, "resume execution")
		for _, cmd := range Commands() {
			assert.Contains(t, out, cmd.Name)
		}
	})

	t.Run("describes a topic", func(t *testing.T) {
		core := newSessionCore(t, 0xE3A00001)
		_, out := runSession(t, core, sourceOf("help continue", "quit"))

		assert.Contains(t, out, "usage: continue\n")
		assert.Contains(t, out, "aliases: c\n")
	})

	t.Run("suggests near misses", func(t *testing.T) {
		core := newSessionCore(t, 0xE3A00001)
		_, out := runSession(t, core, sourceOf("help brek", "quit"))

		assert.Contains(t, out, `unknown command "brek"`)
		assert.Contains(t, out, "did you mean:")
		assert.Contains(t, out, "break")
	})
}

func TestSessionSourceScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "setup.dbg")
	script := "# preset debug state\nbreak 0x10\n\nwatch 0x20\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o644))

	core := newSessionCore(t, 0xE3A00001)
	source := sourceOf("source "+path, "quit")

	runSession(t, core, source)

	require.Len(t, core.Breakpoints(), 1)
	require.Len(t, core.Watchpoints(), 1)
	// scripted lines stay out of the interactive history
	assert.Equal(t, []string{"source " + path, "quit"}, source.history)
}

func TestSessionSourceScriptStopsOnQuit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quit.dbg")
	require.NoError(t, os.WriteFile(path, []byte("break 0x10\nquit\nbreak 0x20\n"), 0o644))

	core := newSessionCore(t, 0xE3A00001)

	session, _ := runSession(t, core, sourceOf("source "+path))

	assert.Equal(t, StateShutdown, session.State())
	require.Len(t, core.Breakpoints(), 1)
	assert.Equal(t, uint32(0x10), core.Breakpoints()[0].Addr)
}

func TestSessionSourceErrors(t *testing.T) {
	core := newSessionCore(t, 0xE3A00001)

	_, out := runSession(t, core, sourceOf("source", "source /nonexistent/x.dbg", "quit"))

	assert.Contains(t, out, "Arguments missing")
	assert.Contains(t, out, "no such file")
}

func TestSessionColoredStyleDegradesToPlain(t *testing.T) {
	restore := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = restore }()

	core := newSessionCore(t, 0xE3A00001)
	var out bytes.Buffer
	session := New(Config{Core: core, Source: sourceOf("quit"), Output: &out, Style: StyleColored})
	require.NoError(t, session.Run())

	assert.Contains(t, out.String(), "00000000:  E3A00001\tmov r0, #1\n")
	assert.Contains(t, out.String(), "cpsr: 00000000 [-------]\n")
}
