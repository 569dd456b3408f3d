package debugger

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/armadillo-emu/armadillo/pkg/hw/arm"
)

// Command binds one debugger action to its names. Exactly one of Run and
// RunRaw is set; RunRaw receives the argument text unevaluated for
// commands that take paths or topics instead of expressions.
type Command struct {
	Name    string
	Aliases []string
	Summary string
	Usage   string
	Run     func(s *Session, args Vector)
	RunRaw  func(s *Session, text string)
}

// Names returns the canonical name with its aliases, comma separated
func (c *Command) Names() string {
	if len(c.Aliases) == 0 {
		return c.Name
	}
	return c.Name + ", " + strings.Join(c.Aliases, ", ")
}

var (
	// commands lists every binding in help order
	commands []*Command

	// commandIndex resolves every lowercase name and alias
	commandIndex = map[string]*Command{}
)

func init() {
	commands = []*Command{
		{Name: "break", Aliases: []string{"b"}, Usage: "break <address>",
			Summary: "set a breakpoint at an address", Run: cmdSetBreakpoint},
		{Name: "break-into", Aliases: []string{"x"}, Usage: "break-into",
			Summary: "raise a trap an attached debugger can catch", Run: cmdBreakInto},
		{Name: "continue", Aliases: []string{"c"}, Usage: "continue",
			Summary: "resume execution", Run: cmdContinue},
		{Name: "delete", Aliases: []string{"d"}, Usage: "delete <address>",
			Summary: "clear the breakpoint at an address", Run: cmdClearBreakpoint},
		{Name: "disassemble", Aliases: []string{"dis", "disasm"}, Usage: "disassemble [address [count]]",
			Summary: "decode instructions, by default at the current one", Run: cmdDisassemble},
		{Name: "help", Aliases: []string{"h"}, Usage: "help [command]",
			Summary: "list commands, or describe one", RunRaw: cmdHelp},
		{Name: "list", Aliases: []string{"l"}, Usage: "list",
			Summary: "list breakpoints and watchpoints", Run: cmdList},
		{Name: "next", Aliases: []string{"n"}, Usage: "next",
			Summary: "execute one instruction", Run: cmdNext},
		{Name: "print", Aliases: []string{"p"}, Usage: "print <expr>...",
			Summary: "evaluate expressions and print the results", Run: cmdPrint},
		{Name: "print/x", Aliases: []string{"p/x"}, Usage: "print/x <expr>...",
			Summary: "evaluate expressions and print the results in hex", Run: cmdPrintHex},
		{Name: "quit", Aliases: []string{"q"}, Usage: "quit",
			Summary: "shut the session down", Run: cmdQuit},
		{Name: "read-byte", Aliases: []string{"rb"}, Usage: "read-byte <address>",
			Summary: "read a byte from memory", Run: cmdReadByte},
		{Name: "read-half", Aliases: []string{"rh"}, Usage: "read-half <address>",
			Summary: "read a halfword from memory", Run: cmdReadHalf},
		{Name: "read-word", Aliases: []string{"rw"}, Usage: "read-word <address>",
			Summary: "read a word from memory", Run: cmdReadWord},
		{Name: "reset", Usage: "reset",
			Summary: "reset the core to its entry state", Run: cmdReset},
		{Name: "source", Usage: "source <file>",
			Summary: "play a file of debugger commands", RunRaw: cmdSource},
		{Name: "status", Aliases: []string{"i", "info"}, Usage: "status",
			Summary: "show registers, flags and the current instruction", Run: cmdStatus},
		{Name: "watch", Aliases: []string{"w"}, Usage: "watch <address>",
			Summary: "set a watchpoint at an address", Run: cmdSetWatchpoint},
		{Name: "write-byte", Aliases: []string{"wb"}, Usage: "write-byte <address> <value>",
			Summary: "write a byte to memory", Run: cmdWriteByte},
		{Name: "write-half", Aliases: []string{"wh"}, Usage: "write-half <address> <value>",
			Summary: "write a halfword to memory", Run: cmdWriteHalf},
		{Name: "write-word", Aliases: []string{"ww"}, Usage: "write-word <address> <value>",
			Summary: "write a word to memory", Run: cmdWriteWord},
	}

	for _, cmd := range commands {
		commandIndex[cmd.Name] = cmd
		for _, alias := range cmd.Aliases {
			commandIndex[alias] = cmd
		}
	}
}

// Commands returns the registry in help order
func Commands() []*Command {
	return commands
}

// Complete offers prefix completion over the command table. A unique match
// completes to the full name plus a trailing space; an ambiguous or
// unknown prefix yields nothing.
func Complete(line string) []string {
	if line == "" || strings.ContainsRune(line, ' ') {
		return nil
	}
	prefix := strings.ToLower(line)

	var match string
	for name := range commandIndex {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		if match != "" {
			return nil
		}
		match = name
	}
	if match == "" {
		return nil
	}
	return []string{match + " "}
}

// execute parses and dispatches one line. It reports whether the line
// reached a handler, which is what history records.
func (s *Session) execute(line string) bool {
	name := line
	rest := ""
	if i := strings.IndexByte(line, ' '); i >= 0 {
		name = line[:i]
		rest = line[i+1:]
	}

	cmd, ok := commandIndex[strings.ToLower(name)]
	if !ok {
		fmt.Fprintln(s.out, "Command not found")
		s.log.Debug("unknown command", "name", name)
		return false
	}

	if cmd.RunRaw != nil {
		cmd.RunRaw(s, rest)
		return true
	}

	args := BuildVector(rest)
	if err := args.Err(); err != nil {
		fmt.Fprintln(s.out, "Parse error")
		s.log.Debug("argument error", "command", cmd.Name, "err", err)
		return false
	}

	s.log.Debug("dispatch", "command", cmd.Name, "args", len(args))
	cmd.Run(s, args)
	return true
}

// --- Handlers ---

func cmdContinue(s *Session, _ Vector) {
	s.state = StateRunning
}

func cmdQuit(s *Session, _ Vector) {
	s.state = StateShutdown
}

func cmdNext(s *Session, _ Vector) {
	info := s.core.Step()
	switch info.Reason {
	case arm.StopWatchpoint:
		fmt.Fprintln(s.out, "Hit watchpoint")
	case arm.StopIllegal:
		fmt.Fprintln(s.out, "Hit illegal opcode")
	case arm.StopHalt:
		fmt.Fprintln(s.out, "Program halted")
	}
	s.renderStatus()
}

func cmdBreakInto(s *Session, _ Vector) {
	breakInto(s.out)
}

func cmdPrint(s *Session, args Vector) {
	for _, value := range args {
		fmt.Fprintf(s.out, " %d", value.Int)
	}
	fmt.Fprintln(s.out)
}

func cmdPrintHex(s *Session, args Vector) {
	for _, value := range args {
		fmt.Fprintf(s.out, " 0x%08X", value.Int)
	}
	fmt.Fprintln(s.out)
}

func cmdStatus(s *Session, _ Vector) {
	s.renderStatus()
}

func cmdDisassemble(s *Session, args Vector) {
	width := s.core.Mode().InstructionWidth()

	addr := s.core.Reg(15) - width
	if a, ok := args.Int(0); ok {
		addr = a
	}
	count := uint32(1)
	if n, ok := args.Int(1); ok {
		count = n
	}

	for i := uint32(0); i < count; i++ {
		s.renderInstruction(addr)
		addr += width
	}
}

func cmdReadByte(s *Session, args Vector) {
	addr, ok := args.Int(0)
	if !ok {
		fmt.Fprintln(s.out, "Arguments missing")
		return
	}
	value, err := s.core.Memory().LoadByte(addr)
	if err != nil {
		fmt.Fprintln(s.out, err)
		return
	}
	fmt.Fprintf(s.out, " 0x%02X\n", value)
}

func cmdReadHalf(s *Session, args Vector) {
	addr, ok := args.Int(0)
	if !ok {
		fmt.Fprintln(s.out, "Arguments missing")
		return
	}
	value, err := s.core.Memory().LoadHalf(addr)
	if err != nil {
		fmt.Fprintln(s.out, err)
		return
	}
	fmt.Fprintf(s.out, " 0x%04X\n", value)
}

func cmdReadWord(s *Session, args Vector) {
	addr, ok := args.Int(0)
	if !ok {
		fmt.Fprintln(s.out, "Arguments missing")
		return
	}
	value, err := s.core.Memory().LoadWord(addr)
	if err != nil {
		fmt.Fprintln(s.out, err)
		return
	}
	fmt.Fprintf(s.out, " 0x%08X\n", value)
}

func cmdWriteByte(s *Session, args Vector) {
	addr, haveAddr := args.Int(0)
	value, haveValue := args.Int(1)
	if !haveAddr || !haveValue {
		fmt.Fprintln(s.out, "Arguments missing")
		return
	}
	if err := s.core.Memory().StoreByte(addr, uint8(value)); err != nil {
		fmt.Fprintln(s.out, err)
	}
}

func cmdWriteHalf(s *Session, args Vector) {
	addr, haveAddr := args.Int(0)
	value, haveValue := args.Int(1)
	if !haveAddr || !haveValue {
		fmt.Fprintln(s.out, "Arguments missing")
		return
	}
	if err := s.core.Memory().StoreHalf(addr, uint16(value)); err != nil {
		fmt.Fprintln(s.out, err)
	}
}

func cmdWriteWord(s *Session, args Vector) {
	addr, haveAddr := args.Int(0)
	value, haveValue := args.Int(1)
	if !haveAddr || !haveValue {
		fmt.Fprintln(s.out, "Arguments missing")
		return
	}
	if err := s.core.Memory().StoreWord(addr, value); err != nil {
		fmt.Fprintln(s.out, err)
	}
}

func cmdSetBreakpoint(s *Session, args Vector) {
	addr, ok := args.Int(0)
	if !ok {
		fmt.Fprintln(s.out, "Arguments missing")
		return
	}
	s.core.SetBreakpoint(addr)
}

func cmdClearBreakpoint(s *Session, args Vector) {
	addr, ok := args.Int(0)
	if !ok {
		fmt.Fprintln(s.out, "Arguments missing")
		return
	}
	s.core.ClearBreakpoint(addr)
}

func cmdSetWatchpoint(s *Session, args Vector) {
	addr, ok := args.Int(0)
	if !ok {
		fmt.Fprintln(s.out, "Arguments missing")
		return
	}
	s.core.SetWatchpoint(addr)
}

func cmdList(s *Session, _ Vector) {
	for _, bp := range s.core.Breakpoints() {
		fmt.Fprintf(s.out, "breakpoint %d at 0x%08X\n", bp.ID, bp.Addr)
	}
	for _, wp := range s.core.Watchpoints() {
		fmt.Fprintf(s.out, "watchpoint %d at 0x%08X\n", wp.ID, wp.Addr)
	}
}

func cmdReset(s *Session, _ Vector) {
	s.core.Reset()
	s.renderStatus()
}

func cmdHelp(s *Session, topic string) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		for _, cmd := range commands {
			fmt.Fprintf(s.out, "%-24s %s\n", cmd.Names(), cmd.Summary)
		}
		return
	}

	if cmd, ok := commandIndex[strings.ToLower(topic)]; ok {
		fmt.Fprintf(s.out, "usage: %s\n", cmd.Usage)
		fmt.Fprintf(s.out, "%s\n", cmd.Summary)
		if len(cmd.Aliases) > 0 {
			fmt.Fprintf(s.out, "aliases: %s\n", strings.Join(cmd.Aliases, ", "))
		}
		return
	}

	fmt.Fprintf(s.out, "unknown command %q\n", topic)
	if suggestions := suggestCommands(topic); len(suggestions) > 0 {
		fmt.Fprintf(s.out, "did you mean: %s\n", strings.Join(suggestions, ", "))
	}
}

// suggestCommands fuzzy-matches a mistyped help topic against the
// canonical command names
func suggestCommands(topic string) []string {
	names := make([]string, len(commands))
	for i, cmd := range commands {
		names[i] = cmd.Name
	}

	ranks := fuzzy.RankFindFold(topic, names)
	sort.Sort(ranks)

	var suggestions []string
	for _, rank := range ranks {
		suggestions = append(suggestions, rank.Target)
		if len(suggestions) == 3 {
			break
		}
	}
	return suggestions
}
