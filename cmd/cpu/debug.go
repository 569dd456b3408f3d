package cpu

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/armadillo-emu/armadillo/pkg/hw/arm/debugger"
	"github.com/armadillo-emu/armadillo/pkg/hw/arm/loader"
	"github.com/armadillo-emu/armadillo/pkg/logging"
	"github.com/armadillo-emu/armadillo/pkg/statsview"
)

var (
	debugMemorySize  uint32
	debugLoadAddress uint32
	debugThumb       bool
	debugPlain       bool
	debugStats       bool
)

var debugCmd = &cobra.Command{
	Use:   "debug <program>",
	Short: "Run the armadillo debugger",
	Long: `Interactive debugger for ARM program images.

The program is loaded into memory and the debugger starts paused at its
entry point. Type help at the prompt for the command list; an empty line
repeats the last command, and Ctrl-C while the program runs breaks back
into the prompt.`,
	Args: cobra.ExactArgs(1),
	Run:  runDebug,
}

func init() {
	CpuCmd.AddCommand(debugCmd)
	debugCmd.Flags().Uint32VarP(&debugMemorySize, "memory", "m", 0, "memory size in bytes (0 = format default)")
	debugCmd.Flags().Uint32Var(&debugLoadAddress, "load-address", 0, "load address for raw images")
	debugCmd.Flags().BoolVar(&debugThumb, "thumb", false, "treat a raw image entry point as Thumb code")
	debugCmd.Flags().BoolVar(&debugPlain, "plain", false, "disable colored output")
	debugCmd.Flags().BoolVar(&debugStats, "stats", false, "serve runtime statistics over HTTP while debugging")
}

// =============================================================================
// Input sources
// =============================================================================

// linerSource adapts a liner editor to the debugger input interface. A
// Ctrl-C abort at the prompt surfaces as the debugger's interrupt error.
type linerSource struct {
	line *liner.State
}

func (s *linerSource) ReadLine(prompt string) (string, error) {
	text, err := s.line.Prompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) {
		fmt.Println()
		return "", debugger.ErrInterrupted
	}
	if errors.Is(err, io.EOF) {
		fmt.Println()
	}
	return text, err
}

func (s *linerSource) AppendHistory(line string) {
	s.line.AppendHistory(line)
}

// plainSource reads lines without editing, for pipes and dumb terminals
type plainSource struct {
	in  *bufio.Reader
	out io.Writer
}

func (s *plainSource) ReadLine(prompt string) (string, error) {
	fmt.Fprint(s.out, prompt)
	text, err := s.in.ReadString('\n')
	if err != nil && text == "" {
		return "", err
	}
	return strings.TrimRight(text, "\r\n"), nil
}

func (s *plainSource) AppendHistory(string) {}

// =============================================================================
// Main debug entry point
// =============================================================================

func runDebug(cmd *cobra.Command, args []string) {
	memorySize := debugMemorySize
	if memorySize == 0 {
		memorySize = viper.GetUint32("memory")
	}
	result, err := loader.LoadFile(args[0], &loader.Options{
		LoadAddress: debugLoadAddress,
		Thumb:       debugThumb,
		MemorySize:  memorySize,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	log, closeLog, err := logging.New(viper.GetString("log.level"), viper.GetString("log.file"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log sink: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if debugStats {
		if statsview.Available() {
			statsview.Launch(os.Stderr)
		} else {
			fmt.Fprintln(os.Stderr, "This build carries no stats server; rebuild with the statsview tag")
		}
	}

	log.Info("program loaded",
		"path", args[0],
		"entry", fmt.Sprintf("0x%08X", result.Entry),
		"thumb", result.Thumb,
		"segments", len(result.Segments))

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	style := debugger.StylePlain
	if interactive && !debugPlain {
		style = debugger.StyleColored
	}

	var source debugger.LineSource
	if interactive {
		line := liner.NewLiner()
		defer line.Close()

		line.SetCtrlCAborts(true)
		line.SetCompleter(debugger.Complete)

		historyFile := historyFilePath()
		if f, err := os.Open(historyFile); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
		defer func() {
			if f, err := os.Create(historyFile); err == nil {
				line.WriteHistory(f)
				f.Close()
			}
		}()

		source = &linerSource{line: line}
	} else {
		source = &plainSource{in: bufio.NewReader(os.Stdin), out: os.Stdout}
	}

	session := debugger.New(debugger.Config{
		Core:   result.Core,
		Source: source,
		Logger: log,
		Style:  style,
	})

	// route Ctrl-C to the session while the program runs
	detach := debugger.Attach(session)
	defer detach()

	if err := session.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Debugger error: %v\n", err)
		os.Exit(2)
	}
	log.Debug("session over", "state", session.State())
}

// historyFilePath returns the path to the debugger history file
func historyFilePath() string {
	if path := viper.GetString("history"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".armadillo_history"
	}
	return filepath.Join(home, ".armadillo_history")
}
