package cpu

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/armadillo-emu/armadillo/pkg/hw/arm"
	"github.com/armadillo-emu/armadillo/pkg/hw/arm/isa"
	"github.com/armadillo-emu/armadillo/pkg/hw/arm/loader"
)

var (
	execMemorySize  uint32
	execLoadAddress uint32
	execThumb       bool
	execVerbose     bool
	execMaxSteps    int
	execTrace       bool
)

// execReturnAddress is handed to the program in lr. It sits outside any
// memory size the loader builds, and the halt check runs before the fetch,
// so a return from the outermost frame stops the core cleanly.
const execReturnAddress uint32 = 0xFFFFFFFC

var execCmd = &cobra.Command{
	Use:   "exec <program>",
	Short: "Execute an ARM program image",
	Long: `Loads and executes an ARM program image.

The command accepts either:
  - Raw images (.bin, .img, .rom) - bytes copied verbatim to the load address
  - Manifests (.yaml, .yml) - segment descriptions with an entry point

The program runs until it returns from its entry frame, hits an illegal
instruction, or exhausts the step budget. The value left in r0 is printed
as the program result.

Example:
  armadillo cpu exec program.bin
  armadillo cpu exec --trace --max-steps 1000 program.yaml`,
	Args: cobra.ExactArgs(1),
	Run:  runExec,
}

func init() {
	CpuCmd.AddCommand(execCmd)
	execCmd.Flags().Uint32VarP(&execMemorySize, "memory", "m", 0, "memory size in bytes (0 = format default)")
	execCmd.Flags().Uint32Var(&execLoadAddress, "load-address", 0, "load address for raw images")
	execCmd.Flags().BoolVar(&execThumb, "thumb", false, "treat a raw image entry point as Thumb code")
	execCmd.Flags().BoolVarP(&execVerbose, "verbose", "v", false, "print execution details")
	execCmd.Flags().IntVarP(&execMaxSteps, "max-steps", "n", 0, "maximum number of steps to execute (0 = unlimited)")
	execCmd.Flags().BoolVarP(&execTrace, "trace", "t", false, "trace each instruction execution")
}

func runExec(cmd *cobra.Command, args []string) {
	memorySize := execMemorySize
	if memorySize == 0 {
		memorySize = viper.GetUint32("memory")
	}
	result, err := loader.LoadFile(args[0], &loader.Options{
		LoadAddress: execLoadAddress,
		Thumb:       execThumb,
		MemorySize:  memorySize,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(2)
	}

	core := result.Core
	if execVerbose {
		fmt.Fprintf(os.Stderr, "Loaded %s (%d segments)\n", args[0], len(result.Segments))
		for _, seg := range result.Segments {
			fmt.Fprintf(os.Stderr, "  0x%08X  %6d bytes  %s\n", seg.Address, seg.Size, seg.Path)
		}
		fmt.Fprintf(os.Stderr, "Entry point: 0x%08X (thumb=%v)\n", result.Entry, result.Thumb)
	}

	// returning through lr from the entry frame halts the core
	core.AddTerminationAddress(execReturnAddress)
	core.SetReg(14, execReturnAddress)

	// Ctrl-C requests a stop at the next instruction boundary
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)
	go func() {
		for range sigs {
			core.Interrupt()
		}
	}()

	if execVerbose {
		fmt.Fprintf(os.Stderr, "Starting execution at 0x%08X\n", result.Entry)
	}

	var info arm.StopInfo
	if execTrace || execMaxSteps > 0 {
		info = runStepped(core, execMaxSteps)
	} else {
		info = core.Run()
	}

	normalExit := info.Reason == arm.StopHalt

	if execVerbose {
		if normalExit {
			fmt.Fprintf(os.Stderr, "\n=== Execution completed (returned from entry) ===\n")
		} else {
			fmt.Fprintf(os.Stderr, "\n=== Execution stopped: %s ===\n", info.Reason)
		}
		fmt.Fprintf(os.Stderr, "Steps executed: %d\n", info.Steps)
		fmt.Fprintf(os.Stderr, "Stop address: 0x%08X\n", info.Addr)
		fmt.Fprintf(os.Stderr, "Registers:\n")
		for i := 0; i < 13; i++ {
			fmt.Fprintf(os.Stderr, "  r%-2d = %d (0x%08X)\n", i, core.Reg(i), core.Reg(i))
		}
		fmt.Fprintf(os.Stderr, "  sp  = %d (0x%08X)\n", core.Reg(13), core.Reg(13))
		fmt.Fprintf(os.Stderr, "  lr  = %d (0x%08X)\n", core.Reg(14), core.Reg(14))
		fmt.Fprintf(os.Stderr, "  pc  = 0x%08X\n", core.Reg(15))
	}

	// the program result travels in r0
	r0 := core.Reg(0)
	if execVerbose {
		fmt.Fprintf(os.Stderr, "\nReturn value (r0): %d\n", r0)
	} else {
		fmt.Printf("%d\n", r0)
	}

	if normalExit {
		os.Exit(0)
	}
	switch info.Reason {
	case arm.StopIllegal:
		fmt.Fprintf(os.Stderr, "Execution error: illegal instruction at 0x%08X\n", info.Addr)
		os.Exit(5)
	case arm.StopInterrupt:
		fmt.Fprintln(os.Stderr, "Execution interrupted")
		os.Exit(130)
	}
}

// runStepped executes one instruction at a time so the step budget and the
// trace output see every instruction boundary.
func runStepped(core *arm.Core, maxSteps int) arm.StopInfo {
	steps := 0
	for {
		if core.InterruptRequested() {
			return arm.StopInfo{Reason: arm.StopInterrupt, Addr: fetchAddress(core), Steps: steps}
		}
		if maxSteps > 0 && steps >= maxSteps {
			// budget exhausted with the program still runnable
			return arm.StopInfo{Reason: arm.StopNone, Addr: fetchAddress(core), Steps: steps}
		}

		if execTrace {
			traceInstruction(core, steps)
		}

		info := core.Step()
		steps += info.Steps
		if info.Reason != arm.StopStep {
			info.Steps = steps
			return info
		}
	}
}

// traceInstruction prints the instruction about to execute plus the
// registers most programs live in.
func traceInstruction(core *arm.Core, step int) {
	addr := fetchAddress(core)
	mode := core.Mode()

	var (
		raw uint32
		ok  bool
	)
	if mode == isa.ModeARM {
		if word, err := core.Memory().LoadWord(addr); err == nil {
			raw, ok = word, true
		}
	} else {
		if half, err := core.Memory().LoadHalf(addr); err == nil {
			raw, ok = uint32(half), true
		}
	}

	text := "???"
	if ok {
		text = isa.Decode(raw, addr, mode).String()
	}

	fmt.Fprintf(os.Stderr, "[%6d] 0x%08X  %-32s r0=%-10d r1=%-10d sp=0x%08X lr=0x%08X\n",
		step, addr, text, core.Reg(0), core.Reg(1), core.Reg(13), core.Reg(14))
}

// fetchAddress is the address of the instruction the core will execute
// next, accounting for the pipeline offset carried in r15.
func fetchAddress(core *arm.Core) uint32 {
	return core.Reg(15) - core.Mode().InstructionWidth()
}
