package tools

import (
	"fmt"
	"os"
	"strconv"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/armadillo-emu/armadillo/pkg/hw/arm/isa"
	"github.com/armadillo-emu/armadillo/pkg/utils"
)

var (
	decodeThumb  bool
	decodeAddr   uint32
	decodeDump   bool
	decodeFields bool
)

var decodeCmd = &cobra.Command{
	Use:   "decode <word>...",
	Short: "Decode raw instruction words",
	Long: `Decodes instruction words given on the command line and prints the
assembly text, one line per word. Words are 32-bit ARM encodings, or 16-bit
halfwords with --thumb, written in any base strconv understands (0x1A, 26).

Consecutive words decode at consecutive addresses so pc-relative operands
render real targets. Use --addr to place the first word somewhere other
than zero. --fields draws an ascii diagram of the bit layout of each word.

Example:
  armadillo tools decode 0xE3A00001 0xE12FFF1E
  armadillo tools decode --thumb 0x2001
  armadillo tools decode --fields 0xE5910004`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDecode,
}

func init() {
	ToolsCmd.AddCommand(decodeCmd)
	decodeCmd.Flags().BoolVar(&decodeThumb, "thumb", false, "decode 16-bit Thumb halfwords")
	decodeCmd.Flags().Uint32Var(&decodeAddr, "addr", 0, "address of the first word")
	decodeCmd.Flags().BoolVar(&decodeDump, "dump", false, "dump the full decoded structure of each word")
	decodeCmd.Flags().BoolVar(&decodeFields, "fields", false, "draw the bit layout of each word")
}

func runDecode(cmd *cobra.Command, args []string) error {
	mode := isa.ModeARM
	if decodeThumb {
		mode = isa.ModeThumb
	}

	addr := decodeAddr
	for _, arg := range args {
		raw, err := strconv.ParseUint(arg, 0, 32)
		if err != nil {
			return fmt.Errorf("bad instruction word %q: %w", arg, err)
		}
		if mode == isa.ModeThumb && raw > 0xFFFF {
			return fmt.Errorf("%q does not fit a 16-bit halfword", arg)
		}

		inst := isa.Decode(uint32(raw), addr, mode)
		if mode == isa.ModeThumb {
			fmt.Printf("%08X:  %04X\t%s\n", addr, uint16(raw), inst)
		} else {
			fmt.Printf("%08X:  %08X\t%s\n", addr, uint32(raw), inst)
		}
		if decodeDump {
			spew.Fdump(os.Stdout, inst)
		}
		if decodeFields {
			diagram, err := frameDiagram(inst)
			if err != nil {
				return err
			}
			fmt.Print(diagram)
		}

		addr += mode.InstructionWidth()
	}
	return nil
}

// frameDiagram draws the encoding of an instruction as an ascii frame, one
// column per named bit range
func frameDiagram(inst isa.Instruction) (string, error) {
	fields := inst.Fields()
	frame := make([]utils.AsciiFrameField, len(fields))
	for i, f := range fields {
		frame[i] = utils.AsciiFrameField{
			Name: fmt.Sprintf("[%s] %s (%s)", f.Name,
				utils.FormatUintBinary(uint64(f.Value), f.Width),
				utils.FormatUintHex(uint64(f.Value), (f.Width+3)/4)),
			Begin: f.Low,
			Width: f.Width,
		}
	}
	bits := int(inst.Mode.InstructionWidth()) * 8
	return utils.AsciiFrame(frame, bits, "bits", utils.AsciiFrameUnitLayout_RightToLeft, 2)
}
