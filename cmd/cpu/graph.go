package cpu

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/emicklei/dot"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/armadillo-emu/armadillo/pkg/hw/arm/cfg"
	"github.com/armadillo-emu/armadillo/pkg/hw/arm/isa"
	"github.com/armadillo-emu/armadillo/pkg/hw/arm/loader"
)

var (
	graphMemorySize  uint32
	graphLoadAddress uint32
	graphThumb       bool
	graphStart       uint32
	graphCount       int
	graphOutput      string
	graphFormat      string
)

var graphCmd = &cobra.Command{
	Use:   "graph <program>",
	Short: "Generate a control-flow graph for a program image",
	Long: `Loads a program image and renders its control flow as a graph.

The code is swept from the entry point and broken into blocks at branch
instructions and branch targets. Green arrows follow taken branches,
orange arrows follow subroutine calls (which return and continue on the
fall-through side), and red arrows follow the fall-through path.

If no flags are specified the command renders the graph as SVG and opens
it in the browser. Rendering anything but dot text needs the graphviz
dot binary on PATH.`,
	Args: cobra.ExactArgs(1),
	RunE: runGraph,
}

func init() {
	CpuCmd.AddCommand(graphCmd)
	graphCmd.Flags().Uint32VarP(&graphMemorySize, "memory", "m", 0, "memory size in bytes (0 = format default)")
	graphCmd.Flags().Uint32Var(&graphLoadAddress, "load-address", 0, "load address for raw images")
	graphCmd.Flags().BoolVar(&graphThumb, "thumb", false, "treat a raw image entry point as Thumb code")
	graphCmd.Flags().Uint32Var(&graphStart, "start", 0, "address to sweep from (default: the entry point)")
	graphCmd.Flags().IntVar(&graphCount, "count", cfg.DefaultSweepLimit, "maximum number of instructions to sweep")
	graphCmd.Flags().StringVarP(&graphOutput, "output", "o", "", "output to given file path or - for stdout, instead of opening in browser")
	graphCmd.Flags().StringVarP(&graphFormat, "format", "f", "svg", "the output format: dot, svg, pdf or png")
}

func runGraph(cmd *cobra.Command, args []string) error {
	result, err := loader.LoadFile(args[0], &loader.Options{
		LoadAddress: graphLoadAddress,
		Thumb:       graphThumb,
		MemorySize:  graphMemorySize,
	})
	if err != nil {
		return fmt.Errorf("load program: %w", err)
	}

	start := result.Entry
	if cmd.Flags().Changed("start") {
		start = graphStart
	}
	mode := isa.ModeARM
	if result.Thumb {
		mode = isa.ModeThumb
	}

	blocks := cfg.Analyze(result.Core.Memory(), start, mode, graphCount)
	if blocks == nil {
		return fmt.Errorf("no code at 0x%08X", start)
	}

	graph := blocksToGraph(blocks)

	switch graphFormat {
	case "dot":
		if graphOutput == "-" {
			fmt.Println(graph.String())
			return nil
		}

		var f *os.File
		if graphOutput == "" {
			f, err = os.CreateTemp(os.TempDir(), "armadillo-graph-*.dot.txt")
			if err != nil {
				return fmt.Errorf("create tmp: %w", err)
			}
		} else {
			f, err = os.Create(graphOutput)
			if err != nil {
				return fmt.Errorf("create file: %w", err)
			}
		}

		_, err = io.Copy(f, strings.NewReader(graph.String()))
		if err != nil {
			return fmt.Errorf("copy: %w", err)
		}

		if graphOutput == "" {
			browser.OpenFile(f.Name())
		}

	case "png", "svg", "pdf":
		dotF, err := os.CreateTemp(os.TempDir(), "armadillo-graph-*.dot")
		if err != nil {
			return fmt.Errorf("create tmp: %w", err)
		}

		_, err = io.Copy(dotF, strings.NewReader(graph.String()))
		if err != nil {
			return fmt.Errorf("copy: %w", err)
		}

		var (
			render *exec.Cmd
			imgF   *os.File
		)
		switch graphOutput {
		case "-":
			render = exec.Command("dot", fmt.Sprintf("-T%s", graphFormat), dotF.Name())
			render.Stdout = os.Stdout
		case "":
			imgF, err = os.CreateTemp(os.TempDir(), fmt.Sprintf("armadillo-graph-*.%s", graphFormat))
			if err != nil {
				return fmt.Errorf("create tmp: %w", err)
			}

			render = exec.Command(
				"dot",
				fmt.Sprintf("-T%s", graphFormat),
				fmt.Sprintf("-o%s", imgF.Name()),
				dotF.Name(),
			)
		default:
			render = exec.Command(
				"dot",
				fmt.Sprintf("-T%s", graphFormat),
				fmt.Sprintf("-o%s", graphOutput),
				dotF.Name(),
			)
		}

		err = render.Run()
		if err != nil {
			return fmt.Errorf("dot: %w", err)
		}

		if graphOutput == "" {
			browser.OpenFile(imgF.Name())
		}

	default:
		return fmt.Errorf("unknown format %q, pick from: dot, svg, pdf, png", graphFormat)
	}

	return nil
}

func blocksToGraph(blocks []*cfg.Block) *dot.Graph {
	graph := dot.NewGraph(dot.Directed)
	graph.Attr("splines", "ortho")
	graph.Attr("nodesep", "0.5")
	graph.Attr("ranksep", "0.3")

	nodes := make(map[*cfg.Block]dot.Node)
	for _, block := range blocks {
		var label strings.Builder
		label.WriteString("\"")
		for i, inst := range block.Instructions {
			text := inst.String()
			// the edge already shows where a resolved branch goes
			if block.Branch != nil && i == len(block.Instructions)-1 {
				text = inst.Mnemonic
			}
			label.WriteString(fmt.Sprintf("%08X  %s\\l", inst.Addr, text))
		}
		label.WriteString("\"")

		node := graph.Node(fmt.Sprintf("Block %d", block.Index))
		node.Attr("label", dot.Literal(label.String()))
		node.Attr("shape", "box")
		nodes[block] = node
	}

	for _, block := range blocks {
		if block.Branch != nil {
			edge := graph.Edge(nodes[block], nodes[block.Branch]).
				Attr("color", "darkgreen")

			if block.Kind == cfg.KindCall {
				edge.Attr("color", "orange")
			}
		}

		if block.NoBranch != nil {
			graph.Edge(nodes[block], nodes[block.NoBranch]).
				Attr("color", "red")
		}
	}

	return graph
}
