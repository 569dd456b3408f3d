package tools

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/armadillo-emu/armadillo/pkg/hw/arm/debugger"
	"github.com/armadillo-emu/armadillo/pkg/hw/arm/isa"
	"github.com/armadillo-emu/armadillo/pkg/utils"
)

var module string
var supportedModules = map[string]func() string{
	"cpu.isa.arm":   func() string { return isa.Reference(isa.ModeARM) },
	"cpu.isa.thumb": func() string { return isa.Reference(isa.ModeThumb) },
	"cpu.debugger":  debuggerReference,
}

var docsCmd = &cobra.Command{
	Use:   "docs module",
	Short: "Show armadillo documentation",
	Long: `Dumps the documentation of the specified armadillo module.
By default the tool dumps the documentation to stdout, but it can be redirected to a file using the --output flag.

Supported modules:
` + strings.Join(utils.Map(utils.SortedKeys(supportedModules), func(module string) string { return "  " + module }), "\n"),
	Args:      cobra.MatchAll(cobra.OnlyValidArgs, cobra.MaximumNArgs(1), cobra.MinimumNArgs(1)),
	ValidArgs: utils.SortedKeys(supportedModules),
	Run: func(cmd *cobra.Command, args []string) {
		module = args[0]
		outputFile, _ := cmd.Flags().GetString("output")
		if outputFile != "" {
			file, err := os.Create(outputFile)
			if err != nil {
				fmt.Println("Error creating file:", err)
				os.Exit(1)
			}
			defer file.Close()
			fmt.Fprintln(file, supportedModules[module]())
		} else {
			fmt.Println(supportedModules[module]())
		}
	},
}

// debuggerReference renders the live command registry, so the docs cannot
// drift from what the debugger actually binds.
func debuggerReference() string {
	var sb strings.Builder
	sb.WriteString("Debugger commands\n\n")
	for _, cmd := range debugger.Commands() {
		fmt.Fprintf(&sb, "  %-36s %s\n", cmd.Usage, cmd.Summary)
		if len(cmd.Aliases) > 0 {
			fmt.Fprintf(&sb, "  %-36s aliases: %s\n", "", strings.Join(cmd.Aliases, ", "))
		}
	}
	sb.WriteString("\nExpressions accept decimal and 0x hex literals with + - * / =,\n")
	sb.WriteString("evaluated left to right with no precedence. An empty line repeats\n")
	sb.WriteString("the last command.\n")
	return sb.String()
}

func init() {
	ToolsCmd.AddCommand(docsCmd)
	docsCmd.Flags().StringP("output", "o", "", "Output file. If not specified, the documentation is dumped to stdout.")
}
