package tools

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/bradleyjkemp/memviz"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/armadillo-emu/armadillo/pkg/hw/arm/debugger"
)

var astOutput string

var astCmd = &cobra.Command{
	Use:   "ast <expression>",
	Short: "Visualize a debugger expression parse tree",
	Long: `Parses a debugger expression and renders its tree as a graphviz dot
diagram, one node per tree cell. Useful for seeing how the left-to-right
grammar folds an expression: quote the expression so the shell keeps it
as one argument.

If no flags are specified the dot text is written to a temporary file and
opened in the browser.

Example:
  armadillo tools ast '2+3*4'
  armadillo tools ast -o tree.dot '1+pc'`,
	Args: cobra.ExactArgs(1),
	RunE: runAst,
}

func init() {
	ToolsCmd.AddCommand(astCmd)
	astCmd.Flags().StringVarP(&astOutput, "output", "o", "", "output to given file path or - for stdout, instead of opening in browser")
}

func runAst(cmd *cobra.Command, args []string) error {
	node := debugger.ParseText(args[0])

	var buf bytes.Buffer
	memviz.Map(&buf, node)

	if astOutput == "-" {
		fmt.Println(buf.String())
		return nil
	}

	var (
		f   *os.File
		err error
	)
	if astOutput == "" {
		f, err = os.CreateTemp(os.TempDir(), "armadillo-ast-*.dot.txt")
	} else {
		f, err = os.Create(astOutput)
	}
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	if _, err := io.Copy(f, &buf); err != nil {
		return fmt.Errorf("copy: %w", err)
	}

	if astOutput == "" {
		browser.OpenFile(f.Name())
	}
	return nil
}
