package cpu

import (
	"github.com/spf13/cobra"
)

// CpuCmd groups the simulator commands
var CpuCmd = &cobra.Command{
	Use:   "cpu",
	Short: "Armadillo processor commands",
}
