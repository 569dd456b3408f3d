package main

import (
	"github.com/armadillo-emu/armadillo/cmd"
)

func main() {
	cmd.Execute()
}
