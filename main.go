package main

import (
	"fmt"
	"os"

	"github.com/arctir/miniproc/cmd"
)

func main() {
	rootCmd := cmd.SetupCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
