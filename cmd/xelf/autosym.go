package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zboralski/xelf/internal/diag"
	"github.com/zboralski/xelf/internal/loader"
)

var autosymCmd = &cobra.Command{
	Use:   "autosym <elf>",
	Short: "Emit GDB add-symbol-file directives for an object's dependency closure",
	Args:  cobra.ExactArgs(1),
	RunE:  runAutosym,
}

func runAutosym(cmd *cobra.Command, args []string) error {
	target := args[0]

	ld := loader.New(cfg.SearchPath, log)
	if _, err := ld.LoadClosure(target); err != nil {
		return fmt.Errorf("load %s: %w", target, err)
	}

	for _, line := range diag.AddSymbolFileDirectives(ld.Objects) {
		fmt.Println(line)
	}
	return nil
}
