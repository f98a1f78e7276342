package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/zboralski/xelf/internal/loader"
	"github.com/zboralski/xelf/internal/ui/infoview"
)

var infoCmd = &cobra.Command{
	Use:   "info <elf>",
	Short: "Browse the loaded objects' segments and symbol counts interactively",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	target := args[0]

	ld := loader.New(cfg.SearchPath, log)
	if _, err := ld.LoadClosure(target); err != nil {
		return fmt.Errorf("load %s: %w", target, err)
	}

	m := infoview.New(ld.Objects)
	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "xelf: info view:", err)
		os.Exit(1)
	}
	return nil
}
