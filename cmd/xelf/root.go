package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zboralski/xelf/internal/config"
	"github.com/zboralski/xelf/internal/xlog"
)

var (
	flagConfig string
	flagDebug  bool
	flagSearch []string
	cfg        *config.Config
	log        *xlog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "xelf",
	Short:         "A userland ELF64 loader for Linux/x86-64",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(flagConfig)
		if err != nil {
			return err
		}
		if flagDebug {
			cfg.Debug = true
		}
		cfg.SearchPath = append(cfg.SearchPath, flagSearch...)
		log = xlog.New(cfg.Debug)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable verbose development logging")
	rootCmd.PersistentFlags().StringArrayVar(&flagSearch, "search", nil, "extra DT_NEEDED search directory (repeatable)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(digCmd)
	rootCmd.AddCommand(autosymCmd)
	rootCmd.AddCommand(infoCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "xelf:", err)
		os.Exit(1)
	}
}
