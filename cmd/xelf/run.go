package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zboralski/xelf/internal/loader"
	"github.com/zboralski/xelf/internal/process"
	"github.com/zboralski/xelf/internal/start"
)

var runCmd = &cobra.Command{
	Use:   "run <elf> [guest-args...]",
	Short: "Load, relocate, and jump to an ELF64 executable",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	target := args[0]
	guestArgv := args

	ld := loader.New(cfg.SearchPath, log)
	rootIdx, err := ld.LoadClosure(target)
	if err != nil {
		return fmt.Errorf("load %s: %w", target, err)
	}
	root := ld.Objects[rootIdx]

	loading := process.New(ld.Objects, log)

	allocated, err := loading.AllocateTLS()
	if err != nil {
		return err
	}
	relocated, err := allocated.Relocate(start.IFunc)
	if err != nil {
		return err
	}
	initialized, err := relocated.InitializeTLS()
	if err != nil {
		return err
	}
	protected, err := initialized.Protect()
	if err != nil {
		return err
	}

	argvAddrs, err := start.Strings(guestArgv)
	if err != nil {
		return fmt.Errorf("build argv: %w", err)
	}
	envpAddrs, err := start.Strings(os.Environ())
	if err != nil {
		return fmt.Errorf("build envp: %w", err)
	}
	auxv, err := start.HostAuxv()
	if err != nil {
		return fmt.Errorf("read auxv: %w", err)
	}
	words := start.BuildStack(argvAddrs, envpAddrs, auxv)

	if err := start.InstallTCB(protected.TCBAddr()); err != nil {
		return fmt.Errorf("install tcb: %w", err)
	}

	entry := root.Base.Add(root.View.Entry)
	log.Phase("start")

	if cfg.PauseBeforeJump {
		fmt.Fprintf(os.Stderr, "xelf: paused before jump to %s (entry 0x%x); press enter to continue\n", target, uint64(entry))
		bufio.NewReader(os.Stdin).ReadString('\n')
	}

	start.Jump(entry, words)
	return nil // unreachable: Jump never returns on success
}
