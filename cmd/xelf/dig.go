package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zboralski/xelf/internal/diag"
	"github.com/zboralski/xelf/internal/loader"
	"github.com/zboralski/xelf/internal/ui/colorize"
)

var digDisasmCount int

var digCmd = &cobra.Command{
	Use:   "dig <elf> <addr-or-substring>",
	Short: "Resolve an address to an object/symbol, or search symbols by substring",
	Args:  cobra.ExactArgs(2),
	RunE:  runDig,
}

func init() {
	digCmd.Flags().IntVar(&digDisasmCount, "disasm", 0, "disassemble N instructions at the resolved address")
}

func runDig(cmd *cobra.Command, args []string) error {
	target, query := args[0], args[1]

	ld := loader.New(cfg.SearchPath, log)
	if _, err := ld.LoadClosure(target); err != nil {
		return fmt.Errorf("load %s: %w", target, err)
	}

	if address, err := parseAddr(query); err == nil {
		hit, ok := diag.Dig(ld.Objects, address)
		if !ok {
			fmt.Printf("%s: no loaded object covers this address\n", colorize.Address(address))
			return nil
		}
		fmt.Println(hit.String())

		if digDisasmCount > 0 && hit.Object != nil {
			seg := hit.Object.SegmentContaining(address - uint64(hit.Object.Base))
			if seg != nil {
				code := seg.Bytes(seg.End.Sub(seg.Start))
				off := address - uint64(seg.Start)
				insns := diag.Disassemble(code[off:], address, digDisasmCount)
				for _, in := range insns {
					fmt.Printf("%s: %s\n", colorize.Address(in.Addr), colorize.Instruction(in.Text))
				}
			}
		}
		return nil
	}

	hits := diag.FindSymbolsBySubstring(ld.Objects, query)
	if len(hits) == 0 {
		fmt.Println("no matching symbols")
		return nil
	}
	for _, h := range hits {
		fmt.Println(h.String())
	}
	return nil
}

func parseAddr(s string) (uint64, error) {
	s = strings.TrimPrefix(s, "0x")
	return strconv.ParseUint(s, 16, 64)
}
