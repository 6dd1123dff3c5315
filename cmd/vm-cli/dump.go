package main

import (
	"github.com/spf13/cobra"

	"github.com/govm-net/vmstore/core"
)

var dumpCmd = &cobra.Command{
	Use:   "dump <contract> [prefix]",
	Short: "List the stored fields of a contract",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := core.ParseAddress(args[0])
		if err != nil {
			return err
		}
		prefix := ""
		if len(args) > 1 {
			prefix = args[1]
		}

		engine, err := openEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		entries, err := engine.Dump(cmd.Context(), addr, prefix)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), entries)
	},
}
