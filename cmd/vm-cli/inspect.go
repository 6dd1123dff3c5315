package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/govm-net/vmstore/runtime"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [entry]",
	Short: "List registered contracts and libraries",
	Long: `List the contract entries and libraries known to the native runtime,
with their fields, methods and functions.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return inspect(cmd, runtime.Default(), args)
	},
}

func inspect(cmd *cobra.Command, n *runtime.Native, args []string) error {
	out := cmd.OutOrStdout()
	entries := n.Contracts()
	if len(args) == 1 {
		entries = args
	}

	fmt.Fprintln(out, "contracts:")
	for _, entry := range entries {
		def, err := n.LoadContract("", entry)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  %s\n", entry)
		for _, fd := range def.Fields() {
			fmt.Fprintf(out, "    field  %s (%s)\n", fd.Name, fd.Kind)
		}
		for _, m := range def.Methods() {
			fmt.Fprintf(out, "    method %s\n", m)
		}
	}
	if len(args) == 1 {
		return nil
	}

	fmt.Fprintln(out, "libraries:")
	for _, name := range n.Libraries() {
		lib, err := n.LoadLibrary(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  %s\n", name)
		for _, fn := range lib.Functions() {
			fmt.Fprintf(out, "    func   %s\n", fn)
		}
	}
	return nil
}
