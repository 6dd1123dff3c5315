package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/govm-net/vmstore/core"
)

var balance uint64

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage accounts",
}

var accountCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a normal account",
	Long: `Create a normal account holding the given balance.
Example: vm-cli account create --balance 1000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := openEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		addr, err := engine.CreateAccount(cmd.Context(), balance)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), addr)
		return nil
	},
}

var accountShowCmd = &cobra.Command{
	Use:   "show <address>",
	Short: "Show an account record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := core.ParseAddress(args[0])
		if err != nil {
			return err
		}
		engine, err := openEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		acc, err := engine.Account(addr)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), acc)
	},
}

func init() {
	accountCreateCmd.Flags().Uint64Var(&balance, "balance", 0, "initial balance")
	accountCmd.AddCommand(accountCreateCmd)
	accountCmd.AddCommand(accountShowCmd)
}
