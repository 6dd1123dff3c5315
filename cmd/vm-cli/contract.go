package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/govm-net/vmstore/core"
)

var (
	owner    string
	code     string
	codeFile string
	entry    string
	deps     []string
)

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Manage libraries",
}

var libraryCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a library account",
	Long: `Create a library account. For the native runtime the code is the
registered library name.
Example: vm-cli library create --code mathlib --owner 0x...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ownerAddr, src, err := creationInput()
		if err != nil {
			return err
		}
		engine, err := openEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		addr, err := engine.CreateLibrary(cmd.Context(), src, ownerAddr)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), addr)
		return nil
	},
}

var contractCmd = &cobra.Command{
	Use:   "contract",
	Short: "Manage contracts",
}

var contractCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a contract and run its deploy method",
	Long: `Create a contract account and run its deploy method.
Example: vm-cli contract create --entry counter --owner 0x... --dep 0x...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ownerAddr, src, err := creationInput()
		if err != nil {
			return err
		}
		if src == "" {
			src = entry
		}
		depAddrs := make([]core.Address, 0, len(deps))
		for _, d := range deps {
			addr, err := core.ParseAddress(d)
			if err != nil {
				return fmt.Errorf("invalid dependency %s: %w", d, err)
			}
			depAddrs = append(depAddrs, addr)
		}

		engine, err := openEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		addr, err := engine.CreateContract(cmd.Context(), src, entry, ownerAddr, depAddrs...)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), addr)
		return nil
	},
}

// creationInput 解析所有者地址和代码
func creationInput() (core.Address, string, error) {
	var ownerAddr core.Address
	if owner != "" {
		var err error
		if ownerAddr, err = core.ParseAddress(owner); err != nil {
			return ownerAddr, "", fmt.Errorf("invalid owner: %w", err)
		}
	}
	src := code
	if codeFile != "" {
		data, err := os.ReadFile(codeFile)
		if err != nil {
			return ownerAddr, "", fmt.Errorf("failed to read code file: %w", err)
		}
		src = string(data)
	}
	return ownerAddr, src, nil
}

func init() {
	for _, cmd := range []*cobra.Command{libraryCreateCmd, contractCreateCmd} {
		cmd.Flags().StringVar(&owner, "owner", "", "owner address")
		cmd.Flags().StringVar(&code, "code", "", "code text")
		cmd.Flags().StringVarP(&codeFile, "file", "f", "", "read the code from a file")
	}
	contractCreateCmd.Flags().StringVar(&entry, "entry", "", "contract entry")
	contractCreateCmd.Flags().StringSliceVar(&deps, "dep", nil, "library dependency address, repeatable")
	contractCreateCmd.MarkFlagRequired("entry")

	libraryCmd.AddCommand(libraryCreateCmd)
	contractCmd.AddCommand(contractCreateCmd)
}
