package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configFile string
	backend    string
	dataPath   string
)

var rootCmd = &cobra.Command{
	Use:   "vm-cli",
	Short: "Contract storage engine command line tool",
	Long: `Command line tool for creating accounts, libraries and contracts and
calling contract methods on a persistent contract store.
State survives between invocations when a leveldb or db backend is used:

  vm-cli --backend leveldb --path ./data account create --balance 100`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "TOML configuration file")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "storage backend (memory, leveldb, db), overrides the config")
	rootCmd.PersistentFlags().StringVar(&dataPath, "path", "", "storage path, overrides the config")

	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(libraryCmd)
	rootCmd.AddCommand(contractCmd)
	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(inspectCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
