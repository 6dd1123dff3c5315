package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/govm-net/vmstore/core"
)

var (
	from     string
	value    uint64
	jsonArgs string
)

var callCmd = &cobra.Command{
	Use:   "call <contract> <method>",
	Short: "Call a contract method",
	Long: `Call a contract method in a new transaction and print the receipt.
Arguments are given as a JSON array.
Example: vm-cli call 0x... increment --from 0x... --args '[3]'`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		contract, err := core.ParseAddress(args[0])
		if err != nil {
			return err
		}
		msg := core.Msg{Value: value}
		if from != "" {
			if msg.Sender, err = core.ParseAddress(from); err != nil {
				return fmt.Errorf("invalid sender: %w", err)
			}
		}
		callArgs, err := parseArgs(jsonArgs)
		if err != nil {
			return err
		}

		engine, err := openEngine()
		if err != nil {
			return err
		}
		defer engine.Close()

		receipt, err := engine.Call(cmd.Context(), msg, contract, args[1], callArgs...)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), receipt)
	},
}

// parseArgs decodes a JSON array, keeping numbers as json.Number
func parseArgs(s string) ([]any, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var out []any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("invalid args: %w", err)
	}
	return out, nil
}

func init() {
	callCmd.Flags().StringVar(&from, "from", "", "sender address")
	callCmd.Flags().Uint64Var(&value, "value", 0, "value transferred to the contract")
	callCmd.Flags().StringVar(&jsonArgs, "args", "", "method arguments as a JSON array")
}
