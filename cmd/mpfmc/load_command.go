package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Compy/mpf-mc/internal/ipc"
)

func newLoadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "load <key>",
		Short: "Trigger loading of assets registered under a load key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.LoadKey(key)
				if err != nil {
					return fmt.Errorf("trigger load key %q: %w", key, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Triggered %d loadables for key %q\n", resp.Matched, key)
				return nil
			})
		},
	}
}
