package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Compy/mpf-mc/internal/ipc"
)

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Ask a running controller to shut down",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Shutdown()
				if err != nil {
					return fmt.Errorf("request shutdown: %w", err)
				}
				if resp.Stopping {
					fmt.Fprintln(cmd.OutOrStdout(), "Controller is shutting down")
				}
				return nil
			})
		},
	}
}
