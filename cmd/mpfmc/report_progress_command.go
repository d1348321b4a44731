package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Compy/mpf-mc/internal/ipc"
)

func newReportProgressCommand(ctx *commandContext) *cobra.Command {
	var total int
	var remaining int

	cmd := &cobra.Command{
		Use:   "report-progress",
		Short: "Report a remote loader's progress to the controller",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ReportProgress(total, remaining)
				if err != nil {
					return fmt.Errorf("report progress: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Combined progress: %d%% (%d of %d loaded)\n",
					resp.Progress.Percent, resp.Progress.Loaded, resp.Progress.Total)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&total, "total", 0, "Total assets tracked by the remote loader")
	cmd.Flags().IntVar(&remaining, "remaining", 0, "Assets the remote loader has yet to load")
	_ = cmd.MarkFlagRequired("total")
	return cmd
}
