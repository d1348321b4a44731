package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Compy/mpf-mc/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show controller status and loading progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return fmt.Errorf("fetch status: %w", err)
				}
				out := cmd.OutOrStdout()

				fmt.Fprintf(out, "Running:     %s\n", yesNo(status.Running))
				fmt.Fprintf(out, "Ready:       %s\n", yesNo(status.Ready))
				if len(status.PendingHolds) > 0 {
					fmt.Fprintf(out, "Waiting on:  %s\n", strings.Join(status.PendingHolds, ", "))
				}
				fmt.Fprintf(out, "Session:     %s\n", status.SessionID)
				fmt.Fprintf(out, "Machine:     %s\n", status.MachineDir)
				fmt.Fprintf(out, "PID:         %d\n", status.PID)
				fmt.Fprintf(out, "Progress:    %d%% (%d of %d loaded, %d remaining)\n",
					status.Progress.Percent, status.Progress.Loaded,
					status.Progress.Total, status.Progress.Remaining)
				if status.Progress.RemoteTotal > 0 {
					fmt.Fprintf(out, "Remote:      %d of %d loaded\n",
						status.Progress.RemoteLoaded, status.Progress.RemoteTotal)
				}

				if len(status.Classes) > 0 {
					rows := make([][]string, 0, len(status.Classes))
					for _, class := range status.Classes {
						rows = append(rows, []string{
							class.Attribute,
							strconv.Itoa(class.Assets),
							strconv.Itoa(class.Groups),
							strconv.Itoa(class.Loaded),
						})
					}
					fmt.Fprintln(out)
					fmt.Fprintln(out, renderTable(
						[]string{"Kind", "Assets", "Groups", "Loaded"},
						rows,
						[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
					))
				}

				if len(status.Dependencies) > 0 {
					rows := make([][]string, 0, len(status.Dependencies))
					for _, dep := range status.Dependencies {
						detail := dep.Detail
						if detail == "" && dep.Available {
							detail = "ok"
						}
						rows = append(rows, []string{dep.Name, dep.Command, yesNo(dep.Available), detail})
					}
					fmt.Fprintln(out, renderTable(
						[]string{"Dependency", "Command", "Available", "Detail"},
						rows,
						[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
					))
				}
				return nil
			})
		},
	}
}
