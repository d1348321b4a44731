package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Compy/mpf-mc/internal/ipc"
)

func newAssetsCommand(ctx *commandContext) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "assets",
		Short: "List registered assets and their load state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.AssetList(kind)
				if err != nil {
					return fmt.Errorf("list assets: %w", err)
				}
				out := cmd.OutOrStdout()
				if len(resp.Assets) == 0 {
					fmt.Fprintln(out, "No assets registered")
					return nil
				}
				rows := make([][]string, 0, len(resp.Assets))
				for _, asset := range resp.Assets {
					rows = append(rows, []string{
						asset.Kind,
						asset.Name,
						asset.State,
						asset.LoadKey,
						strconv.Itoa(asset.Priority),
						asset.File,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Kind", "Name", "State", "Load", "Priority", "File"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&kind, "kind", "k", "", "Filter by asset kind (images, sounds, videos, fonts)")
	return cmd
}
