package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"badgeworks/internal/badge/catalog"
	"badgeworks/internal/platform/config"
)

func catalogCmd() *cobra.Command {
	var (
		path   string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List the key codes in a catalog file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.Load(path)
			if err != nil {
				return err
			}
			entries := cat.Entries()

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CODE\tDESCRIPTION")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\n", e.Code, e.Description)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&path, "catalog", config.DefaultCatalogPath, "Catalog file")
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Output as JSON")

	return cmd
}
