package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ray319129/czj/catalog"
	"github.com/ray319129/czj/internal/statepaths"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the image catalog",
	}
	cmd.AddCommand(newCatalogRebuildCmd())
	return cmd
}

func newCatalogRebuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Scan the photo tree and update the catalog file",
		RunE: func(cmd *cobra.Command, args []string) error {
			photoDir := statepaths.PhotoDir()
			catalogPath := statepaths.CatalogFilePath()

			res, err := catalog.Rebuild(photoDir, catalogPath)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "catalog: %d entries (%d added, %d updated)\n", res.Total, res.Added, res.Updated)
			return nil
		},
	}
}
