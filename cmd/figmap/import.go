package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/figmap/server/internal/service"
)

var importData, importOut string

var importCmd = &cobra.Command{
	Use:     "import",
	Short:   "Convert a dataset between JSON and SQLite",
	Example: "  figmap import --data proteins.json.zst --out proteins.sqlite",
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := service.ImportDataset(importData, importOut)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d proteins into %s\n", n, importOut)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importData, "data", "", "Input dataset (.json, .json.zst or .sqlite)")
	importCmd.Flags().StringVar(&importOut, "out", "", "Output file (.sqlite for a store, otherwise JSON)")
	importCmd.MarkFlagRequired("data")
	importCmd.MarkFlagRequired("out")
}
