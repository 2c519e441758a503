package main

import (
	"log"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "figmap",
	Short: "Browse protein families against the genomes that carry them",
	Long: `figmap serves a faceted protein/genome browser. Proteins are filtered by
category, subcategory, subsystem and role, optionally narrowed by a genome
set query, windowed and projected into a protein by genome grid.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, frameCmd, importCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("%v", err)
	}
}
