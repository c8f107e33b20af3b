package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gitlab.com/simongoricar/euphony/src/internal/config"
)

// listLibrariesCmd prints configured library names and roots.
var listLibrariesCmd = &cobra.Command{
	Use:   "list-libraries",
	Short: "List the configured libraries",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runListLibraries(); err != nil {
			fmt.Printf("%v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(listLibrariesCmd)
}

func runListLibraries() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	keys := cfg.SortedLibraryKeys()
	fmt.Printf("there are %d libraries available (using %s):\n", len(keys), cfg.ConfigurationFilePath)
	for _, key := range keys {
		lib := cfg.Libraries[key]
		fmt.Printf("  %22s  %s (%s)\n", "("+key+")", lib.Name, lib.Path)
	}
	return nil
}
