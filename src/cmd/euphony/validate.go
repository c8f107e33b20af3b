package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gitlab.com/simongoricar/euphony/src/internal/config"
	"gitlab.com/simongoricar/euphony/src/internal/validate"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check every configured library's naming rules and cross-library collisions",
	Long:  "Check every configured library for unexpected or forbidden files, then check that no album name collides across libraries. Never mutates anything.",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(); err != nil {
			fmt.Printf("%v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	report, err := validate.All(cfg)
	if err != nil {
		return err
	}

	for _, lib := range report.Libraries {
		fmt.Printf("library %s:\n", lib.LibraryName)
		if lib.IsValid() {
			fmt.Println("  ok")
			continue
		}
		for _, issue := range lib.Issues {
			fmt.Printf("  %s\n", issue)
		}
	}

	if len(report.Collisions) > 0 {
		fmt.Println("collisions:")
		for _, c := range report.Collisions {
			fmt.Printf(
				"  %s / %s found in both '%s' and '%s'\n",
				c.Artist, c.Album, c.FirstLibrary, c.SecondLibrary,
			)
		}
	}

	if !report.IsValid() {
		os.Exit(1)
	}
	return nil
}
