package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Version is set at release time via -ldflags.
var Version = "dev"

var preamble = `euphony ` + Version + `

euphony incrementally transcodes and mirrors a set of music libraries into
a single aggregated target library: unchanged files are left alone, changed
or new audio is (re-)transcoded, data files are copied, and anything left
over in the target with no corresponding source is removed.`

var configPath string
var verbose bool

var rootCmd = &cobra.Command{
	Use:     "euphony",
	Short:   "incremental music library transcoder",
	Long:    preamble,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		} else {
			logrus.SetLevel(logrus.InfoLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "euphony.toml", "path to the configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug-level logging")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}
}
