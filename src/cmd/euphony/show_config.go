package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gitlab.com/simongoricar/euphony/src/internal/config"
)

// showConfigCmd dumps the resolved configuration in human-readable form.
var showConfigCmd = &cobra.Command{
	Use:   "show-config",
	Short: "Print the resolved configuration",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runShowConfig(); err != nil {
			fmt.Printf("%v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(showConfigCmd)
}

func runShowConfig() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	fmt.Printf("configuration (using %s)\n\n", cfg.ConfigurationFilePath)

	fmt.Println("- basics -")
	fmt.Printf("  base_library_path = %s\n", cfg.Essentials.BaseLibraryPath)
	fmt.Printf("  base_tools_path = %s\n\n", cfg.Essentials.BaseToolsPath)

	fmt.Println("- tools -")
	fmt.Printf("  ffmpeg.binary = %s\n", cfg.Tools.FFMPEG.Binary)
	fmt.Printf("  ffmpeg.output_extension = %s\n\n", cfg.Tools.FFMPEG.OutputExtension)

	fmt.Println("- validation -")
	fmt.Printf("  allowed_other_files_by_extension = %v\n", cfg.Validation.AllowedOtherFilesByExtension)
	fmt.Printf("  allowed_other_files_by_name = %v\n\n", cfg.Validation.AllowedOtherFilesByName)

	keys := cfg.SortedLibraryKeys()
	fmt.Printf("- libraries (%d available) -\n", len(keys))
	for _, key := range keys {
		lib := cfg.Libraries[key]
		fmt.Printf("  %s (%s):\n", lib.Name, key)
		fmt.Printf("    path = %s\n", lib.Path)
		fmt.Printf("    allowed_audio_files_by_extension = %v\n", lib.AllowedAudioFileExtensions)
		fmt.Printf("    allowed_data_files_by_extension = %v\n\n", lib.AllowedDataFileExtensions)
	}

	fmt.Println("- aggregated_library -")
	fmt.Printf("  path = %s\n", cfg.AggregatedLibrary.Path)
	fmt.Printf("  transcode_threads = %d\n", cfg.AggregatedLibrary.TranscodeThreads)

	return nil
}
