// Package config loads and validates the euphony TOML configuration file:
// tool paths, per-library extension/ignore rules, the transcoder contract,
// and worker count.
package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"gitlab.com/simongoricar/euphony/src/internal/albumfiles"
	"gitlab.com/simongoricar/euphony/src/internal/jobs"
	"gitlab.com/simongoricar/euphony/src/internal/orchestrator"
	"gitlab.com/simongoricar/euphony/src/internal/views"
)

// Essentials holds the reusable base paths other path-bearing fields are
// allowed to reference via the {LIBRARY_BASE}/{TOOLS_BASE} placeholders.
type Essentials struct {
	BaseLibraryPath string `toml:"base_library_path"`
	BaseToolsPath   string `toml:"base_tools_path"`
}

// FFMPEGTools is the external transcoder contract, loaded as TOML.
// OutputExtension lets the contract stay binary-agnostic instead of
// assuming a fixed output format.
type FFMPEGTools struct {
	Binary          string   `toml:"binary"`
	ArgsTemplate    []string `toml:"args_template"`
	OutputExtension string   `toml:"output_extension"`
}

// Tools groups every external tool euphony shells out to. Only one
// transcoder is supported per configuration file.
type Tools struct {
	FFMPEG FFMPEGTools `toml:"ffmpeg"`
}

// Validation configures the naming-rule checks internal/validate performs;
// it never mutates anything.
type Validation struct {
	AllowedOtherFilesByExtension []string `toml:"allowed_other_files_by_extension"`
	AllowedOtherFilesByName      []string `toml:"allowed_other_files_by_name"`
}

// Library is one entry of the configuration's `[libraries.<key>]` table.
// AllowedDataFileExtensions gives each library its own data-extension set
// alongside its audio-extension set, since every tracked file is classified
// as either audio or data up front (see DESIGN.md's internal/config entry).
type Library struct {
	Name                       string   `toml:"name"`
	Path                       string   `toml:"path"`
	AllowedAudioFileExtensions []string `toml:"allowed_audio_files_by_extension"`
	AllowedDataFileExtensions  []string `toml:"allowed_data_files_by_extension"`
	IgnoredDirectoriesInBase   []string `toml:"ignored_directories_in_base_dir"`
}

// AggregatedLibrary is the single transcoded-output tree every configured
// library's albums are mirrored into, plus the worker count, mirroring
// ConfigAggregated.
type AggregatedLibrary struct {
	Path             string `toml:"path"`
	TranscodeThreads uint16 `toml:"transcode_threads"`
}

// Config is the root of the TOML configuration file.
type Config struct {
	Essentials        Essentials         `toml:"essentials"`
	Tools              Tools              `toml:"tools"`
	Validation         Validation         `toml:"validation"`
	Libraries          map[string]Library `toml:"libraries"`
	AggregatedLibrary  AggregatedLibrary  `toml:"aggregated_library"`

	// ConfigurationFilePath is the canonicalized path the configuration was
	// loaded from, not part of the TOML document itself (mirrors the
	// original's #[serde(skip)] configuration_file_path field).
	ConfigurationFilePath string `toml:"-"`
}

const (
	libraryBasePlaceholder = "{LIBRARY_BASE}"
	toolsBasePlaceholder   = "{TOOLS_BASE}"
)

// Load reads and parses the TOML configuration file at path, resolves every
// {LIBRARY_BASE}/{TOOLS_BASE} placeholder against Essentials, and lowercases
// every configured extension.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "reading configuration file '%s'", path)
	}

	var cfg Config
	if _, err := toml.Decode(string(raw), &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "parsing configuration file '%s'", path)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "resolving absolute path of '%s'", path)
	}
	cfg.ConfigurationFilePath = absPath

	cfg.resolvePlaceholders()
	cfg.lowercaseExtensions()

	return cfg, nil
}

func (c *Config) resolvePlaceholders() {
	c.Tools.FFMPEG.Binary = strings.ReplaceAll(c.Tools.FFMPEG.Binary, toolsBasePlaceholder, c.Essentials.BaseToolsPath)
	c.AggregatedLibrary.Path = strings.ReplaceAll(c.AggregatedLibrary.Path, libraryBasePlaceholder, c.Essentials.BaseLibraryPath)

	for key, lib := range c.Libraries {
		lib.Path = strings.ReplaceAll(lib.Path, libraryBasePlaceholder, c.Essentials.BaseLibraryPath)
		c.Libraries[key] = lib
	}
}

func (c *Config) lowercaseExtensions() {
	lowerAll := func(exts []string) {
		for i, ext := range exts {
			exts[i] = strings.ToLower(ext)
		}
	}

	lowerAll(c.Validation.AllowedOtherFilesByExtension)
	for _, lib := range c.Libraries {
		lowerAll(lib.AllowedAudioFileExtensions)
		lowerAll(lib.AllowedDataFileExtensions)
	}
}

// Validate checks the configuration for completeness and internal
// consistency: directory existence for every path-bearing field, plus
// Library.validate for each configured library.
func (c Config) Validate() error {
	if err := validateDir(c.Essentials.BaseLibraryPath, "essentials.base_library_path"); err != nil {
		return err
	}
	if err := validateDir(c.Essentials.BaseToolsPath, "essentials.base_tools_path"); err != nil {
		return err
	}

	if c.Tools.FFMPEG.Binary == "" {
		return errors.New("tools.ffmpeg.binary must not be empty")
	}
	if err := validateFile(c.Tools.FFMPEG.Binary, "tools.ffmpeg.binary"); err != nil {
		return err
	}
	if c.Tools.FFMPEG.OutputExtension == "" {
		return errors.New("tools.ffmpeg.output_extension must not be empty")
	}

	if len(c.Libraries) == 0 {
		return errors.New("at least one library must be configured")
	}
	for key, lib := range c.Libraries {
		if err := lib.validate(key); err != nil {
			return err
		}
	}

	if c.AggregatedLibrary.TranscodeThreads == 0 {
		return errors.New("aggregated_library.transcode_threads must be at least 1")
	}
	if err := validateDir(c.AggregatedLibrary.Path, "aggregated_library.path"); err != nil {
		return err
	}

	return nil
}

func (l Library) validate(key string) error {
	if l.Name == "" {
		return errors.Errorf("library '%s' has no name", key)
	}
	if err := validateDir(l.Path, "libraries."+key+".path"); err != nil {
		return err
	}
	if len(l.AllowedAudioFileExtensions) == 0 {
		return errors.Errorf("library '%s' has no allowed_audio_files_by_extension", key)
	}
	return nil
}

func validateDir(dir, name string) error {
	if dir == "" {
		return errors.Errorf("%s must not be empty", name)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return errors.Wrapf(err, "%s '%s' could not be read", name, dir)
	}
	if !info.IsDir() {
		return errors.Errorf("%s '%s' is not a directory", name, dir)
	}
	return nil
}

func validateFile(path, name string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.Wrapf(err, "%s '%s' could not be read", name, path)
	}
	if info.IsDir() {
		return errors.Errorf("%s '%s' is a directory, not a file", name, path)
	}
	return nil
}

// SortedLibraryKeys returns the configured library keys in sorted order,
// used everywhere a deterministic iteration order over c.Libraries matters
// (show-config, list-libraries, building orchestrator.LibraryRuntime).
func (c Config) SortedLibraryKeys() []string {
	keys := make([]string, 0, len(c.Libraries))
	for k := range c.Libraries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ViewsLibraryConfig translates one configured library into the
// views.LibraryConfig the view graph needs. aggregatedLibraryPath and
// outputExtension come from the rest of the configuration (every library
// mirrors into its own named subdirectory of the single aggregated/
// transcoded tree).
func (l Library) ViewsLibraryConfig(aggregatedLibraryPath, outputExtension string) (views.LibraryConfig, error) {
	extSets, err := albumfiles.NewExtensionSets(l.AllowedAudioFileExtensions, l.AllowedDataFileExtensions)
	if err != nil {
		return views.LibraryConfig{}, errors.Wrapf(err, "library '%s'", l.Name)
	}

	return views.LibraryConfig{
		Name:                  l.Name,
		SourceRoot:            l.Path,
		TargetRoot:            filepath.Join(aggregatedLibraryPath, l.Name),
		IgnoredDirectoryNames: l.IgnoredDirectoriesInBase,
		Extensions:            extSets,
		OutputExtension:       outputExtension,
	}, nil
}

// TranscoderConfig translates the configured ffmpeg tool into the
// jobs.TranscoderConfig every TranscodeAudioJob needs.
func (c Config) TranscoderConfig() jobs.TranscoderConfig {
	return jobs.TranscoderConfig{
		BinaryPath:      c.Tools.FFMPEG.Binary,
		ArgsTemplate:    c.Tools.FFMPEG.ArgsTemplate,
		OutputExtension: c.Tools.FFMPEG.OutputExtension,
	}
}

// WorkerCount returns the configured concurrency limit for the worker pool.
func (c Config) WorkerCount() int {
	return int(c.AggregatedLibrary.TranscodeThreads)
}

// LibraryRuntimes builds one orchestrator.LibraryRuntime per configured
// library, in sorted key order, ready to pass straight into
// orchestrator.Orchestrator.Run.
func (c Config) LibraryRuntimes() ([]orchestrator.LibraryRuntime, error) {
	transcoder := c.TranscoderConfig()

	runtimes := make([]orchestrator.LibraryRuntime, 0, len(c.Libraries))
	for _, key := range c.SortedLibraryKeys() {
		lib := c.Libraries[key]
		libCfg, err := lib.ViewsLibraryConfig(c.AggregatedLibrary.Path, c.Tools.FFMPEG.OutputExtension)
		if err != nil {
			return nil, err
		}

		runtimes = append(runtimes, orchestrator.LibraryRuntime{
			Library:    views.NewLibrary(libCfg),
			Transcoder: transcoder,
		})
	}
	return runtimes, nil
}
