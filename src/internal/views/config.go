package views

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"gitlab.com/simongoricar/euphony/src/internal/albumfiles"
)

// albumOverrideFileName is the optional per-album sidecar a user may drop
// into an album source directory to influence its scan depth.
const albumOverrideFileName = ".album.override.euphony"

// AlbumScanConfiguration is the [scan] table of the per-album override file.
type AlbumScanConfiguration struct {
	// Depth is how many levels of subdirectories to scan below the album
	// directory itself. Zero (the default) scans only the album directory.
	Depth uint16 `toml:"depth"`
}

// AlbumConfiguration is the full per-album override file shape. Any field
// left unset in the TOML keeps its zero value, which is always the correct
// default.
type AlbumConfiguration struct {
	Scan AlbumScanConfiguration `toml:"scan"`
}

// loadAlbumConfiguration reads albumOverrideFileName from albumDirectory, if
// present, returning the zero-value AlbumConfiguration (depth 0) otherwise.
func loadAlbumConfiguration(albumDirectory string) (AlbumConfiguration, error) {
	path := filepath.Join(albumDirectory, albumOverrideFileName)

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return AlbumConfiguration{}, nil
		}
		return AlbumConfiguration{}, errors.Wrapf(err, "reading '%s'", path)
	}

	var cfg AlbumConfiguration
	if _, err := toml.Decode(string(raw), &cfg); err != nil {
		return AlbumConfiguration{}, errors.Wrapf(err, "parsing '%s'", path)
	}
	return cfg, nil
}

// LibraryConfig is everything a Library needs to know about one configured
// source library, built and handed to NewLibrary by internal/config, one per
// [libraries.<key>] entry.
type LibraryConfig struct {
	// Name identifies the library in logs and CLI output.
	Name string
	// SourceRoot is the library's root directory in the original,
	// untranscoded collection.
	SourceRoot string
	// TargetRoot is the matching root directory inside the transcoded
	// (aggregated) library.
	TargetRoot string
	// IgnoredDirectoryNames lists artist-directory names to skip entirely
	// when enumerating the library root (e.g. stray non-music folders).
	IgnoredDirectoryNames []string
	// Extensions classifies files found under an album directory as audio
	// or data.
	Extensions albumfiles.ExtensionSets
	// OutputExtension is the transcoder's output extension, used to derive
	// expected target-side audio paths.
	OutputExtension string
}

func (c LibraryConfig) isIgnored(directoryName string) bool {
	for _, ignored := range c.IgnoredDirectoryNames {
		if ignored == directoryName {
			return true
		}
	}
	return false
}
