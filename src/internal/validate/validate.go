// Package validate implements the naming-rule checks backing the `validate`
// CLI command: read-only checks over a library's directory structure, never
// a mutation of it.
package validate

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"gitlab.com/simongoricar/euphony/src/internal/config"
	"gitlab.com/simongoricar/euphony/src/internal/fsutil"
)

// LibraryReport is the outcome of validating one configured library.
type LibraryReport struct {
	LibraryName string
	Issues      []string
}

// IsValid reports whether the library had no issues.
func (r LibraryReport) IsValid() bool {
	return len(r.Issues) == 0
}

// Report is the outcome of validating every configured library plus the
// cross-library collision check.
type Report struct {
	Libraries  []LibraryReport
	Collisions []Collision
}

// IsValid reports whether every library validated cleanly and no
// cross-library album collision was found.
func (r Report) IsValid() bool {
	for _, lib := range r.Libraries {
		if !lib.IsValid() {
			return false
		}
	}
	return len(r.Collisions) == 0
}

// All validates every configured library's naming rules, then checks for
// artist/album collisions across all of them: first each library is checked
// for unusual or forbidden files, then the results are cross-checked for
// any album that collides between two libraries.
func All(cfg config.Config) (Report, error) {
	var report Report

	checker := newCollisionChecker()

	for _, key := range cfg.SortedLibraryKeys() {
		lib := cfg.Libraries[key]

		libReport, err := Library(lib, cfg.Validation)
		if err != nil {
			return Report{}, errors.Wrapf(err, "validating library '%s'", lib.Name)
		}
		report.Libraries = append(report.Libraries, libReport)

		if err := checker.scanLibrary(lib); err != nil {
			return Report{}, errors.Wrapf(err, "scanning library '%s' for collisions", lib.Name)
		}
	}

	report.Collisions = sortedCollisions(checker.collisions)
	return report, nil
}

// Library validates one library's directory structure: no audio files
// directly in the library root or an artist directory, and inside an album
// directory only tracked audio/data files or explicitly allowed "other"
// files/extensions - everything else is reported as an issue.
func Library(lib config.Library, rules config.Validation) (LibraryReport, error) {
	report := LibraryReport{LibraryName: lib.Name}

	rootFiles, artistDirs, err := fsutil.ListDirContents(lib.Path)
	if err != nil {
		return LibraryReport{}, err
	}

	for _, file := range rootFiles {
		if isAudioExtension(file, lib.AllowedAudioFileExtensions) {
			report.Issues = append(report.Issues, "unexpected audio file in library root: "+file)
		}
	}

	for _, artistDir := range artistDirs {
		if isIgnoredDirectory(filepath.Base(artistDir), lib.IgnoredDirectoriesInBase) {
			continue
		}

		artistFiles, albumDirs, err := fsutil.ListDirContents(artistDir)
		if err != nil {
			return LibraryReport{}, err
		}

		for _, file := range artistFiles {
			if isAudioExtension(file, lib.AllowedAudioFileExtensions) {
				report.Issues = append(report.Issues, "unexpected audio file in artist directory: "+file)
			}
		}

		for _, albumDir := range albumDirs {
			albumFiles, _, err := fsutil.ListDirContents(albumDir)
			if err != nil {
				return LibraryReport{}, err
			}

			for _, file := range albumFiles {
				report.Issues = append(report.Issues, validateAlbumFile(file, lib, rules)...)
			}
		}
	}

	return report, nil
}

// validateAlbumFile returns zero or one issue strings for a single file
// inside an album directory: a tracked audio extension, a tracked data
// extension, or an allowed "other" extension/name is fine, anything left
// over is unexpected.
func validateAlbumFile(file string, lib config.Library, rules config.Validation) []string {
	ext := extensionOf(file)
	name := filepath.Base(file)

	isTrackedAudio := contains(lib.AllowedAudioFileExtensions, ext)
	isTrackedData := contains(lib.AllowedDataFileExtensions, ext)
	isAllowedOther := contains(rules.AllowedOtherFilesByExtension, ext) || contains(rules.AllowedOtherFilesByName, name)

	if isTrackedAudio || isTrackedData || isAllowedOther {
		return nil
	}
	return []string{"unexpected file in album directory: " + file}
}

func isAudioExtension(file string, audioExtensions []string) bool {
	return contains(audioExtensions, extensionOf(file))
}

func isIgnoredDirectory(name string, ignored []string) bool {
	return contains(ignored, name)
}

func extensionOf(file string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(file), "."))
}

func contains(haystack []string, needle string) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}
