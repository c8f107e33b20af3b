// Package albumfiles enumerates the audio and data files of a single album
// directory and derives the source<->target relative/absolute path maps that
// the rest of euphony's core needs. No I/O happens anywhere else in euphony
// to re-derive this information - everything downstream consumes a FileList.
package albumfiles

import (
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// ExtensionSets holds the per-library configured extension classification.
// Keys are lowercase extensions without the leading dot (e.g. "flac").
type ExtensionSets struct {
	Audio map[string]struct{}
	Data  map[string]struct{}
}

// NewExtensionSets builds an ExtensionSets from plain string slices,
// lowercasing as it goes, and validates that no extension is claimed by
// both sides.
func NewExtensionSets(audio, data []string) (ExtensionSets, error) {
	sets := ExtensionSets{
		Audio: make(map[string]struct{}, len(audio)),
		Data:  make(map[string]struct{}, len(data)),
	}
	for _, ext := range audio {
		sets.Audio[strings.ToLower(ext)] = struct{}{}
	}
	for _, ext := range data {
		sets.Data[strings.ToLower(ext)] = struct{}{}
	}
	for ext := range sets.Audio {
		if _, collides := sets.Data[ext]; collides {
			return ExtensionSets{}, errors.Wrapf(ErrExtensionCollision, "extension '.%s'", ext)
		}
	}
	return sets, nil
}

// classify returns "audio", "data" or "" (untracked) for a file name, based
// on its lowercased extension.
func (s ExtensionSets) classify(name string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if ext == "" {
		return ""
	}
	if _, ok := s.Audio[ext]; ok {
		return "audio"
	}
	if _, ok := s.Data[ext]; ok {
		return "data"
	}
	return ""
}

// FileList is the result of scanning one album directory: the album-root-
// relative paths of its tracked audio and data files, in lexicographic
// order.
type FileList struct {
	AudioFiles []string
	DataFiles  []string
}

// Scan walks albumRoot up to scanDepth levels of subdirectories (0 means the
// album root only) and classifies every regular file it finds by extension.
// Files matching neither extension set are silently dropped. Filenames that
// aren't valid UTF-8 cause ErrPathNotUTF8.
func Scan(albumRoot string, scanDepth int, exts ExtensionSets) (FileList, error) {
	var fl FileList

	err := walk(albumRoot, albumRoot, scanDepth, func(relPath string) error {
		if !utf8.ValidString(relPath) {
			return errors.Wrapf(ErrPathNotUTF8, "'%s'", relPath)
		}
		switch exts.classify(relPath) {
		case "audio":
			fl.AudioFiles = append(fl.AudioFiles, relPath)
		case "data":
			fl.DataFiles = append(fl.DataFiles, relPath)
		}
		return nil
	})
	if err != nil {
		return FileList{}, err
	}

	sort.Strings(fl.AudioFiles)
	sort.Strings(fl.DataFiles)
	return fl, nil
}

// walk recursively visits files under dir (relative to root, the album
// root), calling visit with an album-root-relative path for every regular
// file. depth is the number of subdirectory levels still permitted below
// dir.
func walk(root, dir string, depth int, visit func(relPath string) error) error {
	entries, err := readDirSorted(dir)
	if err != nil {
		return errors.Wrapf(ErrScanFailed, "reading '%s': %v", dir, err)
	}

	for _, entry := range entries {
		full := filepath.Join(dir, entry.name)
		if entry.isDir {
			if depth <= 0 {
				continue
			}
			if err := walk(root, full, depth-1, visit); err != nil {
				return err
			}
			continue
		}
		if !entry.isRegular {
			continue
		}
		rel, err := filepath.Rel(root, full)
		if err != nil {
			return errors.Wrapf(ErrScanFailed, "relativizing '%s': %v", full, err)
		}
		if err := visit(rel); err != nil {
			return err
		}
	}
	return nil
}

// SourceToTargetRelative builds the relative source->target path map: audio
// files have their extension replaced with outputExt, data files are kept
// as-is.
func (fl FileList) SourceToTargetRelative(outputExt string) SortedFileMap[string] {
	m := NewSortedFileMap[string]()
	for _, rel := range fl.AudioFiles {
		m.Audio[rel] = replaceExt(rel, outputExt)
	}
	for _, rel := range fl.DataFiles {
		m.Data[rel] = rel
	}
	return m
}

// TargetToSourceRelative is the inverse of SourceToTargetRelative.
func (fl FileList) TargetToSourceRelative(outputExt string) SortedFileMap[string] {
	return Invert(fl.SourceToTargetRelative(outputExt))
}

// SourceToTargetAbsolute is SourceToTargetRelative joined with the album's
// source and target root directories.
func (fl FileList) SourceToTargetAbsolute(sourceRoot, targetRoot, outputExt string) SortedFileMap[string] {
	rel := fl.SourceToTargetRelative(outputExt)
	m := NewSortedFileMap[string]()
	for k, v := range rel.Audio {
		m.Audio[filepath.Join(sourceRoot, k)] = filepath.Join(targetRoot, v)
	}
	for k, v := range rel.Data {
		m.Data[filepath.Join(sourceRoot, k)] = filepath.Join(targetRoot, v)
	}
	return m
}

func replaceExt(relPath, newExt string) string {
	ext := filepath.Ext(relPath)
	base := strings.TrimSuffix(relPath, ext)
	if !strings.HasPrefix(newExt, ".") {
		newExt = "." + newExt
	}
	return base + newExt
}
