package albumfiles

import (
	"os"
	"sort"
)

type dirEntry struct {
	name      string
	isDir     bool
	isRegular bool
}

// readDirSorted lists dir's immediate children in a deterministic order, so
// that repeated scans of an unchanged album always walk files in the same
// sequence.
func readDirSorted(dir string) ([]dirEntry, error) {
	raw, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	entries := make([]dirEntry, 0, len(raw))
	for _, e := range raw {
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		entries = append(entries, dirEntry{
			name:      e.Name(),
			isDir:     e.IsDir(),
			isRegular: info.Mode().IsRegular(),
		})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })
	return entries, nil
}

// ListSubdirectories returns the names of dir's immediate subdirectories, in
// sorted order. Used by the view graph to enumerate artist and album
// directories - a plain, non-recursive listing, unlike Scan/ScanTarget.
func ListSubdirectories(dir string) ([]string, error) {
	entries, err := readDirSorted(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.isDir {
			names = append(names, e.name)
		}
	}
	return names, nil
}
