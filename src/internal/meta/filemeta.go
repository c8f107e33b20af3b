// Package meta implements FileMeta, the per-file metadata snapshot that
// drives euphony's change detection: size plus tolerant mtime/ctime
// comparison. No content hashing and no tag reading happen here by design -
// this is purely a stat-based fingerprint.
package meta

import (
	"os"
	"syscall"
	"time"

	"github.com/pkg/errors"
)

// toleranceSeconds is the fixed tolerance used by Matches for comparing
// mtime/ctime. It is intentionally not configurable in this revision - see
// the "Tolerant time comparison" design note.
const toleranceSeconds = 0.1

// FileMeta captures the three observable attributes euphony uses to decide
// whether a file has changed: its size and its two timestamps. It is created
// once per scan of a real file and is never mutated afterwards.
type FileMeta struct {
	SizeBytes uint64  `json:"size_bytes"`
	MTime     float64 `json:"time_modified"`
	CTime     float64 `json:"time_created"`
}

// FromPath reads file metadata directly from disk. It fails with
// ErrMetadataUnavailable if path does not name a regular file or if the
// underlying stat call fails, and with ErrTimeBeforeEpoch if either
// timestamp predates the Unix epoch.
func FromPath(path string) (FileMeta, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileMeta{}, errors.Wrapf(ErrMetadataUnavailable, "cannot stat '%s': %v", path, err)
	}
	if !info.Mode().IsRegular() {
		return FileMeta{}, errors.Wrapf(ErrMetadataUnavailable, "'%s' is not a regular file", path)
	}

	mtime := info.ModTime()
	ctime := changeTime(info)

	if mtime.Before(time.Unix(0, 0)) || ctime.Before(time.Unix(0, 0)) {
		return FileMeta{}, errors.Wrapf(ErrTimeBeforeEpoch, "'%s' has a timestamp before the epoch", path)
	}

	return FileMeta{
		SizeBytes: uint64(info.Size()),
		MTime:     float64(mtime.UnixNano()) / 1e9,
		CTime:     float64(ctime.UnixNano()) / 1e9,
	}, nil
}

// changeTime extracts the inode change time (ctime) from the platform-
// specific stat structure. os.FileInfo does not expose ctime directly, so we
// reach into syscall.Stat_t for it directly.
func changeTime(info os.FileInfo) time.Time {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return info.ModTime()
	}
	return time.Unix(stat.Ctim.Sec, stat.Ctim.Nsec)
}

// Matches implements tolerant equality: sizes must be bit-equal, and both
// timestamps must agree within a strict "<" tolerance of 0.1s. Never use
// "<=" here - a file saved and re-read within the same tick must still
// compare equal, and loosening the bound to "<=" would let a boundary-exact
// difference slip through as "unchanged".
func Matches(a, b FileMeta) bool {
	if a.SizeBytes != b.SizeBytes {
		return false
	}
	return absDiff(a.MTime, b.MTime) < toleranceSeconds && absDiff(a.CTime, b.CTime) < toleranceSeconds
}

func absDiff(a, b float64) float64 {
	d := a - b
	if d < 0 {
		return -d
	}
	return d
}
