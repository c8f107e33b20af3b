package meta

import "errors"

// ErrMetadataUnavailable is returned when a path cannot be stat'd or does
// not name a regular file.
var ErrMetadataUnavailable = errors.New("file metadata unavailable")

// ErrTimeBeforeEpoch is returned when a file's mtime or ctime predates the
// Unix epoch.
var ErrTimeBeforeEpoch = errors.New("file timestamp is before the epoch")
