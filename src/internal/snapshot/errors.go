package snapshot

import "errors"

// ErrNoPriorState is the sentinel every "no usable prior snapshot" case
// wraps: a missing sidecar, a schema version mismatch, or a sidecar that
// exists but fails to parse, which must be treated exactly like a missing
// one rather than as a fatal error.
var ErrNoPriorState = errors.New("no prior album snapshot")

// ErrIO is returned for filesystem failures other than "file does not
// exist" - e.g. permission errors while reading an existing sidecar.
var ErrIO = errors.New("snapshot I/O error")

// ErrNotRegularFile is returned by Save when the sidecar path exists but
// names something other than a regular file.
var ErrNotRegularFile = errors.New("snapshot path exists but is not a regular file")

// ErrMissingSourceFile is returned by GenerateSource when one of the file
// list's paths does not exist on disk - on the source side, every tracked
// file is required to exist.
var ErrMissingSourceFile = errors.New("source file referenced by album listing is missing")
