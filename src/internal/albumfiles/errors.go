package albumfiles

import "errors"

// ErrPathNotUTF8 is returned when a filename cannot be represented in the
// agreed string form.
var ErrPathNotUTF8 = errors.New("path is not valid utf-8")

// ErrScanFailed wraps an I/O failure while walking an album directory.
var ErrScanFailed = errors.New("album scan failed")

// ErrExtensionCollision is returned when the library configuration lists the
// same (lowercased) extension in both the audio and the data extension set.
// This is a library-configuration error and must be caught before any
// change detection runs.
var ErrExtensionCollision = errors.New("extension is classified as both audio and data")
