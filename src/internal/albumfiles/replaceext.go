package albumfiles

// ReplaceExt swaps the extension of an album-root-relative audio path for
// newExt. It is exported so that callers (the change classifier in
// particular) can derive a historical target path for a source file that no
// longer exists and therefore isn't part of any current FileList.
func ReplaceExt(relPath, newExt string) string {
	return replaceExt(relPath, newExt)
}
