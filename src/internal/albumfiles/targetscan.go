package albumfiles

import (
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// TargetScan is the result of scanning a target album directory in full:
// every regular file present, split into audio/data/unknown by extension.
// Unlike Scan, files matching neither extension set are kept (as Unknown)
// rather than dropped - the change classifier's excess-in-transcoded set
// needs to see them.
type TargetScan struct {
	Audio   []string
	Data    []string
	Unknown []string
}

// ScanTarget walks targetRoot exactly like Scan, but classifies by the
// *target-side* extension rules: a file is audio if its extension matches
// outputExt (the transcoder's output extension, not the source audio
// extensions - a transcoded file never keeps its source extension), data if
// its extension is in exts.Data (data files are copied verbatim, so they
// keep their source extension on the target side too), and unknown
// otherwise. Unknown files are kept rather than dropped, since
// excess_in_transcoded needs to see them.
func ScanTarget(targetRoot string, scanDepth int, outputExt string, exts ExtensionSets) (TargetScan, error) {
	var ts TargetScan
	outputExt = strings.ToLower(strings.TrimPrefix(outputExt, "."))

	err := walk(targetRoot, targetRoot, scanDepth, func(relPath string) error {
		if !utf8.ValidString(relPath) {
			return errors.Wrapf(ErrPathNotUTF8, "'%s'", relPath)
		}
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(relPath)), ".")
		switch {
		case ext != "" && ext == outputExt:
			ts.Audio = append(ts.Audio, relPath)
		case exts.classify(relPath) == "data":
			ts.Data = append(ts.Data, relPath)
		default:
			ts.Unknown = append(ts.Unknown, relPath)
		}
		return nil
	})
	if err != nil {
		return TargetScan{}, err
	}

	sort.Strings(ts.Audio)
	sort.Strings(ts.Data)
	sort.Strings(ts.Unknown)
	return ts, nil
}
