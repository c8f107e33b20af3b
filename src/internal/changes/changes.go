// Package changes implements the change classifier: given a saved snapshot
// pair and fresh filesystem state for one album, it produces the five
// disjoint change sets that drive the job planner.
package changes

import (
	"path/filepath"
	"sort"

	"gitlab.com/simongoricar/euphony/src/internal/albumfiles"
	"gitlab.com/simongoricar/euphony/src/internal/meta"
	"gitlab.com/simongoricar/euphony/src/internal/snapshot"
)

// PathPair is an (absolute source path, absolute target path) pair, used by
// removed_in_source where both sides of a deletion matter for reporting.
type PathPair struct {
	Source string
	Target string
}

// ChangeSet is added_in_source / changed_in_source / missing_in_transcoded:
// plain absolute-path lists, split audio/data, each lexicographically
// sorted.
type ChangeSet struct {
	Audio []string
	Data  []string
}

// PairSet is removed_in_source: source/target path pairs, sorted by source
// path.
type PairSet struct {
	Audio []PathPair
	Data  []PathPair
}

// ExcessSet is excess_in_transcoded: absolute target paths with no source
// counterpart, split audio/data/unknown.
type ExcessSet struct {
	Audio   []string
	Data    []string
	Unknown []string
}

// Changes holds the five disjoint sets produced by Classify.
type Changes struct {
	AddedInSource       ChangeSet
	ChangedInSource     ChangeSet
	RemovedInSource     PairSet
	MissingInTranscoded ChangeSet
	ExcessInTranscoded  ExcessSet
}

// HasChanges is the union-nonempty predicate used by the orchestrator to
// decide whether an album needs any work at all.
func (c Changes) HasChanges() bool {
	return len(c.AddedInSource.Audio) > 0 || len(c.AddedInSource.Data) > 0 ||
		len(c.ChangedInSource.Audio) > 0 || len(c.ChangedInSource.Data) > 0 ||
		len(c.RemovedInSource.Audio) > 0 || len(c.RemovedInSource.Data) > 0 ||
		len(c.MissingInTranscoded.Audio) > 0 || len(c.MissingInTranscoded.Data) > 0 ||
		len(c.ExcessInTranscoded.Audio) > 0 || len(c.ExcessInTranscoded.Data) > 0 ||
		len(c.ExcessInTranscoded.Unknown) > 0
}

// Counts returns (audio_change_count, data_change_count), the totals the
// orchestrator uses to pre-size queues and drive the progress bar. Unknown
// excess files count toward the data total, since they are reported and
// deleted alongside data jobs (see internal/planner).
func (c Changes) Counts() (audioCount, dataCount uint32) {
	audioCount = uint32(len(c.AddedInSource.Audio) + len(c.ChangedInSource.Audio) +
		len(c.RemovedInSource.Audio) + len(c.MissingInTranscoded.Audio) + len(c.ExcessInTranscoded.Audio))
	dataCount = uint32(len(c.AddedInSource.Data) + len(c.ChangedInSource.Data) +
		len(c.RemovedInSource.Data) + len(c.MissingInTranscoded.Data) +
		len(c.ExcessInTranscoded.Data) + len(c.ExcessInTranscoded.Unknown))
	return audioCount, dataCount
}

// Input bundles everything Classify needs for one album. The saved snapshots
// may be nil, equivalent to an empty prior state. FreshTarget is a full scan
// of the target directory
// (not limited to paths the current source file list expects), since
// excess_in_transcoded must be able to see orphaned and unknown-extension
// files that the source side no longer accounts for at all.
type Input struct {
	SavedSource *snapshot.SourceAlbumSnapshot
	FreshSource snapshot.AlbumFileState
	SavedTarget *snapshot.TranscodedAlbumSnapshot
	FreshTarget albumfiles.TargetScan
	FileList    albumfiles.FileList
	SourceRoot  string
	TargetRoot  string
	OutputExt   string
}

// Classify implements the set-algebra change-detection algorithm. Audio and
// data are processed independently with identical rules; a file
// present in both on the same side is a library-configuration error that
// must already have been caught at list construction time (ErrExtensionCollision).
func Classify(in Input) Changes {
	sourceToTarget := in.FileList.SourceToTargetRelative(in.OutputExt)

	var savedSourceAudio, savedSourceData map[string]meta.FileMeta
	if in.SavedSource != nil {
		savedSourceAudio = in.SavedSource.TrackedFiles.Audio
		savedSourceData = in.SavedSource.TrackedFiles.Data
	}

	audio := classifySide(sideInput{
		freshSource:         in.FreshSource.Audio,
		savedSource:         savedSourceAudio,
		expectedTargetOfSrc: sourceToTarget.Audio,
		deriveHistoricTgt:   func(rel string) string { return albumfiles.ReplaceExt(rel, in.OutputExt) },
		freshTargetKeys:     toSet(in.FreshTarget.Audio),
		sourceRoot:          in.SourceRoot,
		targetRoot:          in.TargetRoot,
	})
	data := classifySide(sideInput{
		freshSource:         in.FreshSource.Data,
		savedSource:         savedSourceData,
		expectedTargetOfSrc: sourceToTarget.Data,
		deriveHistoricTgt:   func(rel string) string { return rel },
		freshTargetKeys:     toSet(in.FreshTarget.Data),
		sourceRoot:          in.SourceRoot,
		targetRoot:          in.TargetRoot,
	})

	var savedTargetAudio, savedTargetData map[string]meta.FileMeta
	if in.SavedTarget != nil {
		savedTargetAudio = in.SavedTarget.TranscodedFiles.Audio
		savedTargetData = in.SavedTarget.TranscodedFiles.Data
	}

	excessAudio := excessSide(in.FreshTarget.Audio, savedTargetAudio, sourceToTarget.Audio, in.TargetRoot)
	excessData := excessSide(in.FreshTarget.Data, savedTargetData, sourceToTarget.Data, in.TargetRoot)
	excessUnknown := absPaths(in.FreshTarget.Unknown, in.TargetRoot)

	return Changes{
		AddedInSource:       ChangeSet{Audio: audio.added, Data: data.added},
		ChangedInSource:     ChangeSet{Audio: audio.changed, Data: data.changed},
		RemovedInSource:     PairSet{Audio: audio.removed, Data: data.removed},
		MissingInTranscoded: ChangeSet{Audio: audio.missing, Data: data.missing},
		ExcessInTranscoded:  ExcessSet{Audio: excessAudio, Data: excessData, Unknown: excessUnknown},
	}
}

type sideInput struct {
	freshSource         map[string]meta.FileMeta
	savedSource         map[string]meta.FileMeta
	expectedTargetOfSrc map[string]string // current source rel -> current target rel, this side only
	deriveHistoricTgt   func(sourceRel string) string
	freshTargetKeys     map[string]struct{} // every target-side file of this kind currently on disk
	sourceRoot          string
	targetRoot          string
}

type sideResult struct {
	added   []string
	changed []string
	removed []PathPair
	missing []string
}

func classifySide(in sideInput) sideResult {
	var result sideResult

	for rel := range in.freshSource {
		if _, existedBefore := in.savedSource[rel]; !existedBefore {
			result.added = append(result.added, filepath.Join(in.sourceRoot, rel))
			continue
		}
		if !meta.Matches(in.savedSource[rel], in.freshSource[rel]) {
			result.changed = append(result.changed, filepath.Join(in.sourceRoot, rel))
			continue
		}
		// unchanged: check whether its target survived.
		tgtRel, expected := in.expectedTargetOfSrc[rel]
		if !expected {
			continue
		}
		if _, stillPresent := in.freshTargetKeys[tgtRel]; !stillPresent {
			result.missing = append(result.missing, filepath.Join(in.sourceRoot, rel))
		}
	}

	for rel := range in.savedSource {
		if _, stillFresh := in.freshSource[rel]; stillFresh {
			continue
		}
		tgtRel := in.deriveHistoricTgt(rel)
		if _, exists := in.freshTargetKeys[tgtRel]; !exists {
			continue
		}
		result.removed = append(result.removed, PathPair{
			Source: filepath.Join(in.sourceRoot, rel),
			Target: filepath.Join(in.targetRoot, tgtRel),
		})
	}

	sort.Strings(result.added)
	sort.Strings(result.changed)
	sort.Strings(result.missing)
	sort.Slice(result.removed, func(i, j int) bool { return result.removed[i].Source < result.removed[j].Source })
	return result
}

func excessSide(freshKeys []string, savedKeys map[string]meta.FileMeta, expectedTargetOfSrc map[string]string, targetRoot string) []string {
	expected := make(map[string]struct{}, len(expectedTargetOfSrc))
	for _, tgtRel := range expectedTargetOfSrc {
		expected[tgtRel] = struct{}{}
	}

	var excess []string
	for _, rel := range freshKeys {
		if _, saved := savedKeys[rel]; saved {
			continue
		}
		if _, isExpected := expected[rel]; isExpected {
			continue
		}
		excess = append(excess, filepath.Join(targetRoot, rel))
	}
	sort.Strings(excess)
	return excess
}

func absPaths(rels []string, root string) []string {
	if len(rels) == 0 {
		return nil
	}
	out := make([]string, len(rels))
	for i, rel := range rels {
		out[i] = filepath.Join(root, rel)
	}
	sort.Strings(out)
	return out
}

func toSet(rels []string) map[string]struct{} {
	set := make(map[string]struct{}, len(rels))
	for _, rel := range rels {
		set[rel] = struct{}{}
	}
	return set
}
