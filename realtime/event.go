package realtime

import (
	"sort"

	"github.com/comalice/pumpchart/internal/config"
)

// PatchWithMeta adds sequencing metadata for deterministic ordering.
type PatchWithMeta struct {
	Patch       config.Patch
	SequenceNum uint64
}

// sortPatches orders patches by tick, then priority, then submission.
func sortPatches(patches []PatchWithMeta) {
	sort.SliceStable(patches, func(i, j int) bool {
		a, b := patches[i], patches[j]
		if a.Patch.At != b.Patch.At {
			return a.Patch.At < b.Patch.At
		}
		if a.Patch.Priority != b.Patch.Priority {
			return a.Patch.Priority > b.Patch.Priority
		}
		return a.SequenceNum < b.SequenceNum
	})
}
