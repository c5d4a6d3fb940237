package scanner

import (
	"github.com/ZanzyTHEbar/dupfs/dupfs/filesystem/types"
)

// Merge combines unit results into one mapping. For every hash the merged
// set is the union of the unit sets, so the result does not depend on the
// order in which units completed. Inputs are not modified.
func Merge(results ...UnitResult) types.DuplicateMap {
	maps := make([]types.DuplicateMap, 0, len(results))
	for _, result := range results {
		maps = append(maps, result.Hashes)
	}
	return MergeMaps(maps...)
}

// MergeMaps is Merge over plain mappings.
func MergeMaps(maps ...types.DuplicateMap) types.DuplicateMap {
	merged := make(types.DuplicateMap)
	for _, m := range maps {
		for hash, set := range m {
			if target, ok := merged[hash]; ok {
				target.Union(set)
				continue
			}
			merged[hash] = set.Clone()
		}
	}
	return merged
}

// FilterDuplicates keeps only the hashes observed for two or more files.
func FilterDuplicates(m types.DuplicateMap) types.DuplicateMap {
	filtered := make(types.DuplicateMap)
	for hash, set := range m {
		if set.Len() >= 2 {
			filtered[hash] = set
		}
	}
	return filtered
}

// CollectSkipped concatenates the skip records of every unit.
func CollectSkipped(results ...UnitResult) []types.SkipRecord {
	var skipped []types.SkipRecord
	for _, result := range results {
		skipped = append(skipped, result.Skipped...)
	}
	return skipped
}
