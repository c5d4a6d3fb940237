package interfaces

import (
	"context"

	"github.com/ZanzyTHEbar/dupfs/dupfs/filesystem/types"
	"github.com/ZanzyTHEbar/dupfs/dupfs/trees"
)

// ContentHasher computes content hashes over a prefix or the whole of a file
type ContentHasher interface {
	Hash(ctx context.Context, ref trees.FileRef, limit int64, full bool) (types.ContentHash, error)
}

// PathMatcher decides which paths are invisible to a scan
type PathMatcher interface {
	IgnoredFile(path string) bool
	IgnoredDir(path string) bool
}

// UnitObserver is notified as the scheduler starts and finishes units.
// Implementations must be safe for concurrent use.
type UnitObserver interface {
	UnitStarted(id int, kind string)
	UnitFinished(id int, err error)
}

// DuplicateFinder runs a complete duplicate scan
type DuplicateFinder interface {
	FindDuplicates(ctx context.Context) (*types.Report, error)
}
