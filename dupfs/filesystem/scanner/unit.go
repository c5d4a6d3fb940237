package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ZanzyTHEbar/dupfs/dupfs/filesystem/common"
	"github.com/ZanzyTHEbar/dupfs/dupfs/filesystem/interfaces"
	"github.com/ZanzyTHEbar/dupfs/dupfs/filesystem/options"
	"github.com/ZanzyTHEbar/dupfs/dupfs/filesystem/types"
	"github.com/ZanzyTHEbar/dupfs/dupfs/trees"

	"github.com/rs/zerolog"
)

// UnitKind tells the two kinds of scan unit apart
type UnitKind string

const (
	// KindDirectory hashes everything under one subdirectory of the root
	KindDirectory UnitKind = "directory"
	// KindFileBatch hashes a contiguous batch of the root's own files
	KindFileBatch UnitKind = "file_batch"
)

// Unit is one independently schedulable piece of a scan.
type Unit struct {
	ID    int
	Kind  UnitKind
	Dir   string   // KindDirectory only
	Files []string // KindFileBatch only
}

// NewDirectoryUnit creates a unit that walks dir recursively.
func NewDirectoryUnit(id int, dir string) Unit {
	return Unit{ID: id, Kind: KindDirectory, Dir: dir}
}

// NewFileBatchUnit creates a unit over a fixed list of files.
func NewFileBatchUnit(id int, files []string) Unit {
	return Unit{ID: id, Kind: KindFileBatch, Files: files}
}

// Target describes the unit for logs and errors.
func (u Unit) Target() string {
	if u.Kind == KindDirectory {
		return u.Dir
	}
	if len(u.Files) == 0 {
		return "(empty batch)"
	}
	return filepath.Dir(u.Files[0])
}

// UnitResult is the local hash mapping a unit produced. It is not filtered
// for duplicates and belongs to the unit until returned.
type UnitResult struct {
	UnitID  int
	Kind    UnitKind
	Hashes  types.DuplicateMap
	Files   int
	Bytes   int64
	Skipped []types.SkipRecord
}

// unitEnv is the read-only state shared by every unit of a scan.
type unitEnv struct {
	hasher      interfaces.ContentHasher
	matcher     interfaces.PathMatcher
	prefixLimit int64
	policy      options.ErrorPolicy
	metrics     *common.ScanMetrics
	logger      zerolog.Logger
}

// unitRun holds the mutable state of one unit execution.
type unitRun struct {
	env    *unitEnv
	unit   Unit
	result UnitResult
}

// Run executes the unit and returns its local mapping. Under the abort policy
// the first IOError ends the unit; under the skip policy failures are recorded
// in the result and the unit carries on.
func (u Unit) Run(ctx context.Context, env *unitEnv) (UnitResult, error) {
	run := &unitRun{
		env:  env,
		unit: u,
		result: UnitResult{
			UnitID: u.ID,
			Kind:   u.Kind,
			Hashes: make(types.DuplicateMap),
		},
	}

	if err := ctx.Err(); err != nil {
		return run.result, err
	}

	var err error
	switch u.Kind {
	case KindDirectory:
		err = run.walkDirectory(ctx)
	case KindFileBatch:
		err = run.hashBatch(ctx)
	default:
		err = fmt.Errorf("unit %d: unknown kind %q", u.ID, u.Kind)
	}
	return run.result, err
}

func (r *unitRun) walkDirectory(ctx context.Context) error {
	root := r.unit.Dir
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if failErr := r.fail(common.NewIOError("walk", path, err)); failErr != nil {
				return failErr
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && r.env.matcher.IgnoredDir(path) {
				r.env.logger.Debug().Str("path", path).Msg("Ignoring directory")
				return filepath.SkipDir
			}
			return nil
		}

		// symlinks, devices and sockets are not hashed
		if !d.Type().IsRegular() || r.env.matcher.IgnoredFile(path) {
			return nil
		}

		return r.hashFile(ctx, path, d.Info)
	})
}

func (r *unitRun) hashBatch(ctx context.Context) error {
	for _, path := range r.unit.Files {
		if err := ctx.Err(); err != nil {
			return err
		}

		// ignored files are never touched, not even by stat
		if r.env.matcher.IgnoredFile(path) {
			continue
		}

		info, err := os.Lstat(path)
		if err != nil {
			if failErr := r.fail(common.NewIOError("stat", path, err)); failErr != nil {
				return failErr
			}
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}

		if err := r.hashFile(ctx, path, func() (fs.FileInfo, error) { return info, nil }); err != nil {
			return err
		}
	}
	return nil
}

// hashFile prefix-hashes one regular, non-ignored file and inserts it into
// the local mapping.
func (r *unitRun) hashFile(ctx context.Context, path string, stat func() (fs.FileInfo, error)) error {
	info, err := stat()
	if err != nil {
		return r.fail(common.NewIOError("stat", path, err))
	}

	ref := trees.NewFileRef(path, info)
	hash, err := r.env.hasher.Hash(ctx, ref, r.env.prefixLimit, false)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		var ioErr *common.IOError
		if errors.As(err, &ioErr) {
			return r.fail(ioErr)
		}
		return err
	}

	read := min(ref.Size, r.env.prefixLimit)
	r.result.Hashes.Insert(hash, ref)
	r.result.Files++
	r.result.Bytes += read
	r.env.metrics.FileHashed(read)
	return nil
}

// fail applies the error policy to ioErr. It returns nil when the failure was
// recorded and the unit should continue.
func (r *unitRun) fail(ioErr *common.IOError) error {
	if r.env.policy != options.ErrorPolicySkip {
		return ioErr
	}

	r.result.Skipped = append(r.result.Skipped, types.SkipRecord{
		Path:   ioErr.Path,
		Op:     ioErr.Op,
		Reason: ioErr.Err.Error(),
	})
	r.env.metrics.FilesSkipped.Add(1)
	r.env.logger.Warn().
		Str("path", ioErr.Path).
		Str("op", ioErr.Op).
		Err(ioErr.Err).
		Msg("Skipping unreadable path")
	return nil
}
