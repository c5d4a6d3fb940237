package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/dupfs/dupfs/filesystem/common"
	"github.com/ZanzyTHEbar/dupfs/dupfs/filesystem/hasher"
	"github.com/ZanzyTHEbar/dupfs/dupfs/filesystem/ignore"
	"github.com/ZanzyTHEbar/dupfs/dupfs/filesystem/options"
	"github.com/ZanzyTHEbar/dupfs/dupfs/filesystem/types"
	"github.com/ZanzyTHEbar/dupfs/dupfs/trees"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPrefix = 100 * 1024

// instrumentedHasher wraps a real hasher, can fail chosen paths and slows
// each call down so overlapping units are observable.
type instrumentedHasher struct {
	inner  *hasher.ContentHasher
	fail   map[string]bool
	delay  time.Duration
	before func(ref trees.FileRef)
	calls  atomic.Int64
}

func newInstrumentedHasher(t *testing.T) *instrumentedHasher {
	t.Helper()
	inner, err := hasher.New("md5", 10*1024)
	require.NoError(t, err)
	return &instrumentedHasher{inner: inner, fail: map[string]bool{}}
}

func (h *instrumentedHasher) Hash(ctx context.Context, ref trees.FileRef, limit int64, full bool) (types.ContentHash, error) {
	h.calls.Add(1)
	if h.before != nil {
		h.before(ref)
	}
	if h.delay > 0 {
		time.Sleep(h.delay)
	}
	if h.fail[ref.Path] {
		return "", common.NewIOError("read", ref.Path, os.ErrPermission)
	}
	return h.inner.Hash(ctx, ref, limit, full)
}

// recordingObserver tracks how many units run at once.
type recordingObserver struct {
	mu       sync.Mutex
	active   int
	peak     int
	started  map[int]int
	finished map[int]int
	kinds    map[string]int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{
		started:  map[int]int{},
		finished: map[int]int{},
		kinds:    map[string]int{},
	}
}

func (o *recordingObserver) UnitStarted(id int, kind string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.active++
	o.peak = max(o.peak, o.active)
	o.started[id]++
	o.kinds[kind]++
}

func (o *recordingObserver) UnitFinished(id int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.active--
	o.finished[id]++
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// createTestTree builds dirs subdirectories holding one file each and files
// loose files at the root. Every file has unique content.
func createTestTree(t *testing.T, dirs, files int) string {
	t.Helper()
	root := t.TempDir()
	for i := range dirs {
		writeTestFile(t, filepath.Join(root, fmt.Sprintf("dir%02d", i), "nested", "file.txt"), fmt.Sprintf("dir content %d", i))
	}
	for i := range files {
		writeTestFile(t, filepath.Join(root, fmt.Sprintf("root%02d.txt", i)), fmt.Sprintf("root content %d", i))
	}
	return root
}

func newTestScheduler(t *testing.T, n int, h *instrumentedHasher, policy options.ErrorPolicy, observer *recordingObserver, matcher *ignore.Matcher) *Scheduler {
	t.Helper()
	cfg := SchedulerConfig{
		MaxConcurrency: n,
		PrefixLimit:    testPrefix,
		ErrorPolicy:    policy,
		Hasher:         h,
		Logger:         zerolog.Nop(),
	}
	if observer != nil {
		cfg.Observer = observer
	}
	if matcher != nil {
		cfg.Matcher = matcher
	}
	s, err := NewScheduler(cfg)
	require.NoError(t, err)
	return s
}

func TestPartitionFiles(t *testing.T) {
	files := make([]string, 10)
	for i := range files {
		files[i] = fmt.Sprintf("f%d", i)
	}

	tests := []struct {
		name  string
		files []string
		n     int
		sizes []int
	}{
		{"uneven split", files, 3, []int{4, 4, 2}},
		{"even split", files, 5, []int{2, 2, 2, 2, 2}},
		{"single batch", files, 1, []int{10}},
		{"more workers than files", files[:3], 8, []int{1, 1, 1}},
		{"no files", nil, 4, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batches := PartitionFiles(tt.files, tt.n)
			var sizes []int
			var flat []string
			for _, b := range batches {
				sizes = append(sizes, len(b))
				flat = append(flat, b...)
			}
			assert.Equal(t, tt.sizes, sizes)
			assert.LessOrEqual(t, len(batches), tt.n)
			assert.Equal(t, len(tt.files), len(flat))
			if len(tt.files) > 0 {
				assert.Equal(t, tt.files, flat, "batches are contiguous and cover every file once")
			}
		})
	}
}

func TestPlanUnits(t *testing.T) {
	root := createTestTree(t, 3, 5)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "skipme"), 0o755))
	writeTestFile(t, filepath.Join(root, ".dupfsignore"), "skipme/\n")

	matcher, err := ignore.NewMatcher(root, nil, ".dupfsignore")
	require.NoError(t, err)

	s := newTestScheduler(t, 2, newInstrumentedHasher(t), options.ErrorPolicyAbort, nil, matcher)
	units, err := s.Plan(root)
	require.NoError(t, err)

	var dirUnits, batchUnits, batchFiles int
	for i, u := range units {
		assert.Equal(t, i, u.ID, "ids are dense")
		switch u.Kind {
		case KindDirectory:
			dirUnits++
			assert.NotEqual(t, filepath.Join(root, "skipme"), u.Dir)
		case KindFileBatch:
			batchUnits++
			batchFiles += len(u.Files)
		}
	}
	assert.Equal(t, 3, dirUnits)
	assert.Equal(t, 2, batchUnits)
	assert.Equal(t, 6, batchFiles, "five files plus the ignore file")
}

func TestPlanMissingRoot(t *testing.T) {
	s := newTestScheduler(t, 1, newInstrumentedHasher(t), options.ErrorPolicyAbort, nil, nil)
	_, err := s.Plan(filepath.Join(t.TempDir(), "missing"))
	assert.True(t, common.IsIOError(err))
}

func TestSchedulerRespectsConcurrencyBound(t *testing.T) {
	root := createTestTree(t, 8, 12)

	for n := 1; n <= 4; n++ {
		t.Run(fmt.Sprintf("N=%d", n), func(t *testing.T) {
			h := newInstrumentedHasher(t)
			h.delay = 5 * time.Millisecond
			observer := newRecordingObserver()
			metrics := common.NewScanMetrics()

			s, err := NewScheduler(SchedulerConfig{
				MaxConcurrency: n,
				PrefixLimit:    testPrefix,
				Hasher:         h,
				Observer:       observer,
				Metrics:        metrics,
				Logger:         zerolog.Nop(),
			})
			require.NoError(t, err)

			results, err := s.Scan(context.Background(), root)
			require.NoError(t, err)

			assert.LessOrEqual(t, observer.peak, n)
			assert.LessOrEqual(t, metrics.Peak(), int64(n))
			assert.Equal(t, 8, observer.kinds[string(KindDirectory)])
			assert.LessOrEqual(t, observer.kinds[string(KindFileBatch)], n)

			for id, count := range observer.started {
				assert.Equal(t, 1, count, "unit %d started once", id)
				assert.Equal(t, 1, observer.finished[id], "unit %d finished once", id)
			}
			assert.Len(t, results, len(observer.started))

			merged := Merge(results...)
			assert.Equal(t, 20, merged.FileCount())
			assert.Equal(t, int64(20), h.calls.Load())
		})
	}
}

func TestSchedulerEmptyRoot(t *testing.T) {
	root := t.TempDir()
	s := newTestScheduler(t, 4, newInstrumentedHasher(t), options.ErrorPolicyAbort, nil, nil)

	results, err := s.Scan(context.Background(), root)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Empty(t, FilterDuplicates(Merge(results...)))
}

func TestSchedulerOnlyFiles(t *testing.T) {
	root := createTestTree(t, 0, 7)
	observer := newRecordingObserver()
	s := newTestScheduler(t, 3, newInstrumentedHasher(t), options.ErrorPolicyAbort, observer, nil)

	results, err := s.Scan(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 3, observer.kinds[string(KindFileBatch)])
	assert.Zero(t, observer.kinds[string(KindDirectory)])
	assert.Equal(t, 7, Merge(results...).FileCount())
}

func TestSchedulerOnlyDirectories(t *testing.T) {
	root := createTestTree(t, 5, 0)
	observer := newRecordingObserver()
	s := newTestScheduler(t, 2, newInstrumentedHasher(t), options.ErrorPolicyAbort, observer, nil)

	results, err := s.Scan(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 5, observer.kinds[string(KindDirectory)])
	assert.Zero(t, observer.kinds[string(KindFileBatch)])
	assert.Equal(t, 5, Merge(results...).FileCount())
}

func TestSchedulerSkipsSymlinks(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "real.txt")
	writeTestFile(t, target, "same")
	if err := os.Symlink(target, filepath.Join(root, "link.txt")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	if err := os.Symlink(target, filepath.Join(root, "sub", "link.txt")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	s := newTestScheduler(t, 2, newInstrumentedHasher(t), options.ErrorPolicyAbort, nil, nil)
	results, err := s.Scan(context.Background(), root)
	require.NoError(t, err)

	merged := Merge(results...)
	assert.Equal(t, 1, merged.FileCount())
	assert.Empty(t, FilterDuplicates(merged))
}

func TestSchedulerAbortPolicyFailsScan(t *testing.T) {
	root := createTestTree(t, 4, 4)
	bad := filepath.Join(root, "dir02", "nested", "file.txt")

	h := newInstrumentedHasher(t)
	h.fail[bad] = true
	observer := newRecordingObserver()
	s := newTestScheduler(t, 2, h, options.ErrorPolicyAbort, observer, nil)

	results, err := s.Scan(context.Background(), root)
	require.Error(t, err)
	assert.Nil(t, results)

	assert.True(t, common.IsIOError(err))
	assert.Contains(t, err.Error(), bad)
	// every other unit still ran to completion
	assert.Len(t, observer.finished, len(observer.started))
	assert.Equal(t, 4+2, len(observer.started))
}

func TestSchedulerSkipPolicyRecordsFailures(t *testing.T) {
	root := createTestTree(t, 2, 3)
	writeTestFile(t, filepath.Join(root, "dir00", "copy.txt"), "dir content 0")
	bad := filepath.Join(root, "root01.txt")

	h := newInstrumentedHasher(t)
	h.fail[bad] = true
	metrics := common.NewScanMetrics()
	s, err := NewScheduler(SchedulerConfig{
		MaxConcurrency: 2,
		PrefixLimit:    testPrefix,
		ErrorPolicy:    options.ErrorPolicySkip,
		Hasher:         h,
		Metrics:        metrics,
		Logger:         zerolog.Nop(),
	})
	require.NoError(t, err)

	results, err := s.Scan(context.Background(), root)
	require.NoError(t, err)

	skipped := CollectSkipped(results...)
	require.Len(t, skipped, 1)
	assert.Equal(t, bad, skipped[0].Path)
	assert.Equal(t, "read", skipped[0].Op)
	assert.Equal(t, int64(1), metrics.FilesSkipped.Load())

	merged := Merge(results...)
	assert.Equal(t, 5, merged.FileCount())
	for _, set := range merged {
		assert.False(t, set.Contains(bad))
	}
	assert.Len(t, FilterDuplicates(merged), 1)
}

func TestSchedulerCancelledContext(t *testing.T) {
	root := createTestTree(t, 3, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := newTestScheduler(t, 2, newInstrumentedHasher(t), options.ErrorPolicyAbort, nil, nil)
	_, err := s.Scan(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSchedulerIgnoresExtensions(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, filepath.Join(root, "a.exe"), "same")
	writeTestFile(t, filepath.Join(root, "sub", "b.exe"), "same")
	writeTestFile(t, filepath.Join(root, "c.txt"), "same")
	writeTestFile(t, filepath.Join(root, "sub", "d.txt"), "same")

	h := newInstrumentedHasher(t)
	s := newTestScheduler(t, 2, h, options.ErrorPolicyAbort, nil, ignore.NewExtensionMatcher(".exe"))

	results, err := s.Scan(context.Background(), root)
	require.NoError(t, err)

	dups := FilterDuplicates(Merge(results...))
	require.Len(t, dups, 1)
	for _, set := range dups {
		assert.Equal(t, []string{filepath.Join(root, "c.txt"), filepath.Join(root, "sub", "d.txt")}, set.Paths())
	}
	assert.Equal(t, int64(2), h.calls.Load(), "ignored files are never opened")
}

func TestNewSchedulerValidation(t *testing.T) {
	h := newInstrumentedHasher(t)

	_, err := NewScheduler(SchedulerConfig{MaxConcurrency: 0, PrefixLimit: 1, Hasher: h})
	assert.ErrorIs(t, err, common.ErrInvalidConcurrency)

	_, err = NewScheduler(SchedulerConfig{MaxConcurrency: 1, PrefixLimit: 0, Hasher: h})
	assert.ErrorIs(t, err, common.ErrInvalidPrefixLimit)

	_, err = NewScheduler(SchedulerConfig{MaxConcurrency: 1, PrefixLimit: 1, Hasher: h, ErrorPolicy: "retry"})
	assert.ErrorIs(t, err, common.ErrUnknownErrorPolicy)

	_, err = NewScheduler(SchedulerConfig{MaxConcurrency: 1, PrefixLimit: 1})
	assert.Error(t, err)
}
