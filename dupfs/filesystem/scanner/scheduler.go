package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ZanzyTHEbar/dupfs/dupfs/filesystem/common"
	"github.com/ZanzyTHEbar/dupfs/dupfs/filesystem/interfaces"
	"github.com/ZanzyTHEbar/dupfs/dupfs/filesystem/options"
	"github.com/ZanzyTHEbar/dupfs/dupfs/indexing"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
)

// SchedulerConfig carries everything a Scheduler needs for one scan.
type SchedulerConfig struct {
	MaxConcurrency int
	PrefixLimit    int64
	ErrorPolicy    options.ErrorPolicy
	Hasher         interfaces.ContentHasher
	Matcher        interfaces.PathMatcher
	Observer       interfaces.UnitObserver // optional
	Metrics        *common.ScanMetrics     // optional
	Logger         zerolog.Logger
}

// Scheduler partitions the scan root into units and runs them on a bounded
// pool. At most MaxConcurrency units execute at any instant.
type Scheduler struct {
	maxConcurrency int
	observer       interfaces.UnitObserver
	env            *unitEnv
	logger         zerolog.Logger
}

// NewScheduler validates cfg and creates a Scheduler.
func NewScheduler(cfg SchedulerConfig) (*Scheduler, error) {
	if cfg.MaxConcurrency < 1 {
		return nil, common.NewConfigError("concurrency", common.ErrInvalidConcurrency)
	}
	if cfg.PrefixLimit < 1 {
		return nil, common.NewConfigError("prefix limit", common.ErrInvalidPrefixLimit)
	}
	if cfg.Hasher == nil {
		return nil, fmt.Errorf("scheduler requires a hasher")
	}

	policy := cfg.ErrorPolicy
	if policy == "" {
		policy = options.ErrorPolicyAbort
	}
	if !policy.Valid() {
		return nil, common.NewConfigError("error policy", common.ErrUnknownErrorPolicy)
	}

	matcher := cfg.Matcher
	if matcher == nil {
		matcher = noopMatcher{}
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = common.NewScanMetrics()
	}

	logger := cfg.Logger.With().Str("component", "scheduler").Logger()
	return &Scheduler{
		maxConcurrency: cfg.MaxConcurrency,
		observer:       cfg.Observer,
		logger:         logger,
		env: &unitEnv{
			hasher:      cfg.Hasher,
			matcher:     matcher,
			prefixLimit: cfg.PrefixLimit,
			policy:      policy,
			metrics:     metrics,
			logger:      logger,
		},
	}, nil
}

// Plan lists the root once and turns its entries into units: one per
// non-ignored subdirectory, plus the root's other entries split into
// contiguous batches of ceil(len/MaxConcurrency).
func (s *Scheduler) Plan(root string) ([]Unit, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, common.NewIOError("readdir", root, err)
	}

	var units []Unit
	var files []string
	for _, entry := range entries {
		path := filepath.Join(root, entry.Name())
		if entry.IsDir() {
			if s.env.matcher.IgnoredDir(path) {
				s.logger.Debug().Str("path", path).Msg("Ignoring directory")
				continue
			}
			units = append(units, NewDirectoryUnit(len(units), path))
			continue
		}
		files = append(files, path)
	}

	for _, batch := range PartitionFiles(files, s.maxConcurrency) {
		units = append(units, NewFileBatchUnit(len(units), batch))
	}

	s.logger.Debug().
		Str("root", root).
		Int("units", len(units)).
		Int("root_files", len(files)).
		Msg("Planned scan units")
	return units, nil
}

// PartitionFiles splits files into contiguous batches of ceil(len/n) so that
// no more than n batches exist. An empty input yields no batches.
func PartitionFiles(files []string, n int) [][]string {
	if len(files) == 0 || n < 1 {
		return nil
	}
	size := (len(files) + n - 1) / n

	batches := make([][]string, 0, n)
	for start := 0; start < len(files); start += size {
		end := min(start+size, len(files))
		batches = append(batches, files[start:end:end])
	}
	return batches
}

// Run executes units with at most MaxConcurrency running at once and returns
// their local results in completion order. Under the abort policy every
// unit still runs to completion before the joined failure is returned.
func (s *Scheduler) Run(ctx context.Context, units []Unit) ([]UnitResult, error) {
	if len(units) == 0 {
		return nil, ctx.Err()
	}

	ledger := indexing.NewUnitLedger(len(units))
	p := pool.NewWithResults[UnitResult]().
		WithContext(ctx).
		WithMaxGoroutines(s.maxConcurrency)

	for _, unit := range units {
		p.Go(func(ctx context.Context) (UnitResult, error) {
			return s.runUnit(ctx, ledger, unit)
		})
	}

	results, err := p.Wait()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ledger.Verify(); err != nil {
		return nil, fmt.Errorf("scan incomplete: %w", err)
	}
	s.logger.Debug().Uint64("units", ledger.Started()).Msg("All units finished")
	return results, nil
}

// Scan plans and runs a scan of root.
func (s *Scheduler) Scan(ctx context.Context, root string) ([]UnitResult, error) {
	units, err := s.Plan(root)
	if err != nil {
		return nil, err
	}
	return s.Run(ctx, units)
}

func (s *Scheduler) runUnit(ctx context.Context, ledger *indexing.UnitLedger, unit Unit) (UnitResult, error) {
	ledger.Start(unit.ID)
	s.env.metrics.UnitStarted()
	if s.observer != nil {
		s.observer.UnitStarted(unit.ID, string(unit.Kind))
	}
	start := time.Now()

	result, err := unit.Run(ctx, s.env)

	s.env.metrics.UnitFinished(start, err == nil)
	ledger.Finish(unit.ID)
	if s.observer != nil {
		s.observer.UnitFinished(unit.ID, err)
	}

	if err != nil {
		s.logger.Debug().
			Int("unit", unit.ID).
			Str("kind", string(unit.Kind)).
			Str("target", unit.Target()).
			Err(err).
			Msg("Unit failed")
		return result, fmt.Errorf("%s unit %d (%s): %w", unit.Kind, unit.ID, unit.Target(), err)
	}

	s.logger.Trace().
		Int("unit", unit.ID).
		Str("kind", string(unit.Kind)).
		Int("files", result.Files).
		Dur("elapsed", time.Since(start)).
		Msg("Unit finished")
	return result, nil
}

type noopMatcher struct{}

func (noopMatcher) IgnoredFile(string) bool { return false }
func (noopMatcher) IgnoredDir(string) bool  { return false }
