package filesystem

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/dupfs/dupfs/filesystem/common"
	"github.com/ZanzyTHEbar/dupfs/dupfs/filesystem/hasher"
	"github.com/ZanzyTHEbar/dupfs/dupfs/filesystem/ignore"
	"github.com/ZanzyTHEbar/dupfs/dupfs/filesystem/interfaces"
	"github.com/ZanzyTHEbar/dupfs/dupfs/filesystem/options"
	"github.com/ZanzyTHEbar/dupfs/dupfs/filesystem/scanner"
	"github.com/ZanzyTHEbar/dupfs/dupfs/filesystem/types"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var _ interfaces.DuplicateFinder = (*DuplicateFinder)(nil)

// DuplicateFinder is the entry point for a duplicate scan. It validates the
// options once, then each FindDuplicates call runs a fresh scan: units on a
// bounded pool, a merge on the calling goroutine, and the optional full
// verification pass.
type DuplicateFinder struct {
	opts     options.ScanOptions
	hasher   interfaces.ContentHasher
	matcher  *ignore.Matcher
	observer interfaces.UnitObserver
	logger   zerolog.Logger

	validationUtils *common.ValidationUtils
}

// FinderOption customises a DuplicateFinder.
type FinderOption func(*DuplicateFinder)

// WithObserver registers an observer notified of every unit start and finish.
func WithObserver(observer interfaces.UnitObserver) FinderOption {
	return func(f *DuplicateFinder) {
		f.observer = observer
	}
}

// WithHasher replaces the hasher built from the options.
func WithHasher(h interfaces.ContentHasher) FinderOption {
	return func(f *DuplicateFinder) {
		f.hasher = h
	}
}

// New validates opts and creates a DuplicateFinder. Every invalid setting is
// reported as a *common.ConfigError before any file is touched.
func New(opts options.ScanOptions, logger zerolog.Logger, finderOpts ...FinderOption) (*DuplicateFinder, error) {
	validationUtils := common.NewValidationUtils()

	if err := validationUtils.ValidatePath(opts.Path); err != nil {
		return nil, common.NewConfigError("path", err)
	}
	opts.Path = filepath.Clean(opts.Path)
	if err := validationUtils.ValidateDirectoryExists(opts.Path); err != nil {
		return nil, common.NewConfigError("path", err)
	}
	if opts.MaxConcurrency < 1 {
		return nil, common.NewConfigError("concurrency", fmt.Errorf("%w: got %d", common.ErrInvalidConcurrency, opts.MaxConcurrency))
	}
	if opts.PrefixLimit < 1 {
		return nil, common.NewConfigError("prefix limit", fmt.Errorf("%w: got %d", common.ErrInvalidPrefixLimit, opts.PrefixLimit))
	}

	opts.ErrorPolicy = options.ErrorPolicy(strings.ToLower(string(opts.ErrorPolicy)))
	if opts.ErrorPolicy == "" {
		opts.ErrorPolicy = options.ErrorPolicyAbort
	}
	if !opts.ErrorPolicy.Valid() {
		return nil, common.NewConfigError("error policy", fmt.Errorf("%w: %q", common.ErrUnknownErrorPolicy, opts.ErrorPolicy))
	}

	f := &DuplicateFinder{
		opts:            opts,
		logger:          logger.With().Str("component", "finder").Logger(),
		validationUtils: validationUtils,
	}
	for _, opt := range finderOpts {
		opt(f)
	}

	if f.hasher == nil {
		contentHasher, err := hasher.New(opts.Algorithm, opts.BufferSize)
		if err != nil {
			return nil, err
		}
		f.hasher = contentHasher
	}

	matcher, err := ignore.NewMatcher(opts.Path, opts.IgnoreExtensions, opts.IgnoreFile)
	if err != nil {
		return nil, common.NewConfigError("ignore file", err)
	}
	f.matcher = matcher
	f.logger.Debug().
		Strs("ignore_extensions", matcher.Extensions()).
		Bool("ignore_file_loaded", matcher.HasPatterns()).
		Msg("Ignore rules loaded")

	return f, nil
}

// Options returns the validated options.
func (f *DuplicateFinder) Options() options.ScanOptions {
	return f.opts
}

// FindDuplicates scans the root and returns every group of two or more files
// sharing a hash. Without full verification the hash covers only the prefix,
// so a group is a candidate rather than a proof of identical content.
func (f *DuplicateFinder) FindDuplicates(ctx context.Context) (*types.Report, error) {
	if err := f.validationUtils.ValidateContextCancellation(ctx); err != nil {
		return nil, err
	}

	report := &types.Report{
		ScanID:    uuid.New(),
		Root:      f.opts.Path,
		Algorithm: strings.ToLower(f.opts.Algorithm),
		FullCheck: f.opts.FullVerification,
		StartedAt: time.Now(),
	}
	logger := f.logger.With().Str("scan_id", report.ScanID.String()).Logger()
	metrics := common.NewScanMetrics()

	sched, err := scanner.NewScheduler(scanner.SchedulerConfig{
		MaxConcurrency: f.opts.MaxConcurrency,
		PrefixLimit:    f.opts.PrefixLimit,
		ErrorPolicy:    f.opts.ErrorPolicy,
		Hasher:         f.hasher,
		Matcher:        f.matcher,
		Observer:       f.observer,
		Metrics:        metrics,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("root", f.opts.Path).
		Int("threads", f.opts.MaxConcurrency).
		Bool("full", f.opts.FullVerification).
		Msg("Starting duplicate scan")

	results, err := sched.Scan(ctx, f.opts.Path)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", f.opts.Path, err)
	}

	duplicates := scanner.FilterDuplicates(scanner.Merge(results...))
	report.Skipped = scanner.CollectSkipped(results...)

	logger.Debug().
		Int("candidate_groups", len(duplicates)).
		Int("candidate_files", duplicates.FileCount()).
		Msg("Prefix pass complete")

	if f.opts.FullVerification && len(duplicates) > 0 {
		verifier, err := scanner.NewVerifier(f.hasher, f.opts.MaxConcurrency, f.opts.ErrorPolicy, metrics, logger)
		if err != nil {
			return nil, err
		}
		verified, skipped, err := verifier.Verify(ctx, duplicates)
		if err != nil {
			return nil, fmt.Errorf("verify %s: %w", f.opts.Path, err)
		}
		duplicates = verified
		report.Skipped = append(report.Skipped, skipped...)
	}

	report.Duplicates = duplicates
	report.Duration = time.Since(report.StartedAt)
	report.Stats = metrics.Summary()

	logger.Info().
		Int("groups", report.GroupCount()).
		Int("files", duplicates.FileCount()).
		Int("skipped", len(report.Skipped)).
		Str("elapsed", common.FormatDuration(report.Duration)).
		Msg("Duplicate scan finished")
	return report, nil
}

// FindDuplicates is a one-shot helper around New and DuplicateFinder.FindDuplicates.
func FindDuplicates(ctx context.Context, opts options.ScanOptions, logger zerolog.Logger) (*types.Report, error) {
	finder, err := New(opts, logger)
	if err != nil {
		return nil, err
	}
	return finder.FindDuplicates(ctx)
}
