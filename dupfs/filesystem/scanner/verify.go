package scanner

import (
	"context"
	"errors"

	"github.com/ZanzyTHEbar/dupfs/dupfs/filesystem/common"
	"github.com/ZanzyTHEbar/dupfs/dupfs/filesystem/interfaces"
	"github.com/ZanzyTHEbar/dupfs/dupfs/filesystem/options"
	"github.com/ZanzyTHEbar/dupfs/dupfs/filesystem/types"
	"github.com/ZanzyTHEbar/dupfs/dupfs/trees"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Verifier re-hashes prefix candidates over their full content and rebuckets
// them by the full hash.
type Verifier struct {
	hasher         interfaces.ContentHasher
	maxConcurrency int
	policy         options.ErrorPolicy
	metrics        *common.ScanMetrics
	logger         zerolog.Logger
}

// NewVerifier creates a Verifier hashing at most maxConcurrency files at once.
func NewVerifier(hasher interfaces.ContentHasher, maxConcurrency int, policy options.ErrorPolicy, metrics *common.ScanMetrics, logger zerolog.Logger) (*Verifier, error) {
	if maxConcurrency < 1 {
		return nil, common.NewConfigError("concurrency", common.ErrInvalidConcurrency)
	}
	if policy == "" {
		policy = options.ErrorPolicyAbort
	}
	if !policy.Valid() {
		return nil, common.NewConfigError("error policy", common.ErrUnknownErrorPolicy)
	}
	if metrics == nil {
		metrics = common.NewScanMetrics()
	}
	return &Verifier{
		hasher:         hasher,
		maxConcurrency: maxConcurrency,
		policy:         policy,
		metrics:        metrics,
		logger:         logger.With().Str("component", "verifier").Logger(),
	}, nil
}

type verifyJob struct {
	prefix types.ContentHash
	ref    trees.FileRef
}

type verifyOutcome struct {
	hash    types.ContentHash
	skipped *types.SkipRecord
}

// Verify full-hashes every file in candidates and returns a fresh mapping
// holding only the full-hash groups with two or more members. candidates is
// not modified. Files whose full hash differs from their prefix hash are
// moved to their own bucket.
func (v *Verifier) Verify(ctx context.Context, candidates types.DuplicateMap) (types.DuplicateMap, []types.SkipRecord, error) {
	var jobs []verifyJob
	for _, hash := range candidates.SortedHashes() {
		for _, ref := range candidates[hash].Refs() {
			jobs = append(jobs, verifyJob{prefix: hash, ref: ref})
		}
	}

	// each job writes only its own slot
	outcomes := make([]verifyOutcome, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.maxConcurrency)
	for i, job := range jobs {
		g.Go(func() error {
			hash, err := v.hasher.Hash(gctx, job.ref, 0, true)
			if err != nil {
				var ioErr *common.IOError
				if v.policy == options.ErrorPolicySkip && errors.As(err, &ioErr) && gctx.Err() == nil {
					outcomes[i].skipped = &types.SkipRecord{
						Path:   ioErr.Path,
						Op:     ioErr.Op,
						Reason: ioErr.Err.Error(),
					}
					v.metrics.FilesSkipped.Add(1)
					v.logger.Warn().Str("path", ioErr.Path).Err(ioErr.Err).Msg("Skipping file during verification")
					return nil
				}
				return err
			}
			outcomes[i].hash = hash
			v.metrics.FilesVerified.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	verified := make(types.DuplicateMap)
	var skipped []types.SkipRecord
	for i, job := range jobs {
		outcome := outcomes[i]
		if outcome.skipped != nil {
			skipped = append(skipped, *outcome.skipped)
			continue
		}
		if outcome.hash != job.prefix {
			v.logger.Debug().
				Str("path", job.ref.Path).
				Str("prefix", job.prefix.Hex()).
				Str("full", outcome.hash.Hex()).
				Msg("Full hash differs from prefix hash")
		}
		verified.Insert(outcome.hash, job.ref)
	}

	return FilterDuplicates(verified), skipped, nil
}
