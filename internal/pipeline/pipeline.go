// Package pipeline runs one generation: every keyword is searched on every
// provider, the hits are normalized, deduplicated by URL and annotated for
// rendering.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/FranksOps/pilotjobs/internal/analyzer"
	"github.com/FranksOps/pilotjobs/internal/dedup"
	"github.com/FranksOps/pilotjobs/internal/jobs"
	"github.com/FranksOps/pilotjobs/internal/metrics"
	"github.com/FranksOps/pilotjobs/internal/serp"
	"github.com/FranksOps/pilotjobs/internal/storage"
	"github.com/FranksOps/pilotjobs/pkg/ratelimit"
)

// Pipeline holds the collaborators of a run. Only Providers and Keywords are
// required.
type Pipeline struct {
	Providers []serp.Provider
	Keywords  []string
	// Concurrency bounds in-flight searches. Values below 1 run sequentially.
	Concurrency int
	Limiter     *ratelimit.Limiter
	// Canonicalize deduplicates and archives on dedup.Canonical instead of
	// the exact URL.
	Canonicalize bool
	// Backend, when set, archives postings and drives the New flag.
	Backend storage.Backend
	Logger  *slog.Logger
	Now     func() time.Time
}

// Result is the outcome of a run.
type Result struct {
	RunID       string
	GeneratedAt time.Time
	// Postings are the deduplicated hits in keyword-then-provider order.
	Postings []jobs.Posting
	// Collected counts normalized hits before deduplication.
	Collected int
	Failures  []*serp.SearchFailure
}

// slot holds the outcome of one keyword/provider search.
type slot struct {
	records []jobs.Record
	failure *serp.SearchFailure
}

// Run searches every keyword on every provider. Search failures are logged and
// reported in the Result; they never abort the run. Run only returns an error
// when ctx is done before all searches finish.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}

	res := &Result{RunID: uuid.New().String()}

	slots := make([]slot, len(p.Keywords)*len(p.Providers))

	g := new(errgroup.Group)
	limit := p.Concurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for ki, keyword := range p.Keywords {
		for pi, provider := range p.Providers {
			s := &slots[ki*len(p.Providers)+pi]
			g.Go(func() error {
				*s = p.search(ctx, logger, provider, keyword)
				return nil
			})
		}
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	var all []jobs.Record
	for _, s := range slots {
		if s.failure != nil {
			res.Failures = append(res.Failures, s.failure)
			continue
		}
		all = append(all, s.records...)
	}
	res.Collected = len(all)

	key := dedup.ExactURL
	if p.Canonicalize {
		key = dedup.CanonicalURL
	}
	unique := dedup.DedupeFunc(all, key)
	metrics.RecordDuplicates(len(all) - len(unique))

	res.GeneratedAt = now().UTC()
	res.Postings = make([]jobs.Posting, len(unique))
	for i, r := range unique {
		res.Postings[i] = jobs.Posting{
			Record: r,
			Tags:   analyzer.Tags(p.Keywords, r.Title, r.Snippet),
		}
	}

	if p.Backend != nil {
		p.archive(ctx, logger, res)
	}

	logger.Info("run complete",
		"run_id", res.RunID,
		"collected", res.Collected,
		"unique", len(res.Postings),
		"failures", len(res.Failures),
	)
	return res, nil
}

func (p *Pipeline) search(ctx context.Context, logger *slog.Logger, provider serp.Provider, keyword string) slot {
	name := provider.Name()

	if err := p.Limiter.Wait(ctx); err != nil {
		return slot{failure: &serp.SearchFailure{Keyword: keyword, Provider: name, Err: err}}
	}

	start := time.Now()
	raw, err := provider.Search(ctx, keyword)
	dur := time.Since(start)

	if err != nil {
		sf, ok := serp.AsSearchFailure(err)
		if !ok {
			sf = &serp.SearchFailure{Keyword: keyword, Provider: name, Err: err}
		}
		metrics.RecordSearch(name, metrics.StatusError, dur, 0)
		if !errors.Is(err, context.Canceled) {
			logger.Warn("search failed",
				"keyword", keyword,
				"provider", name,
				"status", sf.StatusCode,
				"blocked", errors.Is(err, serp.ErrBlocked),
				"err", sf.Err,
			)
		}
		return slot{failure: sf}
	}

	records := serp.Normalize(raw)
	metrics.RecordSearch(name, metrics.StatusOK, dur, len(records))
	logger.Debug("search complete", "keyword", keyword, "provider", name, "results", len(records), "duration", dur)
	return slot{records: records}
}

// archive marks postings whose URL was never saved before as New, then saves
// every posting under the run ID. Storage errors are logged and skipped.
func (p *Pipeline) archive(ctx context.Context, logger *slog.Logger, res *Result) {
	for i := range res.Postings {
		posting := &res.Postings[i]

		// Canonicalizing runs archive and look up the canonical URL so that
		// New agrees with the dedup identity.
		record := posting.Record
		if p.Canonicalize {
			record.URL = dedup.Canonical(record.URL)
		}

		seen, err := storage.Seen(ctx, p.Backend, record.URL)
		if err != nil {
			logger.Error("failed to query archive", "url", record.URL, "err", err)
		} else {
			posting.New = !seen
		}

		if err := p.Backend.Save(ctx, storage.NewEntry(res.RunID, record, res.GeneratedAt)); err != nil {
			logger.Error("failed to archive posting", "url", record.URL, "err", err)
		}
	}
}
