package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"property-pipeline/internal/changes"
	"property-pipeline/internal/metrics"
	"property-pipeline/internal/models"
)

// ListingStore is the part of the listing store the Dispatcher needs.
type ListingStore interface {
	GetAll(ctx context.Context, limit int) ([]models.Listing, error)
	RecordChanges(ctx context.Context, changes []models.ListingChange) error
}

// Limiter decides whether a job kind may launch now.
type Limiter interface {
	Allow(key string) bool
}

// Recorder receives one observation per dispatched job.
type Recorder interface {
	ObserveJob(job, outcome string, d time.Duration)
}

// Dispatcher wraps a Runner with per-kind rate limiting, metrics and, for
// jobs that write listings, an audit of what changed. It is itself a Runner.
// Audited jobs run one at a time; read-only jobs are not queued.
type Dispatcher struct {
	runner   Runner
	store    ListingStore
	limiter  Limiter
	recorder Recorder

	// writeSlot admits one audited job at a time. The before/after
	// snapshots of one job must not span another job's writes.
	writeSlot chan struct{}
}

// NewDispatcher wires a Dispatcher. store, limiter and recorder may be nil
// to disable auditing, rate limiting and metrics respectively.
func NewDispatcher(runner Runner, store ListingStore, limiter Limiter, recorder Recorder) *Dispatcher {
	return &Dispatcher{
		runner:    runner,
		store:     store,
		limiter:   limiter,
		recorder:  recorder,
		writeSlot: make(chan struct{}, 1),
	}
}

func (d *Dispatcher) GmailImport(ctx context.Context, opts GmailOptions) (*Result, error) {
	return d.dispatch(ctx, KindGmail, !opts.DryRun, func(ctx context.Context) (*Result, error) {
		return d.runner.GmailImport(ctx, opts)
	})
}

func (d *Dispatcher) CompassEnrich(ctx context.Context, opts CompassOptions) (*Result, error) {
	return d.dispatch(ctx, KindCompass, opts.UpdateDB, func(ctx context.Context) (*Result, error) {
		return d.runner.CompassEnrich(ctx, opts)
	})
}

func (d *Dispatcher) WalkScoreEnrich(ctx context.Context, opts WalkScoreOptions) (*Result, error) {
	return d.dispatch(ctx, KindWalkScore, true, func(ctx context.Context) (*Result, error) {
		return d.runner.WalkScoreEnrich(ctx, opts)
	})
}

func (d *Dispatcher) CashflowEnrich(ctx context.Context, opts CashflowOptions) (*Result, error) {
	return d.dispatch(ctx, KindCashflow, !opts.DryRun, func(ctx context.Context) (*Result, error) {
		return d.runner.CashflowEnrich(ctx, opts)
	})
}

func (d *Dispatcher) CashflowAnalyze(ctx context.Context, opts AnalyzerOptions) (*Result, error) {
	return d.dispatch(ctx, KindCashflowAnalyzer, false, func(ctx context.Context) (*Result, error) {
		return d.runner.CashflowAnalyze(ctx, opts)
	})
}

func (d *Dispatcher) InitDB(ctx context.Context, opts InitDBOptions) (*Result, error) {
	return d.dispatch(ctx, KindInitDB, false, func(ctx context.Context) (*Result, error) {
		return d.runner.InitDB(ctx, opts)
	})
}

// changeSource is the listing_changes source recorded for a job
func changeSource(kind Kind) string {
	switch kind {
	case KindGmail:
		return models.ChangeSourceGmail
	case KindCompass:
		return models.ChangeSourceCompass
	case KindWalkScore:
		return models.ChangeSourceWalkScore
	default:
		return models.ChangeSourceCashflow
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, kind Kind, writes bool, run func(context.Context) (*Result, error)) (*Result, error) {
	if d.limiter != nil && !d.limiter.Allow(string(kind)) {
		d.observe(kind, metrics.OutcomeRateLimited, 0)
		log.Printf("[Dispatcher] job=%s rejected: rate limited", kind)
		return nil, fmt.Errorf("%s: %w", kind, ErrRateLimited)
	}

	var before []models.Listing
	audit := writes && d.store != nil
	if audit {
		select {
		case d.writeSlot <- struct{}{}:
			defer func() { <-d.writeSlot }()
		case <-ctx.Done():
			log.Printf("[Dispatcher] job=%s gave up waiting for a running job: %v", kind, ctx.Err())
			return nil, fmt.Errorf("%s: waiting for running job: %w", kind, ctx.Err())
		}

		var err error
		before, err = d.store.GetAll(ctx, 0)
		if err != nil {
			log.Printf("[Dispatcher] job=%s snapshot before run failed, changes will not be audited: %v", kind, err)
			audit = false
		}
	}

	start := time.Now()
	result, err := run(ctx)
	d.observe(kind, outcomeOf(err), time.Since(start))
	if err != nil {
		return result, err
	}

	if audit {
		d.audit(ctx, kind, before)
	}
	return result, nil
}

// audit diffs the listings after a successful run against the snapshot taken
// before it. Failures are logged: the job itself already succeeded.
func (d *Dispatcher) audit(ctx context.Context, kind Kind, before []models.Listing) {
	after, err := d.store.GetAll(ctx, 0)
	if err != nil {
		log.Printf("[Dispatcher] job=%s snapshot after run failed: %v", kind, err)
		return
	}

	diff := changes.DiffAll(before, after, changeSource(kind))
	if len(diff) == 0 {
		return
	}
	if err := d.store.RecordChanges(ctx, diff); err != nil {
		log.Printf("[Dispatcher] job=%s failed to record %d changes: %v", kind, len(diff), err)
		return
	}
	log.Printf("[Dispatcher] job=%s recorded %d changes", kind, len(diff))
}

func (d *Dispatcher) observe(kind Kind, outcome string, elapsed time.Duration) {
	if d.recorder != nil {
		d.recorder.ObserveJob(string(kind), outcome, elapsed)
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, ErrJobTimeout):
		return metrics.OutcomeTimeout
	case errors.Is(err, ErrInvalidOptions):
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeFailed
	}
}
