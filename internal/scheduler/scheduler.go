package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"property-pipeline/internal/config"
	"property-pipeline/internal/enrichment"
	"property-pipeline/internal/jobs"
	"property-pipeline/internal/models"
)

// ErrBreakerOpen marks a scheduled job skipped by its circuit breaker.
var ErrBreakerOpen = errors.New("circuit breaker open")

// Store is what the scheduler reads before deciding which jobs to run.
type Store interface {
	GetAll(ctx context.Context, limit int) ([]models.Listing, error)
	HasColumn(ctx context.Context, column string) (bool, error)
}

// PlannedJob is one job the enrichment run decided to dispatch.
type PlannedJob struct {
	Kind    jobs.Kind `json:"job"`
	Pending int       `json:"pending"`
	run     func(ctx context.Context, r jobs.Runner) (*jobs.Result, error)
}

// JobReport is the outcome of one dispatched job.
type JobReport struct {
	Job      jobs.Kind     `json:"job"`
	Pending  int           `json:"pending"`
	Skipped  bool          `json:"skipped"`
	Error    string        `json:"error,omitempty"`
	ExitCode int           `json:"exit_code"`
	Duration time.Duration `json:"duration"`
}

// Report summarizes one enrichment run.
type Report struct {
	StartedAt time.Time              `json:"started_at"`
	Needs     enrichment.NeedsCounts `json:"needs"`
	Jobs      []JobReport            `json:"jobs"`
}

// Scheduler runs the daily enrichment pass
type Scheduler struct {
	cron      *cron.Cron
	store     Store
	runner    jobs.Runner
	config    config.EnrichmentConfig
	breakers  map[jobs.Kind]*CircuitBreaker
	mu        sync.Mutex
	running   sync.Mutex
	isRunning bool
}

// NewScheduler creates a new scheduler
func NewScheduler(store Store, runner jobs.Runner, cfg config.EnrichmentConfig) *Scheduler {
	s := &Scheduler{
		cron:     cron.New(),
		store:    store,
		runner:   runner,
		config:   cfg,
		breakers: make(map[jobs.Kind]*CircuitBreaker),
	}
	for _, kind := range []jobs.Kind{jobs.KindWalkScore, jobs.KindCompass, jobs.KindCashflow} {
		s.breakers[kind] = NewCircuitBreaker(string(kind), cfg.BreakerThreshold, cfg.GetBreakerReset())
	}
	return s
}

// Start registers the daily job and starts the cron loop
func (s *Scheduler) Start() error {
	if !s.config.DailyRunEnabled {
		log.Println("[Scheduler] daily run is disabled in configuration")
		return nil
	}

	cronSpec, err := CronSpec(s.config.DailyRunTime)
	if err != nil {
		return err
	}

	_, err = s.cron.AddFunc(cronSpec, func() {
		log.Println("[Scheduler] starting daily enrichment")
		report, err := s.run(context.Background(), true)
		if err != nil {
			log.Printf("[Scheduler] daily enrichment failed: %v", err)
			return
		}
		log.Printf("[Scheduler] daily enrichment completed jobs=%d", len(report.Jobs))
	})
	if err != nil {
		return fmt.Errorf("failed to schedule daily run: %w", err)
	}

	s.cron.Start()
	s.mu.Lock()
	s.isRunning = true
	s.mu.Unlock()
	log.Printf("[Scheduler] started daily_run_time=%s cron=%q", s.config.DailyRunTime, cronSpec)

	return nil
}

// Stop stops the scheduler and waits for a running pass to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		<-s.cron.Stop().Done()
		s.isRunning = false
		log.Println("[Scheduler] stopped")
	}
}

// RunNow immediately executes the enrichment pass. Manual runs ignore the
// circuit breakers but still report to them.
func (s *Scheduler) RunNow(ctx context.Context) (*Report, error) {
	log.Println("[Scheduler] manual trigger")
	return s.run(ctx, false)
}

// Breakers returns the state of every job breaker, sorted by job.
func (s *Scheduler) Breakers() []BreakerStatus {
	out := make([]BreakerStatus, 0, len(s.breakers))
	for _, b := range s.breakers {
		out = append(out, b.GetStatus())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Job < out[j].Job })
	return out
}

func (s *Scheduler) run(ctx context.Context, scheduled bool) (*Report, error) {
	// one pass at a time
	s.running.Lock()
	defer s.running.Unlock()

	report := &Report{StartedAt: time.Now()}

	listings, err := s.store.GetAll(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("load listings: %w", err)
	}
	tracked, err := s.store.HasColumn(ctx, "estimated_monthly_cashflow")
	if err != nil {
		return nil, fmt.Errorf("inspect schema: %w", err)
	}

	needs := enrichment.Analyze(enrichment.Enrich(listings), enrichment.AnalyzeOptions{CashflowTracked: tracked})
	report.Needs = needs.Counts(len(listings))

	plan := Plan(needs, s.config.BatchLimit)
	log.Printf("[Scheduler] listings=%d planned=%d scheduled=%t", len(listings), len(plan), scheduled)

	report.Jobs = make([]JobReport, len(plan))
	g, gctx := errgroup.WithContext(ctx)
	var errs []error
	var errMu sync.Mutex

	for i, job := range plan {
		report.Jobs[i] = JobReport{Job: job.Kind, Pending: job.Pending}
		breaker := s.breakers[job.Kind]

		if scheduled && breaker != nil && !breaker.CanProceed() {
			report.Jobs[i].Skipped = true
			report.Jobs[i].Error = ErrBreakerOpen.Error()
			log.Printf("[Scheduler] skip job=%s reason=breaker_open", job.Kind)
			continue
		}

		g.Go(func() error {
			start := time.Now()
			res, err := job.run(gctx, s.runner)
			jr := &report.Jobs[i]
			jr.Duration = time.Since(start)
			if res == nil {
				res = jobs.ResultOf(err)
			}
			if res != nil {
				jr.ExitCode = res.ExitCode
			}

			if err != nil {
				jr.Error = err.Error()
				if breaker != nil {
					breaker.RecordFailure()
				}
				log.Printf("[Scheduler] job=%s failed: %v", job.Kind, err)
				errMu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", job.Kind, err))
				errMu.Unlock()
				// independent jobs; keep the others running
				return nil
			}
			if breaker != nil {
				breaker.RecordSuccess()
			}
			log.Printf("[Scheduler] job=%s completed duration=%v", job.Kind, jr.Duration)
			return nil
		})
	}

	_ = g.Wait()
	return report, errors.Join(errs...)
}

// Plan decides which enrichment jobs have work, in a fixed order.
func Plan(needs enrichment.Needs, batchLimit int) []PlannedJob {
	var plan []PlannedJob

	if needs.AnyScoreMissing() {
		pending := max(len(needs.WalkScoreMissing), len(needs.TransitMissing), len(needs.BikeMissing))
		plan = append(plan, PlannedJob{
			Kind:    jobs.KindWalkScore,
			Pending: pending,
			run: func(ctx context.Context, r jobs.Runner) (*jobs.Result, error) {
				return r.WalkScoreEnrich(ctx, jobs.WalkScoreOptions{})
			},
		})
	}

	if len(needs.MLSMissing) > 0 || len(needs.TaxMissing) > 0 {
		plan = append(plan, PlannedJob{
			Kind:    jobs.KindCompass,
			Pending: len(unionIDs(needs.MLSMissing, needs.TaxMissing)),
			run: func(ctx context.Context, r jobs.Runner) (*jobs.Result, error) {
				return r.CompassEnrich(ctx, jobs.CompassOptions{
					Limit:    batchLimit,
					Headless: true,
					UpdateDB: true,
				})
			},
		})
	}

	if !needs.CashflowUnavailable && len(needs.CashflowMissing) > 0 {
		plan = append(plan, PlannedJob{
			Kind:    jobs.KindCashflow,
			Pending: len(needs.CashflowMissing),
			run: func(ctx context.Context, r jobs.Runner) (*jobs.Result, error) {
				return r.CashflowEnrich(ctx, jobs.CashflowOptions{Limit: batchLimit})
			},
		})
	}

	return plan
}

func unionIDs(sets ...[]models.Listing) map[int64]struct{} {
	ids := make(map[int64]struct{})
	for _, set := range sets {
		for _, l := range set {
			ids[l.ID] = struct{}{}
		}
	}
	return ids
}

// CronSpec converts HH:MM to a daily cron specification.
// Example: "02:00" -> "0 2 * * *"
func CronSpec(timeStr string) (string, error) {
	hour, minute, err := config.ParseClock(timeStr)
	if err != nil {
		return "", fmt.Errorf("daily run time: %w", err)
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}
