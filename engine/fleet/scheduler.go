package fleet

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"go.opentelemetry.io/otel/attribute"
	otelTrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"

	model "github.com/onflow/evm-fleet/model/fleet"
	"github.com/onflow/evm-fleet/model/wallet"
	"github.com/onflow/evm-fleet/module"
	"github.com/onflow/evm-fleet/module/action"
	"github.com/onflow/evm-fleet/module/trace"
	"github.com/onflow/evm-fleet/module/util"
	"github.com/onflow/evm-fleet/utils/rand"
)

// Scheduler fans the wallet pipeline out over a bounded pool of workers, one job
// per wallet. Wallets are isolated from each other: neither a failure nor a panic
// in one of them affects the others.
type Scheduler struct {
	log           zerolog.Logger
	pipeline      *Pipeline
	rng           rand.Source
	metrics       module.WalletMetrics
	tracer        module.Tracer
	shuffle       bool
	statsInterval time.Duration
	progress      io.Writer

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

type SchedulerOption func(*Scheduler)

// WithShuffledWallets randomizes the order in which wallets are scheduled.
func WithShuffledWallets(shuffle bool) SchedulerOption {
	return func(s *Scheduler) {
		s.shuffle = shuffle
	}
}

// WithStatsInterval logs fleet stats at the given interval while running. Zero
// disables periodic stats.
func WithStatsInterval(interval time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.statsInterval = interval
	}
}

// WithProgressBar renders a progress bar of processed wallets to w.
func WithProgressBar(w io.Writer) SchedulerOption {
	return func(s *Scheduler) {
		s.progress = w
	}
}

func NewScheduler(
	log zerolog.Logger,
	pipeline *Pipeline,
	rng rand.Source,
	metrics module.WalletMetrics,
	tracer module.Tracer,
	opts ...SchedulerOption,
) *Scheduler {
	s := &Scheduler{
		log:      log.With().Str("component", "fleet_scheduler").Logger(),
		pipeline: pipeline,
		rng:      rng,
		metrics:  metrics,
		tracer:   tracer,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run processes every wallet with at most workers wallets in flight and returns
// once all of them are done. The returned report holds one summary per wallet, in
// scheduling order. Canceling ctx lets in-flight wallets wind down and records
// the actions of wallets not yet started as failed.
func (s *Scheduler) Run(ctx context.Context, wallets []*wallet.Wallet, actions []action.Action, workers int) (model.Report, error) {
	if workers < 1 {
		return model.Report{}, fmt.Errorf("invalid number of workers %d: %w", workers, ErrInvalidWorkers)
	}

	start := time.Now()
	span, ctx := s.tracer.StartSpanFromContext(ctx, trace.FleetRun,
		otelTrace.WithAttributes(
			attribute.Int("wallets", len(wallets)),
			attribute.Int("workers", workers),
		))
	defer span.End()

	order := make([]*wallet.Wallet, len(wallets))
	copy(order, wallets)
	if s.shuffle {
		rand.Shuffle(s.rng, len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
	}

	s.log.Info().
		Int("wallets", len(order)).
		Int("workers", workers).
		Int("actions", len(actions)).
		Msg("starting fleet run")

	stats := NewStatsTracker(ctx)
	defer stats.Stop()
	stats.LogPeriodically(s.log, s.statsInterval)

	logProgress := util.LogProgress(s.log, util.DefaultLogProgressConfig("wallets", len(order)))
	var bar *progressbar.ProgressBar
	if s.progress != nil {
		bar = progressbar.NewOptions(len(order),
			progressbar.OptionSetWriter(s.progress),
			progressbar.OptionSetDescription("wallets"),
			progressbar.OptionShowCount(),
		)
	}

	summaries := make([]model.WalletSummary, len(order))
	pool := workerpool.New(workers)
	for i, w := range order {
		i, w := i, w
		pool.Submit(func() {
			summaries[i] = s.runWallet(ctx, w, actions, stats)
			logProgress(1)
			if bar != nil {
				_ = bar.Add(1)
			}
		})
	}
	pool.StopWait()
	if bar != nil {
		_ = bar.Finish()
	}

	report := model.Report{Wallets: summaries, Duration: time.Since(start)}
	processed, skipped, succeeded, failed := report.Counts()
	span.SetAttributes(
		attribute.Int("processed", processed),
		attribute.Int("skipped", skipped),
		attribute.Int("succeeded", succeeded),
		attribute.Int("failed", failed),
	)
	s.log.Info().
		Int32("max_concurrent_wallets", s.maxInFlight.Load()).
		Dur("duration", report.Duration).
		Msg("fleet run finished")
	return report, nil
}

// MaxConcurrentWallets returns the highest number of wallets processed at the same
// time so far.
func (s *Scheduler) MaxConcurrentWallets() int {
	return int(s.maxInFlight.Load())
}

// runWallet runs one wallet job. A panic escaping the pipeline is turned into a
// failed summary for that wallet.
func (s *Scheduler) runWallet(ctx context.Context, w *wallet.Wallet, actions []action.Action, stats *StatsTracker) (summary model.WalletSummary) {
	start := time.Now()
	s.enter()
	s.metrics.WalletStarted()
	stats.WalletStarted()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("wallet pipeline panicked: %v", r)
			s.log.Error().Err(err).Str("wallet", w.Address().Hex()).Msg("wallet failed")
			summary = model.WalletSummary{Address: w.Address()}
			summary.Record(model.Failed("wallet", err))
			summary.Duration = time.Since(start)
		}
		s.inFlight.Dec()
		s.metrics.WalletFinished(time.Since(start))
		stats.WalletFinished(summary)
	}()

	return s.pipeline.run(ctx, w, actions, stats)
}

func (s *Scheduler) enter() {
	n := s.inFlight.Inc()
	for {
		max := s.maxInFlight.Load()
		if n <= max || s.maxInFlight.CompareAndSwap(max, n) {
			return
		}
	}
}
