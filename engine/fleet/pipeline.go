package fleet

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	otelTrace "go.opentelemetry.io/otel/trace"

	model "github.com/onflow/evm-fleet/model/fleet"
	"github.com/onflow/evm-fleet/model/wallet"
	"github.com/onflow/evm-fleet/module"
	"github.com/onflow/evm-fleet/module/action"
	"github.com/onflow/evm-fleet/module/evmclient"
	"github.com/onflow/evm-fleet/module/trace"
	"github.com/onflow/evm-fleet/module/util"
	"github.com/onflow/evm-fleet/utils/rand"
)

// Pipeline runs the action list of a single wallet. It holds no per-wallet state
// and is shared by all workers.
type Pipeline struct {
	log        zerolog.Logger
	client     evmclient.Client
	rng        rand.Source
	pacer      util.Pacer
	minBalance *big.Int
	deadline   time.Duration
	metrics    module.WalletMetrics
	tracer     module.Tracer
}

type PipelineOption func(*Pipeline)

// WithWalletDeadline bounds the time spent on one wallet. Actions still pending
// when it expires are recorded as failed. Zero disables the deadline.
func WithWalletDeadline(deadline time.Duration) PipelineOption {
	return func(p *Pipeline) {
		p.deadline = deadline
	}
}

// WithMinBalance sets the native balance, in wei, a wallet needs to be processed.
func WithMinBalance(minBalance *big.Int) PipelineOption {
	return func(p *Pipeline) {
		p.minBalance = minBalance
	}
}

func NewPipeline(
	log zerolog.Logger,
	client evmclient.Client,
	rng rand.Source,
	pacer util.Pacer,
	metrics module.WalletMetrics,
	tracer module.Tracer,
	opts ...PipelineOption,
) *Pipeline {
	p := &Pipeline{
		log:        log.With().Str("component", "wallet_pipeline").Logger(),
		client:     client,
		rng:        rng,
		pacer:      pacer,
		minBalance: new(big.Int),
		metrics:    metrics,
		tracer:     tracer,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run checks the balance of the wallet, then runs the actions in a random order
// with a pause after each of them. A failing action is recorded and never stops
// the remaining ones.
func (p *Pipeline) Run(ctx context.Context, w *wallet.Wallet, actions []action.Action) model.WalletSummary {
	return p.run(ctx, w, actions, nil)
}

// run is Run reporting finished actions to stats, which may be nil.
func (p *Pipeline) run(ctx context.Context, w *wallet.Wallet, actions []action.Action, stats *StatsTracker) (summary model.WalletSummary) {
	start := time.Now()
	summary.Address = w.Address()
	defer func() {
		summary.Duration = time.Since(start)
	}()

	log := p.log.With().Str("wallet", w.Address().Hex()).Logger()
	span, ctx := p.tracer.StartSpanFromContext(ctx, trace.WalletPipeline,
		otelTrace.WithAttributes(attribute.String("wallet", w.Address().Hex())))
	defer span.End()

	if p.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.deadline)
		defer cancel()
	}

	order := p.shuffle(actions)

	// nothing is submitted once the run is canceled
	if err := ctx.Err(); err != nil {
		p.cancelRemaining(&summary, order, err)
		return summary
	}

	log.Info().Msg("processing wallet")
	if !p.checkBalance(ctx, log, &summary) {
		span.SetAttributes(attribute.String("skipped", summary.SkipReason))
		return summary
	}

	for i, a := range order {
		if err := ctx.Err(); err != nil {
			p.cancelRemaining(&summary, order[i:], err)
			break
		}

		result := p.runAction(ctx, log, w, a)
		summary.Record(result)
		if stats != nil {
			stats.ActionFinished(result)
		}

		if err := p.pacer.Pause(ctx); err != nil {
			p.cancelRemaining(&summary, order[i+1:], err)
			break
		}
	}

	span.SetAttributes(
		attribute.Int("succeeded", summary.Succeeded()),
		attribute.Int("failed", summary.Failed()),
	)
	log.Info().
		Int("succeeded", summary.Succeeded()).
		Int("failed", summary.Failed()).
		AnErr("failures", summary.Err()).
		Msg("wallet done")
	return summary
}

// checkBalance returns false if the wallet must be skipped.
func (p *Pipeline) checkBalance(ctx context.Context, log zerolog.Logger, summary *model.WalletSummary) bool {
	balance, err := p.client.BalanceOf(ctx, summary.Address)
	if err != nil {
		log.Error().Err(err).Msg("could not query balance, skipping wallet")
		summary.Skip(skipReason(skipBalanceQuery, err))
		p.metrics.WalletSkipped(skipBalanceQuery)
		return false
	}
	if balance.Cmp(p.minBalance) < 0 {
		log.Warn().
			Str("balance", balance.String()).
			Str("min_balance", p.minBalance.String()).
			Msg("insufficient balance, skipping wallet")
		summary.Skip(skipReason(skipLowBalance, ErrLowBalance))
		p.metrics.WalletSkipped(skipLowBalance)
		return false
	}
	return true
}

// runAction runs a single action. A panic is recovered and reported as a failure
// of that action.
func (p *Pipeline) runAction(ctx context.Context, log zerolog.Logger, w *wallet.Wallet, a action.Action) (result model.ActionResult) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("action panicked: %v", r)
			log.Error().Err(err).Str("action", a.Name()).Msg("action failed")
			result = model.Failed(a.Name(), err)
		}
	}()
	return a.Run(ctx, w)
}

// cancelRemaining records every action that did not get to run as failed.
func (p *Pipeline) cancelRemaining(summary *model.WalletSummary, remaining []action.Action, err error) {
	for _, a := range remaining {
		summary.Record(model.Failed(a.Name(), fmt.Errorf("canceled before %s: %w", a.Name(), err)))
	}
	if len(remaining) > 0 {
		p.log.Warn().
			Err(err).
			Str("wallet", summary.Address.Hex()).
			Int("remaining", len(remaining)).
			Msg("wallet interrupted")
	}
}

// shuffle returns a shuffled copy of actions.
func (p *Pipeline) shuffle(actions []action.Action) []action.Action {
	order := make([]action.Action, len(actions))
	copy(order, actions)
	rand.Shuffle(p.rng, len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	return order
}
