package action

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel/attribute"
	otelTrace "go.opentelemetry.io/otel/trace"

	"github.com/onflow/evm-fleet/model/fleet"
	"github.com/onflow/evm-fleet/model/wallet"
	"github.com/onflow/evm-fleet/module"
	"github.com/onflow/evm-fleet/module/evmclient"
	"github.com/onflow/evm-fleet/module/trace"
	"github.com/onflow/evm-fleet/utils/rand"
)

const (
	// EstimateAttempts is the number of gas estimations tried before an action is
	// abandoned.
	EstimateAttempts = 3

	// DefaultEstimateRetryDelay is the pause between two gas estimation attempts.
	DefaultEstimateRetryDelay = time.Second
)

// Executor builds, signs and submits single contract calls and classifies their
// receipts. It is shared by all wallet workers and holds no per-wallet state.
type Executor struct {
	log     zerolog.Logger
	client  evmclient.Client
	sign    evmclient.SignFunc
	rng     rand.Source
	metrics module.ActionMetrics
	tracer  module.Tracer
	chainID *big.Int

	estimateRetryDelay time.Duration
}

type ExecutorOption func(*Executor)

// WithSigner replaces the default EIP-155 signer.
func WithSigner(sign evmclient.SignFunc) ExecutorOption {
	return func(e *Executor) {
		e.sign = sign
	}
}

// WithEstimateRetryDelay sets the pause between two gas estimation attempts.
func WithEstimateRetryDelay(delay time.Duration) ExecutorOption {
	return func(e *Executor) {
		if delay > 0 {
			e.estimateRetryDelay = delay
		}
	}
}

// NewExecutor creates an executor submitting transactions for the given chain.
func NewExecutor(
	log zerolog.Logger,
	client evmclient.Client,
	chainID *big.Int,
	rng rand.Source,
	metrics module.ActionMetrics,
	tracer module.Tracer,
	opts ...ExecutorOption,
) *Executor {
	e := &Executor{
		log:                log.With().Str("component", "action_executor").Logger(),
		client:             client,
		sign:               evmclient.Sign,
		rng:                rng,
		metrics:            metrics,
		tracer:             tracer,
		chainID:            chainID,
		estimateRetryDelay: DefaultEstimateRetryDelay,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs one contract call for the wallet and reduces it to an ActionResult.
// amount is passed to the call data builder and may be nil.
func (e *Executor) Execute(ctx context.Context, w *wallet.Wallet, spec CallSpec, amount *big.Int) fleet.ActionResult {
	start := time.Now()
	log := e.log.With().Str("wallet", w.Address().Hex()).Str("action", spec.Name).Logger()

	outcome, err := e.Submit(ctx, w, spec, amount)
	var result fleet.ActionResult
	if err != nil {
		log.Error().Err(err).Msgf("%s failed", spec.Name)
		result = fleet.Failed(spec.Name, err)
		result.Hash = outcome.Hash
	} else {
		log.Info().Str("tx_hash", outcome.Hash.Hex()).Msgf("%s done", spec.Name)
		result = fleet.Success(spec.Name, outcome.Hash)
	}
	result.Duration = time.Since(start)

	e.metrics.ActionFinished(spec.Name, result.Status.String(), result.Duration)
	return result
}

// Submit runs one contract call for the wallet and returns the classified outcome.
// A receipt with a status other than 1 yields a TransactionRevertedError along with
// the outcome, so callers can still inspect the receipt.
func (e *Executor) Submit(ctx context.Context, w *wallet.Wallet, spec CallSpec, amount *big.Int) (fleet.TransactionOutcome, error) {
	span, ctx := e.tracer.StartSpanFromContext(ctx, trace.ActionExecute,
		otelTrace.WithAttributes(
			attribute.String("action", spec.Name),
			attribute.String("wallet", w.Address().Hex()),
		))
	defer span.End()

	log := e.log.With().Str("wallet", w.Address().Hex()).Str("action", spec.Name).Logger()

	intent, err := e.buildIntent(ctx, w, spec, amount)
	if err != nil {
		span.RecordError(err)
		return fleet.TransactionOutcome{}, err
	}

	log.Trace().Uint64("initial_gas", intent.GasLimit).Uint64("nonce", intent.Nonce).Msg("estimating gas")
	err = e.estimateGas(ctx, spec, intent)
	if err != nil {
		span.RecordError(err)
		return fleet.TransactionOutcome{}, err
	}

	log.Trace().Uint64("gas", intent.GasLimit).Msg("signing transaction")
	if err := intent.Consume(); err != nil {
		return fleet.TransactionOutcome{}, err
	}
	signed, err := e.sign(intent, w.PrivateKey())
	if err != nil {
		span.RecordError(err)
		return fleet.TransactionOutcome{}, fmt.Errorf("could not sign %s: %w", spec.Name, err)
	}

	log.Trace().Msg("sending transaction")
	hash, err := e.client.SendRaw(ctx, signed)
	if err != nil {
		span.RecordError(err)
		return fleet.TransactionOutcome{}, NewTransientRPCError("send_raw_transaction", err)
	}
	e.metrics.TransactionSubmitted(spec.Name)
	span.SetAttributes(attribute.String("tx_hash", hash.Hex()))

	log.Trace().Str("tx_hash", hash.Hex()).Msg("waiting for receipt")
	receiptSpan, receiptCtx := e.tracer.StartSpanFromContext(ctx, trace.AwaitReceipt)
	receipt, err := e.client.AwaitReceipt(receiptCtx, hash)
	receiptSpan.End()
	if err != nil {
		span.RecordError(err)
		return fleet.TransactionOutcome{Hash: hash}, NewTransientRPCError("await_receipt", err)
	}

	outcome := fleet.NewTransactionOutcome(hash, receipt)
	if !outcome.Success {
		err := NewTransactionRevertedError(hash, receipt.Status)
		span.RecordError(err)
		return outcome, err
	}
	return outcome, nil
}

// buildIntent samples the initial gas limit and queries gas price and nonce.
func (e *Executor) buildIntent(ctx context.Context, w *wallet.Wallet, spec CallSpec, amount *big.Int) (*fleet.TransactionIntent, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	data, err := spec.CallData(w.Address(), amount)
	if err != nil {
		return nil, fmt.Errorf("could not build call data for %s: %w", spec.Name, err)
	}

	gasPrice, err := e.client.GasPrice(ctx)
	if err != nil {
		return nil, NewTransientRPCError("gas_price", err)
	}

	nonce, err := e.client.NonceOf(ctx, w.Address())
	if err != nil {
		return nil, NewTransientRPCError("nonce", err)
	}

	return &fleet.TransactionIntent{
		ChainID:  e.chainID,
		To:       spec.To,
		From:     w.Address(),
		Data:     data,
		GasLimit: spec.Gas.Sample(e.rng),
		GasPrice: gasPrice,
		Nonce:    nonce,
	}, nil
}

// estimateGas refines the intent's gas limit to ceil(estimate * multiplier). It
// makes at most EstimateAttempts attempts and fails with GasEstimationFailedError
// once all of them failed. No fallback limit is ever used.
func (e *Executor) estimateGas(ctx context.Context, spec CallSpec, intent *fleet.TransactionIntent) error {
	span, ctx := e.tracer.StartSpanFromContext(ctx, trace.GasEstimation)
	defer span.End()

	backoff := retry.NewConstant(e.estimateRetryDelay)
	backoff = retry.WithMaxRetries(EstimateAttempts-1, backoff)

	attempts := uint64(0)
	var estimate uint64
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		gas, err := e.client.EstimateGas(ctx, intent)
		e.metrics.GasEstimationAttempt(spec.Name, err == nil)
		if err != nil {
			e.log.Debug().Err(err).
				Str("wallet", intent.From.Hex()).
				Str("action", spec.Name).
				Uint64("attempt", attempts).
				Msg("gas estimation failed")
			return retry.RetryableError(err)
		}
		estimate = gas
		return nil
	})
	span.SetAttributes(attribute.Int64("attempts", int64(attempts)))
	if err != nil {
		if ctx.Err() != nil && attempts < EstimateAttempts {
			return NewTransientRPCError("estimate_gas", err)
		}
		return NewGasEstimationFailedError(attempts, err)
	}

	intent.GasLimit = ScaleGas(estimate, spec.GasMultiplier)
	return nil
}

// Call runs a read-only contract call.
func (e *Executor) Call(ctx context.Context, contract common.Address, data []byte) ([]byte, error) {
	out, err := e.client.Call(ctx, contract, data)
	if err != nil {
		return nil, NewTransientRPCError("call", err)
	}
	return out, nil
}

// Rand returns the random source shared by the executor and composite actions.
func (e *Executor) Rand() rand.Source {
	return e.rng
}
