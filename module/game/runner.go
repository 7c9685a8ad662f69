package game

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	otelTrace "go.opentelemetry.io/otel/trace"

	"github.com/onflow/evm-fleet/config"
	"github.com/onflow/evm-fleet/model/fleet"
	"github.com/onflow/evm-fleet/model/wallet"
	"github.com/onflow/evm-fleet/module"
	"github.com/onflow/evm-fleet/module/action"
	"github.com/onflow/evm-fleet/module/trace"
	"github.com/onflow/evm-fleet/module/util"
	"github.com/onflow/evm-fleet/utils/rand"
)

// PlayHangman is the name of the game action.
const PlayHangman = "play_hangman"

// statusStartupFailed labels episodes that never reached Playing.
const statusStartupFailed = "startup_failed"

// Params configures episodes.
type Params struct {
	Factory          common.Address
	CreateGame       config.CallConfig
	Guess            config.CallConfig
	MaxLives         int
	ErrorProbability float64
	Words            []string
}

// Runner plays one guessing game episode per wallet: it creates a game, resolves
// its address and guesses letters until the local simulation is won or lost.
type Runner struct {
	log      zerolog.Logger
	executor *action.Executor
	pacer    util.Pacer
	metrics  module.GameMetrics
	tracer   module.Tracer
	params   Params
}

var _ action.Action = (*Runner)(nil)

// NewRunner creates a runner. Empty Words and non-positive MaxLives fall back to
// the built-in word list and MaxLives.
func NewRunner(
	log zerolog.Logger,
	executor *action.Executor,
	pacer util.Pacer,
	metrics module.GameMetrics,
	tracer module.Tracer,
	params Params,
) *Runner {
	if len(params.Words) == 0 {
		params.Words = Words
	}
	if params.MaxLives < 1 {
		params.MaxLives = MaxLives
	}
	return &Runner{
		log:      log.With().Str("component", "game_runner").Logger(),
		executor: executor,
		pacer:    pacer,
		metrics:  metrics,
		tracer:   tracer,
		params:   params,
	}
}

func (r *Runner) Name() string {
	return PlayHangman
}

// Run plays one episode. The action succeeds once the episode reaches a terminal
// state, whether won or lost. Failed guess submissions are logged and the move is
// still applied to the local state, so the episode always terminates.
func (r *Runner) Run(ctx context.Context, w *wallet.Wallet) fleet.ActionResult {
	start := time.Now()
	span, ctx := r.tracer.StartSpanFromContext(ctx, trace.GameEpisode,
		otelTrace.WithAttributes(attribute.String("wallet", w.Address().Hex())))
	defer span.End()

	log := r.log.With().Str("wallet", w.Address().Hex()).Logger()

	// Created
	game, createHash, err := r.start(ctx, w)
	if err != nil {
		log.Error().Err(err).Msg("play_hangman failed")
		span.RecordError(err)
		r.metrics.GameFinished(statusStartupFailed, 0, time.Since(start))
		return r.failed(start, createHash, err)
	}
	log = log.With().Str("game", game.Hex()).Logger()
	span.SetAttributes(attribute.String("game", game.Hex()))

	word := rand.Pick(r.executor.Rand(), r.params.Words)
	state, err := NewState(word, r.params.MaxLives)
	if err != nil {
		return r.failed(start, createHash, err)
	}
	log.Info().Str("word", word).Msg("simulated secret word")

	// Playing
	guesses, failedGuesses := 0, 0
	for !state.Status().Terminal() {
		letter, ok := NextMove(state, r.params.ErrorProbability, r.executor.Rand())
		if !ok {
			state = state.Forfeit()
			break
		}

		var result fleet.ActionResult
		r.tracer.WithSpanFromContext(ctx, trace.GameGuess, func() {
			result = r.executor.Execute(ctx, w, GuessLetterCall(game, letter, r.params.Guess), nil)
		})
		guesses++
		if !result.Succeeded() {
			failedGuesses++
		}

		state = state.Apply(letter)
		log.Debug().
			Str("letter", string(letter)).
			Bool("submitted", result.Succeeded()).
			Str("display", state.Display()).
			Int("lives", state.Lives()).
			Msg("guess applied")

		if err := ctx.Err(); err != nil {
			r.metrics.GameFinished(state.Status().String(), guesses, time.Since(start))
			return r.failed(start, createHash, fmt.Errorf("episode interrupted after %d guesses: %w", guesses, err))
		}
		if state.Status().Terminal() {
			break
		}
		if err := r.pacer.Pause(ctx); err != nil {
			r.metrics.GameFinished(state.Status().String(), guesses, time.Since(start))
			return r.failed(start, createHash, fmt.Errorf("episode interrupted after %d guesses: %w", guesses, err))
		}
	}

	// Won | Lost
	status := state.Status()
	log.Info().
		Str("status", status.String()).
		Str("display", state.Display()).
		Int("lives", state.Lives()).
		Int("guesses", guesses).
		Int("failed_guesses", failedGuesses).
		Msgf("game completed: %s", status)
	span.SetAttributes(attribute.String("status", status.String()), attribute.Int("guesses", guesses))
	r.metrics.GameFinished(status.String(), guesses, time.Since(start))

	result := fleet.Success(PlayHangman, createHash)
	result.Duration = time.Since(start)
	return result
}

// start creates a game for the wallet and returns its address.
func (r *Runner) start(ctx context.Context, w *wallet.Wallet) (common.Address, common.Hash, error) {
	outcome, err := r.executor.Submit(ctx, w, CreateGameCall(r.params.Factory, r.params.CreateGame), nil)
	if err != nil {
		return common.Address{}, outcome.Hash, fmt.Errorf("create_game failed: %w", err)
	}
	r.log.Info().Str("wallet", w.Address().Hex()).Str("tx_hash", outcome.Hash.Hex()).Msg("create_game done")

	if game, ok := GameAddressFromLogs(outcome.Receipt.Logs); ok {
		return game, outcome.Hash, nil
	}

	r.log.Debug().Str("wallet", w.Address().Hex()).Msg("no GameCreated log, asking the factory")
	game, err := r.lookup(ctx, w.Address())
	if err != nil {
		return common.Address{}, outcome.Hash, NewGameStartupFailedError(w.Address(), err)
	}
	return game, outcome.Hash, nil
}

// lookup reads the game of player from the factory registry.
func (r *Runner) lookup(ctx context.Context, player common.Address) (common.Address, error) {
	data, err := GameAddressByPlayerCall(player)
	if err != nil {
		return common.Address{}, err
	}
	out, err := r.executor.Call(ctx, r.params.Factory, data)
	if err != nil {
		return common.Address{}, err
	}
	game, err := DecodeGameAddress(out)
	if err != nil {
		return common.Address{}, err
	}
	if game == (common.Address{}) {
		return common.Address{}, ErrNoGameAddress
	}
	return game, nil
}

func (r *Runner) failed(start time.Time, hash common.Hash, err error) fleet.ActionResult {
	result := fleet.Failed(PlayHangman, err)
	result.Hash = hash
	result.Duration = time.Since(start)
	return result
}
