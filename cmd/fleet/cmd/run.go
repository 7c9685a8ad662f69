package cmd

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/onflow/evm-fleet/config"
	"github.com/onflow/evm-fleet/engine/fleet"
	model "github.com/onflow/evm-fleet/model/fleet"
	"github.com/onflow/evm-fleet/model/wallet"
	"github.com/onflow/evm-fleet/module"
	"github.com/onflow/evm-fleet/module/action"
	"github.com/onflow/evm-fleet/module/evmclient"
	"github.com/onflow/evm-fleet/module/game"
	"github.com/onflow/evm-fleet/module/metrics"
	"github.com/onflow/evm-fleet/module/trace"
	"github.com/onflow/evm-fleet/module/util"
	"github.com/onflow/evm-fleet/utils/logging"
	"github.com/onflow/evm-fleet/utils/rand"
)

const (
	serviceName  = "evm-fleet"
	connectDelay = 2 * time.Second
)

var flagProgress bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every enabled action for every wallet of the wallet file",
	RunE:  runFleet,
}

func init() {
	flags := runCmd.Flags()
	flags.String("rpc-url", "", "URL of the node")
	flags.Int("workers", 0, "number of wallets processed concurrently, prompted for when 0")
	flags.String("wallets", "", "file holding one private key per line")
	flags.Bool("shuffle-wallets", true, "process wallets in random order")
	flags.Int64("seed", 0, "seed of the random source, 0 draws from crypto/rand")
	flags.Duration("wallet-deadline", 0, "maximum time spent on one wallet, 0 disables the deadline")
	flags.String("log-level", "", "log level")
	flags.String("log-file", "", "file the log is appended to")
	flags.Bool("metrics", false, "serve prometheus metrics")
	flags.Uint("metrics-port", 0, "port of the metrics server")
	flags.Bool("tracing", false, "export traces over OTLP")
	flags.String("report", "", "file the JSON report is written to")
	flags.BoolVar(&flagProgress, "progress", false, "render a progress bar on stderr")
}

func runFleet(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(v, flagConfigFile, cmd.Flags())
	if err != nil {
		return err
	}

	runID := logging.NewRunID()
	logger, err := logging.New(os.Stderr, cfg.Log.File, cfg.Log.Level, runID)
	if err != nil {
		return err
	}
	defer logger.Close()
	log := logger.Logger

	if err := run(ctx, log, cfg, runID, cmd); err != nil {
		log.Error().Err(err).Msg("fleet run failed")
		return err
	}
	return nil
}

func run(ctx context.Context, log zerolog.Logger, cfg *config.Config, runID string, cmd *cobra.Command) error {
	wallets, err := wallet.LoadFile(cfg.Fleet.WalletFile)
	if err != nil {
		return err
	}
	log.Info().Int("wallets", len(wallets)).Str("file", cfg.Fleet.WalletFile).Msg("wallets loaded")

	workers := cfg.Fleet.Workers
	if workers == 0 {
		workers, err = promptWorkers(cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
	}

	registry := prometheus.NewRegistry()
	var collector module.FleetMetrics = metrics.NewNoopCollector()
	if cfg.Metrics.Enabled {
		collector = metrics.NewFleetCollector(registry)
	}

	var tracer module.Tracer = trace.NewNoopTracer()
	if cfg.Tracing.Enabled {
		tracer, err = trace.NewTracer(log, serviceName, strconv.FormatUint(cfg.ChainID, 10), cfg.Tracing.Endpoint)
		if err != nil {
			return err
		}
	}
	<-util.AllReady(tracer)
	defer func() {
		<-util.AllDone(tracer)
	}()

	client, err := evmclient.Dial(ctx, log, cfg.RPC.URL, evmclient.Params{
		ReceiptPollInterval: cfg.RPC.ReceiptPollInterval,
		ReceiptTimeout:      cfg.RPC.ReceiptTimeout,
		RateLimit:           cfg.RPC.RateLimit,
		RateBurst:           cfg.RPC.RateBurst,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	if err := connect(ctx, log, client, collector, cfg.RPC.URL, cfg.RPC.ConnectAttempts, connectDelay); err != nil {
		return err
	}
	chainID := new(big.Int).SetUint64(cfg.ChainID)
	if err := checkChainID(ctx, client, chainID); err != nil {
		return err
	}

	rng := rand.NewSecureSource()
	if cfg.Fleet.Seed != 0 {
		rng = rand.NewSeededSource(cfg.Fleet.Seed)
	}
	pacer := util.NewPacer(rng, cfg.Fleet.TxDelayMin, cfg.Fleet.TxDelayMax)

	executor := action.NewExecutor(log, client, chainID, rng, collector, tracer,
		action.WithEstimateRetryDelay(cfg.Actions.EstimateRetryDelay))
	actions, err := buildActions(log, executor, pacer, collector, tracer, cfg)
	if err != nil {
		return err
	}

	minBalance, err := cfg.Fleet.MinBalanceWei()
	if err != nil {
		return err
	}
	pipeline := fleet.NewPipeline(log, client, rng, pacer, collector, tracer,
		fleet.WithMinBalance(minBalance),
		fleet.WithWalletDeadline(cfg.Fleet.WalletDeadline))

	schedulerOpts := []fleet.SchedulerOption{
		fleet.WithShuffledWallets(cfg.Fleet.ShuffleWallets),
		fleet.WithStatsInterval(cfg.Fleet.StatsInterval),
	}
	if flagProgress {
		schedulerOpts = append(schedulerOpts, fleet.WithProgressBar(cmd.ErrOrStderr()))
	}
	scheduler := fleet.NewScheduler(log, pipeline, rng, collector, tracer, schedulerOpts...)

	g, gCtx := errgroup.WithContext(ctx)
	serveCtx, stopServing := context.WithCancel(gCtx)
	defer stopServing()

	if cfg.Metrics.Enabled {
		server := metrics.NewServer(log, cfg.Metrics.Port, registry)
		g.Go(func() error {
			return server.Run(serveCtx)
		})
	}

	var report model.Report
	g.Go(func() error {
		defer stopServing()
		var err error
		report, err = scheduler.Run(gCtx, wallets, actions, workers)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	return finish(ctx, log, runID, report, cfg.Report.File)
}

// finish logs the summary and writes the optional report. A run stopped by a
// signal still reports what it did, then fails so the process exits non-zero.
func finish(ctx context.Context, log zerolog.Logger, runID string, report model.Report, reportFile string) error {
	summary := fleet.Summarize(runID, report)
	fleet.LogSummary(log, summary)
	if reportFile != "" {
		if err := fleet.WriteSummary(reportFile, summary); err != nil {
			return err
		}
		log.Info().Str("file", reportFile).Msg("report written")
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("fleet run interrupted: %w", err)
	}
	return nil
}

// buildActions returns the enabled actions in configuration order.
func buildActions(
	log zerolog.Logger,
	executor *action.Executor,
	pacer util.Pacer,
	gameMetrics module.GameMetrics,
	tracer module.Tracer,
	cfg *config.Config,
) ([]action.Action, error) {
	available := action.TokenActions(executor, pacer, cfg.Contracts, cfg.Actions)
	available[game.PlayHangman] = game.NewRunner(log, executor, pacer, gameMetrics, tracer, game.Params{
		Factory:          cfg.Contracts.GameFactoryAddress(),
		CreateGame:       cfg.Actions.CreateGame,
		Guess:            cfg.Actions.Guess,
		MaxLives:         cfg.Game.MaxLives,
		ErrorProbability: cfg.Game.ErrorProbability,
	})
	return action.Select(available, cfg.Actions.Enabled)
}

// checkChainID fails if the node serves another chain than the one transactions
// are signed for.
func checkChainID(ctx context.Context, client *evmclient.EthClient, expected *big.Int) error {
	actual, err := client.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("could not read chain id: %w", err)
	}
	if actual.Cmp(expected) != 0 {
		return fmt.Errorf("node serves chain %s, configured chain is %s: %w", actual, expected, config.ErrInvalidConfig)
	}
	return nil
}
