package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/onflow/evm-fleet/module"
)

var _ module.FleetMetrics = (*FleetCollector)(nil)

// FleetCollector records action, game and wallet metrics of a fleet run.
type FleetCollector struct {
	*PingCollector

	gasEstimations  *prometheus.CounterVec
	txsSubmitted    *prometheus.CounterVec
	actions         *prometheus.CounterVec
	actionDuration  *prometheus.HistogramVec
	games           *prometheus.CounterVec
	gameGuesses     prometheus.Histogram
	gameDuration    prometheus.Histogram
	walletsStarted  prometheus.Counter
	walletsSkipped  *prometheus.CounterVec
	walletsInFlight prometheus.Gauge
	walletDuration  prometheus.Histogram
}

// NewFleetCollector creates the collector and registers its metrics with registerer.
func NewFleetCollector(registerer prometheus.Registerer) *FleetCollector {
	factory := promauto.With(registerer)

	return &FleetCollector{
		PingCollector: NewPingCollector(registerer),

		gasEstimations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceFleet,
			Subsystem: subsystemAction,
			Name:      "gas_estimations_total",
			Help:      "number of gas estimation attempts",
		}, []string{LabelAction, LabelResult}),

		txsSubmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceFleet,
			Subsystem: subsystemAction,
			Name:      "transactions_submitted_total",
			Help:      "number of signed transactions broadcast to the node",
		}, []string{LabelAction}),

		actions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceFleet,
			Subsystem: subsystemAction,
			Name:      "finished_total",
			Help:      "number of finished actions by terminal status",
		}, []string{LabelAction, LabelStatus}),

		actionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespaceFleet,
			Subsystem: subsystemAction,
			Name:      "duration_seconds",
			Help:      "time from building an intent to its classified receipt",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120, 300},
		}, []string{LabelAction}),

		games: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceFleet,
			Subsystem: subsystemGame,
			Name:      "episodes_total",
			Help:      "number of game episodes by terminal status",
		}, []string{LabelStatus}),

		gameGuesses: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespaceFleet,
			Subsystem: subsystemGame,
			Name:      "guesses",
			Help:      "number of guesses submitted per episode",
			Buckets:   prometheus.LinearBuckets(0, 2, 13),
		}),

		gameDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespaceFleet,
			Subsystem: subsystemGame,
			Name:      "duration_seconds",
			Help:      "duration of one game episode",
			Buckets:   prometheus.ExponentialBuckets(10, 2, 8),
		}),

		walletsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespaceFleet,
			Subsystem: subsystemWallet,
			Name:      "started_total",
			Help:      "number of wallets picked up by a worker",
		}),

		walletsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceFleet,
			Subsystem: subsystemWallet,
			Name:      "skipped_total",
			Help:      "number of wallets skipped before any submission",
		}, []string{LabelReason}),

		walletsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespaceFleet,
			Subsystem: subsystemWallet,
			Name:      "in_flight",
			Help:      "number of wallets currently processed",
		}),

		walletDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespaceFleet,
			Subsystem: subsystemWallet,
			Name:      "duration_seconds",
			Help:      "duration of one wallet pipeline",
			Buckets:   prometheus.ExponentialBuckets(30, 2, 8),
		}),
	}
}

func (c *FleetCollector) GasEstimationAttempt(action string, success bool) {
	result := ResultFailure
	if success {
		result = ResultSuccess
	}
	c.gasEstimations.WithLabelValues(action, result).Inc()
}

func (c *FleetCollector) TransactionSubmitted(action string) {
	c.txsSubmitted.WithLabelValues(action).Inc()
}

func (c *FleetCollector) ActionFinished(action string, status string, duration time.Duration) {
	c.actions.WithLabelValues(action, status).Inc()
	c.actionDuration.WithLabelValues(action).Observe(duration.Seconds())
}

func (c *FleetCollector) GameFinished(status string, guesses int, duration time.Duration) {
	c.games.WithLabelValues(status).Inc()
	c.gameGuesses.Observe(float64(guesses))
	c.gameDuration.Observe(duration.Seconds())
}

func (c *FleetCollector) WalletStarted() {
	c.walletsStarted.Inc()
	c.walletsInFlight.Inc()
}

func (c *FleetCollector) WalletSkipped(reason string) {
	c.walletsSkipped.WithLabelValues(reason).Inc()
}

func (c *FleetCollector) WalletFinished(duration time.Duration) {
	c.walletsInFlight.Dec()
	c.walletDuration.Observe(duration.Seconds())
}
