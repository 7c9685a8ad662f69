package module

import (
	"time"
)

// ActionMetrics tracks the execution of single contract calls.
type ActionMetrics interface {
	// GasEstimationAttempt is called after every gas estimation attempt.
	GasEstimationAttempt(action string, success bool)

	// TransactionSubmitted is called once a signed transaction was broadcast.
	TransactionSubmitted(action string)

	// ActionFinished is called once per action with its terminal status.
	ActionFinished(action string, status string, duration time.Duration)
}

// GameMetrics tracks guessing game episodes.
type GameMetrics interface {
	// GameFinished is called when an episode reaches a terminal state or fails to start.
	GameFinished(status string, guesses int, duration time.Duration)
}

// WalletMetrics tracks wallet pipelines.
type WalletMetrics interface {
	// WalletStarted is called when a worker picks up a wallet.
	WalletStarted()

	// WalletSkipped is called when a wallet is skipped by the balance pre-check.
	WalletSkipped(reason string)

	// WalletFinished is called when the pipeline of a wallet returns.
	WalletFinished(duration time.Duration)
}

// PingMetrics tracks reachability of the RPC endpoint.
type PingMetrics interface {
	// NodeReachable records the round trip time of a connectivity check.
	// A non-positive rtt means the node was unreachable.
	NodeReachable(endpoint string, rtt time.Duration)
}

// FleetMetrics is the union of all metrics recorded during a fleet run.
type FleetMetrics interface {
	ActionMetrics
	GameMetrics
	WalletMetrics
	PingMetrics
}
