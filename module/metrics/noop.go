package metrics

import (
	"time"

	"github.com/onflow/evm-fleet/module"
)

var _ module.FleetMetrics = (*NoopCollector)(nil)

type NoopCollector struct{}

func NewNoopCollector() *NoopCollector {
	nc := &NoopCollector{}
	return nc
}

func (nc *NoopCollector) GasEstimationAttempt(action string, success bool)                    {}
func (nc *NoopCollector) TransactionSubmitted(action string)                                  {}
func (nc *NoopCollector) ActionFinished(action string, status string, duration time.Duration) {}
func (nc *NoopCollector) GameFinished(status string, guesses int, duration time.Duration)     {}
func (nc *NoopCollector) WalletStarted()                                                      {}
func (nc *NoopCollector) WalletSkipped(reason string)                                         {}
func (nc *NoopCollector) WalletFinished(duration time.Duration)                               {}
func (nc *NoopCollector) NodeReachable(endpoint string, rtt time.Duration)                    {}
