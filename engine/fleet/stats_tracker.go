package fleet

import (
	"context"
	"sync"
	"time"

	"github.com/VividCortex/ewma"
	"github.com/rs/zerolog"

	model "github.com/onflow/evm-fleet/model/fleet"
)

type fleetStats struct {
	walletsInFlight int
	walletsDone     int
	walletsSkipped  int
	actionsOK       int
	actionsFailed   int

	actionsOKMovingAverage   float64
	actionsDoneMovingAverage float64
}

// StatsTracker keeps running totals of a fleet run along with moving averages of
// the per second success and completion rates of actions.
type StatsTracker struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mux             sync.Mutex
	stats           fleetStats
	actionsOKEWMA   ewma.MovingAverage
	actionsDoneEWMA ewma.MovingAverage
}

const defaultMovingAverageAge = 10

// NewStatsTracker returns a tracker updating its moving averages every second
// until ctx is done or Stop is called.
func NewStatsTracker(ctx context.Context) *StatsTracker {
	ctx, cancel := context.WithCancel(ctx)
	st := &StatsTracker{
		ctx:             ctx,
		cancel:          cancel,
		actionsOKEWMA:   ewma.NewMovingAverage(defaultMovingAverageAge),
		actionsDoneEWMA: ewma.NewMovingAverage(defaultMovingAverageAge),
	}

	st.wg.Add(1)
	go st.updateEWMAforever()
	return st
}

func (st *StatsTracker) updateEWMAforever() {
	defer st.wg.Done()

	t := time.NewTicker(time.Second)
	defer t.Stop()

	lastStats := st.getStats()
	for {
		select {
		case <-t.C:
			stats := st.getStats()
			st.updateEWMAonce(lastStats, stats)
			lastStats = stats
		case <-st.ctx.Done():
			return
		}
	}
}

func (st *StatsTracker) updateEWMAonce(lastStats, stats fleetStats) {
	st.mux.Lock()
	defer st.mux.Unlock()

	st.actionsOKEWMA.Add(float64(stats.actionsOK - lastStats.actionsOK))
	done := stats.actionsOK + stats.actionsFailed
	lastDone := lastStats.actionsOK + lastStats.actionsFailed
	st.actionsDoneEWMA.Add(float64(done - lastDone))
}

// LogPeriodically logs the current stats every interval until the tracker stops.
func (st *StatsTracker) LogPeriodically(log zerolog.Logger, interval time.Duration) {
	if interval <= 0 {
		return
	}
	st.wg.Add(1)
	go func() {
		defer st.wg.Done()

		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				st.log(log)
			case <-st.ctx.Done():
				return
			}
		}
	}()
}

func (st *StatsTracker) log(log zerolog.Logger) {
	stats := st.getStats()
	log.Info().
		Int("wallets_in_flight", stats.walletsInFlight).
		Int("wallets_done", stats.walletsDone).
		Int("wallets_skipped", stats.walletsSkipped).
		Int("actions_succeeded", stats.actionsOK).
		Int("actions_failed", stats.actionsFailed).
		Float64("actions_succeeded_ewma", stats.actionsOKMovingAverage).
		Float64("actions_done_ewma", stats.actionsDoneMovingAverage).
		Msg("fleet stats")
}

// Stop ends the background goroutines and waits for them to return.
func (st *StatsTracker) Stop() {
	st.cancel()
	st.wg.Wait()
}

func (st *StatsTracker) WalletStarted() {
	st.mux.Lock()
	defer st.mux.Unlock()

	st.stats.walletsInFlight++
}

// WalletFinished records the outcome of a wallet pipeline started with WalletStarted.
func (st *StatsTracker) WalletFinished(summary model.WalletSummary) {
	st.mux.Lock()
	defer st.mux.Unlock()

	st.stats.walletsInFlight--
	st.stats.walletsDone++
	if summary.Skipped {
		st.stats.walletsSkipped++
	}
}

func (st *StatsTracker) ActionFinished(result model.ActionResult) {
	st.mux.Lock()
	defer st.mux.Unlock()

	if result.Succeeded() {
		st.stats.actionsOK++
	} else {
		st.stats.actionsFailed++
	}
}

// WalletsInFlight returns the number of wallets currently being processed.
func (st *StatsTracker) WalletsInFlight() int {
	st.mux.Lock()
	defer st.mux.Unlock()

	return st.stats.walletsInFlight
}

func (st *StatsTracker) getStats() fleetStats {
	st.mux.Lock()
	defer st.mux.Unlock()

	st.stats.actionsOKMovingAverage = st.actionsOKEWMA.Value()
	st.stats.actionsDoneMovingAverage = st.actionsDoneEWMA.Value()
	return st.stats
}
