package fleet

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/docker/go-units"
	"github.com/ethereum/go-ethereum/common"
	"github.com/montanaflynn/stats"
	"github.com/rs/zerolog"

	model "github.com/onflow/evm-fleet/model/fleet"
)

// Summary is the aggregated, serializable view of a fleet report.
type Summary struct {
	RunID    string        `json:"run_id,omitempty"`
	Duration time.Duration `json:"duration_ns"`

	Wallets   int `json:"wallets"`
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`

	Actions map[string]ActionSummary `json:"actions"`
	Latency Latency                  `json:"latency"`
	Details []WalletDetail           `json:"wallet_details"`
}

// ActionSummary counts the outcomes of one action across the fleet.
type ActionSummary struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Latency holds percentiles of action durations, in seconds.
type Latency struct {
	P50 float64 `json:"p50"`
	P90 float64 `json:"p90"`
	P99 float64 `json:"p99"`
	Max float64 `json:"max"`
}

type WalletDetail struct {
	Address    string         `json:"address"`
	Skipped    bool           `json:"skipped"`
	SkipReason string         `json:"skip_reason,omitempty"`
	Duration   time.Duration  `json:"duration_ns"`
	Results    []ResultDetail `json:"results"`
}

type ResultDetail struct {
	Action   string        `json:"action"`
	Status   string        `json:"status"`
	Hash     string        `json:"tx_hash,omitempty"`
	Reason   string        `json:"reason,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Summarize aggregates a report.
func Summarize(runID string, report model.Report) Summary {
	s := Summary{
		RunID:    runID,
		Duration: report.Duration,
		Wallets:  len(report.Wallets),
		Actions:  make(map[string]ActionSummary),
		Details:  make([]WalletDetail, 0, len(report.Wallets)),
	}
	s.Processed, s.Skipped, s.Succeeded, s.Failed = report.Counts()

	var durations stats.Float64Data
	for _, w := range report.Wallets {
		detail := WalletDetail{
			Address:    w.Address.Hex(),
			Skipped:    w.Skipped,
			SkipReason: w.SkipReason,
			Duration:   w.Duration,
			Results:    make([]ResultDetail, 0, len(w.Results)),
		}
		for _, r := range w.Results {
			counts := s.Actions[r.Action]
			if r.Succeeded() {
				counts.Succeeded++
			} else {
				counts.Failed++
			}
			s.Actions[r.Action] = counts

			result := ResultDetail{
				Action:   r.Action,
				Status:   r.Status.String(),
				Reason:   r.Reason,
				Duration: r.Duration,
			}
			if r.Hash != (common.Hash{}) {
				result.Hash = r.Hash.Hex()
			}
			detail.Results = append(detail.Results, result)

			if r.Duration > 0 {
				durations = append(durations, r.Duration.Seconds())
			}
		}
		s.Details = append(s.Details, detail)
	}
	s.Latency = latency(durations)
	return s
}

// latency is zero for an empty sample.
func latency(durations stats.Float64Data) Latency {
	if durations.Len() == 0 {
		return Latency{}
	}
	var l Latency
	l.P50, _ = durations.Percentile(50)
	l.P90, _ = durations.Percentile(90)
	l.P99, _ = durations.Percentile(99)
	l.Max, _ = durations.Max()
	return l
}

// LogSummary writes one line per wallet followed by the fleet totals.
func LogSummary(log zerolog.Logger, s Summary) {
	for _, w := range s.Details {
		ev := log.Info()
		if w.Skipped {
			ev = log.Warn().Str("skip_reason", w.SkipReason)
		}
		succeeded, failed := 0, 0
		var failures []string
		for _, r := range w.Results {
			if r.Status == model.ResultSuccess.String() {
				succeeded++
				continue
			}
			failed++
			failures = append(failures, fmt.Sprintf("%s: %s", r.Action, r.Reason))
		}
		ev.Str("wallet", w.Address).
			Bool("skipped", w.Skipped).
			Int("succeeded", succeeded).
			Int("failed", failed).
			Strs("failures", failures).
			Str("duration", units.HumanDuration(w.Duration)).
			Msg("wallet summary")
	}

	names := make([]string, 0, len(s.Actions))
	for name := range s.Actions {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		counts := s.Actions[name]
		log.Info().
			Str("action", name).
			Int("succeeded", counts.Succeeded).
			Int("failed", counts.Failed).
			Msg("action summary")
	}

	log.Info().
		Int("wallets", s.Wallets).
		Int("processed", s.Processed).
		Int("skipped", s.Skipped).
		Int("succeeded", s.Succeeded).
		Int("failed", s.Failed).
		Float64("latency_p50_s", s.Latency.P50).
		Float64("latency_p90_s", s.Latency.P90).
		Float64("latency_p99_s", s.Latency.P99).
		Str("duration", units.HumanDuration(s.Duration)).
		Msgf("fleet finished: %d wallets processed, %d skipped, %d actions succeeded, %d failed",
			s.Processed, s.Skipped, s.Succeeded, s.Failed)
}

// WriteSummary writes the summary as indented JSON to path, replacing any
// existing file.
func WriteSummary(path string, s Summary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("could not write report to %s: %w", path, err)
	}
	return nil
}
