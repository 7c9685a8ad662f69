package fleet

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/go-multierror"
)

// ResultStatus is the terminal status of one action.
type ResultStatus int

const (
	ResultSuccess ResultStatus = iota + 1
	ResultFailed
)

func (s ResultStatus) String() string {
	switch s {
	case ResultSuccess:
		return "success"
	case ResultFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ActionResult is the typed outcome of one action: either Success(hash) or
// Failed(reason).
type ActionResult struct {
	Action   string
	Status   ResultStatus
	Hash     common.Hash
	Reason   string
	Err      error
	Duration time.Duration
}

// Success returns a successful result for the given transaction hash.
func Success(action string, hash common.Hash) ActionResult {
	return ActionResult{
		Action: action,
		Status: ResultSuccess,
		Hash:   hash,
	}
}

// Failed returns a failed result. The reason is taken from err.
func Failed(action string, err error) ActionResult {
	reason := "unknown failure"
	if err != nil {
		reason = err.Error()
	}
	return ActionResult{
		Action: action,
		Status: ResultFailed,
		Reason: reason,
		Err:    err,
	}
}

// Succeeded reports whether the action succeeded.
func (r ActionResult) Succeeded() bool {
	return r.Status == ResultSuccess
}

// WalletSummary collects the results of every action run for one wallet.
type WalletSummary struct {
	Address    common.Address
	Skipped    bool
	SkipReason string
	Results    []ActionResult
	Duration   time.Duration
}

// Record appends an action result.
func (s *WalletSummary) Record(r ActionResult) {
	s.Results = append(s.Results, r)
}

// Skip marks the wallet as skipped before any submission.
func (s *WalletSummary) Skip(reason string) {
	s.Skipped = true
	s.SkipReason = reason
}

// Succeeded returns the number of successful actions.
func (s WalletSummary) Succeeded() int {
	n := 0
	for _, r := range s.Results {
		if r.Succeeded() {
			n++
		}
	}
	return n
}

// Failed returns the number of failed actions.
func (s WalletSummary) Failed() int {
	return len(s.Results) - s.Succeeded()
}

// Err aggregates the errors of all failed actions, nil if none failed.
func (s WalletSummary) Err() error {
	var result *multierror.Error
	for _, r := range s.Results {
		if r.Succeeded() {
			continue
		}
		err := r.Err
		if err == nil {
			err = &failure{action: r.Action, reason: r.Reason}
		}
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

type failure struct {
	action string
	reason string
}

func (f *failure) Error() string {
	return f.action + ": " + f.reason
}

// Report is the outcome of one fleet run.
type Report struct {
	Wallets  []WalletSummary
	Duration time.Duration
}

// Counts returns the number of processed and skipped wallets, and the number of
// succeeded and failed actions across the fleet.
func (r Report) Counts() (processed, skipped, succeeded, failed int) {
	for _, w := range r.Wallets {
		if w.Skipped {
			skipped++
			continue
		}
		processed++
		succeeded += w.Succeeded()
		failed += w.Failed()
	}
	return processed, skipped, succeeded, failed
}
