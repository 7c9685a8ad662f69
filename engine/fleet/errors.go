package fleet

import (
	"errors"
	"fmt"
)

// ErrLowBalance is the skip reason of wallets whose native balance is below the
// configured minimum. It is not counted as a failure.
var ErrLowBalance = errors.New("balance below minimum")

// ErrInvalidWorkers is returned when the scheduler is asked to run without workers.
var ErrInvalidWorkers = errors.New("number of workers must be at least 1")

// skip reasons, used as metric labels and as the prefix of WalletSummary.SkipReason
const (
	skipLowBalance   = "low_balance"
	skipBalanceQuery = "balance_query_failed"
)

func skipReason(label string, err error) string {
	return fmt.Sprintf("%s: %v", label, err)
}
