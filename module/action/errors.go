package action

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// TransientRPCError indicates that an RPC round trip failed. The operation may
// succeed when attempted again with a freshly built intent.
type TransientRPCError struct {
	Op  string
	err error
}

func (e TransientRPCError) Error() string {
	return fmt.Sprintf("rpc %s failed: %v", e.Op, e.err)
}

func (e TransientRPCError) Unwrap() error {
	return e.err
}

// NewTransientRPCError returns a new TransientRPCError
func NewTransientRPCError(op string, err error) TransientRPCError {
	return TransientRPCError{Op: op, err: err}
}

// IsTransientRPCError returns true if an error is TransientRPCError
func IsTransientRPCError(err error) bool {
	var e TransientRPCError
	return errors.As(err, &e)
}

// GasEstimationFailedError indicates that every gas estimation attempt of an
// action failed. No transaction was submitted.
type GasEstimationFailedError struct {
	Attempts uint64
	err      error
}

func (e GasEstimationFailedError) Error() string {
	return fmt.Sprintf("gas estimation failed after %d attempts: %v", e.Attempts, e.err)
}

func (e GasEstimationFailedError) Unwrap() error {
	return e.err
}

// NewGasEstimationFailedError returns a new GasEstimationFailedError
func NewGasEstimationFailedError(attempts uint64, err error) GasEstimationFailedError {
	return GasEstimationFailedError{Attempts: attempts, err: err}
}

// IsGasEstimationFailedError returns true if an error is GasEstimationFailedError
func IsGasEstimationFailedError(err error) bool {
	var e GasEstimationFailedError
	return errors.As(err, &e)
}

// TransactionRevertedError indicates that a transaction was mined with a status
// other than 1. Its nonce is consumed, so it is never retried.
type TransactionRevertedError struct {
	Hash   common.Hash
	Status uint64
}

func (e TransactionRevertedError) Error() string {
	return fmt.Sprintf("transaction failed: %s mined with status %d", e.Hash.Hex(), e.Status)
}

// NewTransactionRevertedError returns a new TransactionRevertedError
func NewTransactionRevertedError(hash common.Hash, status uint64) TransactionRevertedError {
	return TransactionRevertedError{Hash: hash, Status: status}
}

// IsTransactionRevertedError returns true if an error is TransactionRevertedError
func IsTransactionRevertedError(err error) bool {
	var e TransactionRevertedError
	return errors.As(err, &e)
}
