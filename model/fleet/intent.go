package fleet

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/atomic"
)

// ErrIntentConsumed is returned when an intent is submitted a second time. Its nonce
// is bound to exactly one broadcast.
var ErrIntentConsumed = errors.New("transaction intent already consumed")

// TransactionIntent is an unsigned contract call awaiting gas and nonce finalization.
// An intent is created fresh for every call and consumed exactly once by submission.
type TransactionIntent struct {
	ChainID  *big.Int
	To       common.Address
	From     common.Address
	Data     []byte
	GasLimit uint64
	GasPrice *big.Int
	Nonce    uint64

	consumed atomic.Bool
}

// Consume marks the intent as submitted. It fails on every call after the first.
func (i *TransactionIntent) Consume() error {
	if !i.consumed.CompareAndSwap(false, true) {
		return ErrIntentConsumed
	}
	return nil
}

// Consumed reports whether the intent was already submitted.
func (i *TransactionIntent) Consumed() bool {
	return i.consumed.Load()
}

// CallMsg returns the message used for gas estimation. The current gas limit is
// passed as an upper bound for the estimate.
func (i *TransactionIntent) CallMsg() ethereum.CallMsg {
	to := i.To
	return ethereum.CallMsg{
		From:     i.From,
		To:       &to,
		Gas:      i.GasLimit,
		GasPrice: i.GasPrice,
		Data:     i.Data,
	}
}

// Transaction returns the unsigned legacy transaction described by the intent.
func (i *TransactionIntent) Transaction() *types.Transaction {
	to := i.To
	return types.NewTx(&types.LegacyTx{
		Nonce:    i.Nonce,
		GasPrice: i.GasPrice,
		Gas:      i.GasLimit,
		To:       &to,
		Value:    new(big.Int),
		Data:     i.Data,
	})
}

// TransactionOutcome is the confirmation of a submitted transaction.
type TransactionOutcome struct {
	Hash    common.Hash
	Success bool
	Receipt *types.Receipt
}

// NewTransactionOutcome classifies a receipt: only status 1 is a success.
func NewTransactionOutcome(hash common.Hash, receipt *types.Receipt) TransactionOutcome {
	return TransactionOutcome{
		Hash:    hash,
		Success: receipt != nil && receipt.Status == types.ReceiptStatusSuccessful,
		Receipt: receipt,
	}
}
