package evmclient

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/onflow/evm-fleet/model/fleet"
)

// Client is the chain RPC collaborator shared by every wallet worker.
// Implementations must be safe for concurrent use and keep no per-wallet state.
type Client interface {
	// GasPrice returns the current suggested legacy gas price.
	GasPrice(ctx context.Context) (*big.Int, error)

	// NonceOf returns the next nonce of the given account, including pending transactions.
	NonceOf(ctx context.Context, address common.Address) (uint64, error)

	// EstimateGas estimates the gas required to execute the intent.
	EstimateGas(ctx context.Context, intent *fleet.TransactionIntent) (uint64, error)

	// SendRaw broadcasts an RLP encoded signed transaction and returns its hash.
	SendRaw(ctx context.Context, signed []byte) (common.Hash, error)

	// AwaitReceipt blocks until the receipt of the given transaction is available,
	// or the context is done.
	AwaitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)

	// BalanceOf returns the latest native balance of the account, in wei.
	BalanceOf(ctx context.Context, address common.Address) (*big.Int, error)

	// Call executes a read-only contract call against the latest block.
	Call(ctx context.Context, contract common.Address, data []byte) ([]byte, error)

	// IsConnected reports whether the node answers requests.
	IsConnected(ctx context.Context) bool
}
