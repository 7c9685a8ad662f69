package unittest

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/onflow/evm-fleet/model/wallet"
)

// WalletFixture returns a wallet with a freshly generated key.
func WalletFixture(t testing.TB) *wallet.Wallet {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return wallet.FromKey(key)
}

// WalletListFixture returns n wallets with freshly generated keys.
func WalletListFixture(t testing.TB, n int) []*wallet.Wallet {
	wallets := make([]*wallet.Wallet, 0, n)
	for i := 0; i < n; i++ {
		wallets = append(wallets, WalletFixture(t))
	}
	return wallets
}

// HashFixture returns a random hash.
func HashFixture() common.Hash {
	var h common.Hash
	_, _ = rand.Read(h[:])
	return h
}

// AddressFixture returns a random address.
func AddressFixture() common.Address {
	var a common.Address
	_, _ = rand.Read(a[:])
	return a
}

// ReceiptFixture returns a mined receipt with the given status and logs.
func ReceiptFixture(hash common.Hash, status uint64, logs ...*types.Log) *types.Receipt {
	return &types.Receipt{
		Status:      status,
		TxHash:      hash,
		Logs:        logs,
		BlockNumber: big.NewInt(1),
		GasUsed:     21_000,
	}
}

// EtherFixture returns n * 10^18 wei.
func EtherFixture(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000_000_000_000))
}
