package evmclient

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/onflow/evm-fleet/model/fleet"
)

// SignFunc signs an intent with the given key and returns the RLP encoded
// transaction ready for broadcast.
type SignFunc func(intent *fleet.TransactionIntent, key *ecdsa.PrivateKey) ([]byte, error)

// Sign signs the intent as an EIP-155 replay protected legacy transaction.
func Sign(intent *fleet.TransactionIntent, key *ecdsa.PrivateKey) ([]byte, error) {
	if intent.ChainID == nil {
		return nil, fmt.Errorf("intent has no chain id")
	}
	signed, err := types.SignTx(intent.Transaction(), types.LatestSignerForChainID(intent.ChainID), key)
	if err != nil {
		return nil, fmt.Errorf("could not sign transaction: %w", err)
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("could not encode signed transaction: %w", err)
	}
	return raw, nil
}
