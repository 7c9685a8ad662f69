package wallet

import (
	"bufio"
	"crypto/ecdsa"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Wallet is an externally owned account driven by the fleet. It is immutable once
// loaded and is never persisted.
type Wallet struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// FromHex builds a Wallet from a hex encoded secp256k1 private key, with or without
// a 0x prefix.
func FromHex(keyHex string) (*Wallet, error) {
	keyHex = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(keyHex), "0x"), "0X")
	key, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return FromKey(key), nil
}

// FromKey builds a Wallet from a private key.
func FromKey(key *ecdsa.PrivateKey) *Wallet {
	return &Wallet{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}
}

// Address returns the account address derived from the private key.
func (w *Wallet) Address() common.Address {
	return w.address
}

// PrivateKey returns the signing key of the wallet.
func (w *Wallet) PrivateKey() *ecdsa.PrivateKey {
	return w.key
}

// String returns the checksummed address, never the key.
func (w *Wallet) String() string {
	return w.address.Hex()
}

// Parse reads a line-delimited list of private keys, one wallet per line.
// Blank lines and lines starting with '#' are ignored. Line numbers are reported on
// malformed keys, the keys themselves are never echoed.
func Parse(r io.Reader) ([]*Wallet, error) {
	var wallets []*Wallet
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		w, err := FromHex(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		wallets = append(wallets, w)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("could not read wallet list: %w", err)
	}
	return wallets, nil
}

// LoadFile reads the wallet list stored at path.
func LoadFile(path string) ([]*Wallet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open wallet list %s: %w", path, err)
	}
	defer f.Close()

	wallets, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("could not parse wallet list %s: %w", path, err)
	}
	if len(wallets) == 0 {
		return nil, fmt.Errorf("wallet list %s is empty", path)
	}
	return wallets, nil
}
