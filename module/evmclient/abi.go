package evmclient

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Selector is the 4-byte function selector prefixing contract call data.
type Selector [4]byte

// Call returns the call data made of the selector followed by the encoded arguments.
func (s Selector) Call(encoded []byte) []byte {
	data := make([]byte, 0, len(s)+len(encoded))
	data = append(data, s[:]...)
	return append(data, encoded...)
}

// Encode ABI encodes the values according to the given Solidity types,
// e.g. Encode([]string{"address", "uint256"}, addr, amount).
func Encode(abiTypes []string, values ...interface{}) ([]byte, error) {
	if len(abiTypes) != len(values) {
		return nil, fmt.Errorf("got %d values for %d types", len(values), len(abiTypes))
	}
	args := make(abi.Arguments, 0, len(abiTypes))
	for _, t := range abiTypes {
		typ, err := abi.NewType(t, "", nil)
		if err != nil {
			return nil, fmt.Errorf("invalid abi type %q: %w", t, err)
		}
		args = append(args, abi.Argument{Type: typ})
	}
	encoded, err := args.Pack(values...)
	if err != nil {
		return nil, fmt.Errorf("could not encode %v: %w", abiTypes, err)
	}
	return encoded, nil
}

// EncodeString ABI encodes a single string argument.
func EncodeString(value string) ([]byte, error) {
	return Encode([]string{"string"}, value)
}

// EncodeCall returns the call data for the function identified by selector.
func EncodeCall(selector Selector, abiTypes []string, values ...interface{}) ([]byte, error) {
	encoded, err := Encode(abiTypes, values...)
	if err != nil {
		return nil, err
	}
	return selector.Call(encoded), nil
}
