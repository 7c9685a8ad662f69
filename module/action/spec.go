package action

import (
	"context"
	"fmt"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/onflow/evm-fleet/model/fleet"
	"github.com/onflow/evm-fleet/model/wallet"
	"github.com/onflow/evm-fleet/utils/rand"
)

// Action is one entry of a wallet's action list.
type Action interface {
	// Name identifies the action in logs, metrics and summaries.
	Name() string

	// Run executes the action for the wallet. Failures are reported through the
	// returned result, never by panicking.
	Run(ctx context.Context, w *wallet.Wallet) fleet.ActionResult
}

// CallDataFunc builds the call data of a contract call for the sending wallet.
// amount is nil for calls that do not move tokens.
type CallDataFunc func(from common.Address, amount *big.Int) ([]byte, error)

// GasRange is the inclusive range the initial gas limit is drawn from.
type GasRange struct {
	Low  uint64
	High uint64
}

// Sample draws a gas limit from the range.
func (r GasRange) Sample(rng rand.Source) uint64 {
	return rand.IntRange(rng, r.Low, r.High)
}

// weiPerToken scales whole tokens to their 18 decimals base unit.
var weiPerToken = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// AmountRange is an inclusive range of whole tokens.
type AmountRange struct {
	Low  uint64
	High uint64
}

// Sample draws a token amount from the range and scales it by 10^18.
func (r AmountRange) Sample(rng rand.Source) *big.Int {
	tokens := new(big.Int).SetUint64(rand.IntRange(rng, r.Low, r.High))
	return tokens.Mul(tokens, weiPerToken)
}

// CallSpec describes one contract call.
type CallSpec struct {
	Name          string
	To            common.Address
	CallData      CallDataFunc
	GasMultiplier float64
	Gas           GasRange
}

// Validate checks that the call spec can be executed.
func (s CallSpec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("call spec has no name")
	}
	if s.CallData == nil {
		return fmt.Errorf("call spec %s has no call data builder", s.Name)
	}
	if s.GasMultiplier < 1 {
		return fmt.Errorf("call spec %s: gas multiplier %v must be at least 1", s.Name, s.GasMultiplier)
	}
	if s.Gas.Low == 0 || s.Gas.Low > s.Gas.High {
		return fmt.Errorf("call spec %s: invalid gas range [%d, %d]", s.Name, s.Gas.Low, s.Gas.High)
	}
	return nil
}

// multiplierScale is the resolution gas multipliers are applied with.
const multiplierScale = 1000

// ScaleGas returns ceil(estimate * multiplier). The multiplier is applied with a
// resolution of 1/1000 in integer arithmetic, so 100000 * 1.1 is exactly 110000.
func ScaleGas(estimate uint64, multiplier float64) uint64 {
	m := uint64(math.Round(multiplier * multiplierScale))
	scaled := new(big.Int).Mul(new(big.Int).SetUint64(estimate), new(big.Int).SetUint64(m))
	scaled.Add(scaled, big.NewInt(multiplierScale-1))
	scaled.Quo(scaled, big.NewInt(multiplierScale))
	if !scaled.IsUint64() {
		return math.MaxUint64
	}
	return scaled.Uint64()
}
