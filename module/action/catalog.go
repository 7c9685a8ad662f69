package action

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/onflow/evm-fleet/config"
	"github.com/onflow/evm-fleet/module/evmclient"
	"github.com/onflow/evm-fleet/module/util"
)

// Names of the token actions.
const (
	MintUSDC      = "mint_usdc"
	MintCUSDC     = "mint_cusdc"
	ShieldUSDC    = "shield_usdc"
	UnshieldCUSDC = "unshield_cusdc"
)

// Function selectors of the token contracts.
var (
	SelectorMint    = evmclient.Selector{0x40, 0xc1, 0x0f, 0x19} // mint(address,uint256)
	SelectorApprove = evmclient.Selector{0x09, 0x5e, 0xa7, 0xb3} // approve(address,uint256)
	SelectorWrap    = evmclient.Selector{0xea, 0x59, 0x8c, 0xb0} // wrap(uint256)
	SelectorUnwrap  = evmclient.Selector{0xde, 0x0e, 0x9a, 0x3e} // unwrap(uint256)
)

// MintCall mints amount to the sender.
func MintCall(name string, token common.Address, cfg config.CallConfig) CallSpec {
	return CallSpec{
		Name: name,
		To:   token,
		CallData: func(from common.Address, amount *big.Int) ([]byte, error) {
			return evmclient.EncodeCall(SelectorMint, []string{"address", "uint256"}, from, amount)
		},
		GasMultiplier: cfg.Multiplier,
		Gas:           gasRange(cfg),
	}
}

// ApproveCall allows spender to transfer amount of the token on behalf of the sender.
func ApproveCall(token, spender common.Address, cfg config.CallConfig) CallSpec {
	return CallSpec{
		Name: "approve",
		To:   token,
		CallData: func(_ common.Address, amount *big.Int) ([]byte, error) {
			return evmclient.EncodeCall(SelectorApprove, []string{"address", "uint256"}, spender, amount)
		},
		GasMultiplier: cfg.Multiplier,
		Gas:           gasRange(cfg),
	}
}

// WrapCall wraps amount of the underlying token into its confidential version.
func WrapCall(wrapper common.Address, cfg config.CallConfig) CallSpec {
	return amountCall("wrap", SelectorWrap, wrapper, cfg)
}

// UnwrapCall unwraps amount of the confidential token.
func UnwrapCall(wrapper common.Address, cfg config.CallConfig) CallSpec {
	return amountCall("unwrap", SelectorUnwrap, wrapper, cfg)
}

func amountCall(name string, selector evmclient.Selector, to common.Address, cfg config.CallConfig) CallSpec {
	return CallSpec{
		Name: name,
		To:   to,
		CallData: func(_ common.Address, amount *big.Int) ([]byte, error) {
			return evmclient.EncodeCall(selector, []string{"uint256"}, amount)
		},
		GasMultiplier: cfg.Multiplier,
		Gas:           gasRange(cfg),
	}
}

func gasRange(cfg config.CallConfig) GasRange {
	return GasRange{Low: cfg.GasLow, High: cfg.GasHigh}
}

func amountRange(cfg config.AmountConfig) *AmountRange {
	return &AmountRange{Low: cfg.Low, High: cfg.High}
}

// TokenActions returns the token actions keyed by name.
func TokenActions(executor *Executor, pacer util.Pacer, contracts config.ContractsConfig, cfg config.ActionsConfig) map[string]Action {
	usdc := contracts.USDCAddress()
	wrapper := contracts.WrapperAddress()

	return map[string]Action{
		MintUSDC: NewPlan(MintUSDC, executor, pacer, amountRange(cfg.MintAmount),
			MintCall(MintUSDC, usdc, cfg.Mint)),
		MintCUSDC: NewPlan(MintCUSDC, executor, pacer, amountRange(cfg.MintAmount),
			MintCall(MintCUSDC, wrapper, cfg.Mint)),
		ShieldUSDC: NewPlan(ShieldUSDC, executor, pacer, amountRange(cfg.ShieldAmount),
			ApproveCall(usdc, wrapper, cfg.Approve),
			WrapCall(wrapper, cfg.Wrap)),
		UnshieldCUSDC: NewPlan(UnshieldCUSDC, executor, pacer, amountRange(cfg.UnshieldAmount),
			UnwrapCall(wrapper, cfg.Unwrap)),
	}
}

// Select returns the actions named in enabled, in that order.
func Select(available map[string]Action, enabled []string) ([]Action, error) {
	actions := make([]Action, 0, len(enabled))
	seen := make(map[string]struct{}, len(enabled))
	for _, name := range enabled {
		a, ok := available[name]
		if !ok {
			return nil, fmt.Errorf("unknown action %q", name)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("action %q listed twice", name)
		}
		seen[name] = struct{}{}
		actions = append(actions, a)
	}
	return actions, nil
}
