package game

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/onflow/evm-fleet/config"
	"github.com/onflow/evm-fleet/module/action"
	"github.com/onflow/evm-fleet/module/evmclient"
)

// Names of the game calls.
const (
	CreateGame  = "create_game"
	GuessLetter = "guess_letter"
)

var (
	SelectorCreateGame  = evmclient.Selector{0x9f, 0xeb, 0x6c, 0x1b} // createGame(address)
	SelectorGuessLetter = evmclient.Selector{0x66, 0x2a, 0x65, 0x59} // guess(string)

	// GameCreatedTopic is the id of GameCreated(address indexed player, address gameContract).
	GameCreatedTopic = crypto.Keccak256Hash([]byte("GameCreated(address,address)"))
)

const factoryJSON = `[
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "internalType": "address", "name": "player", "type": "address"},
			{"indexed": false, "internalType": "address", "name": "gameContract", "type": "address"}
		],
		"name": "GameCreated",
		"type": "event"
	},
	{
		"inputs": [{"internalType": "address", "name": "", "type": "address"}],
		"name": "getGameAddressByPlayer",
		"outputs": [{"internalType": "address", "name": "", "type": "address"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

// FactoryABI is the part of the game factory ABI used to recover game addresses.
var FactoryABI = mustParseABI(factoryJSON)

func mustParseABI(definition string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		panic(fmt.Errorf("invalid abi: %w", err))
	}
	return parsed
}

// CreateGameCall creates a game for the sender on the factory.
func CreateGameCall(factory common.Address, cfg config.CallConfig) action.CallSpec {
	return action.CallSpec{
		Name: CreateGame,
		To:   factory,
		CallData: func(from common.Address, _ *big.Int) ([]byte, error) {
			return evmclient.EncodeCall(SelectorCreateGame, []string{"address"}, from)
		},
		GasMultiplier: cfg.Multiplier,
		Gas:           action.GasRange{Low: cfg.GasLow, High: cfg.GasHigh},
	}
}

// GuessLetterCall guesses one letter on a game instance.
func GuessLetterCall(game common.Address, letter byte, cfg config.CallConfig) action.CallSpec {
	return action.CallSpec{
		Name: GuessLetter,
		To:   game,
		CallData: func(common.Address, *big.Int) ([]byte, error) {
			encoded, err := evmclient.EncodeString(string(letter))
			if err != nil {
				return nil, err
			}
			return SelectorGuessLetter.Call(encoded), nil
		},
		GasMultiplier: cfg.Multiplier,
		Gas:           action.GasRange{Low: cfg.GasLow, High: cfg.GasHigh},
	}
}

// GameAddressFromLogs returns the game address carried by the first GameCreated
// log of a receipt. The address is the last 20 bytes of the log data.
func GameAddressFromLogs(logs []*types.Log) (common.Address, bool) {
	for _, log := range logs {
		if log == nil || len(log.Topics) == 0 || log.Topics[0] != GameCreatedTopic {
			continue
		}
		if len(log.Data) < common.AddressLength {
			return common.Address{}, false
		}
		addr := common.BytesToAddress(log.Data[len(log.Data)-common.AddressLength:])
		return addr, addr != (common.Address{})
	}
	return common.Address{}, false
}

// GameAddressByPlayerCall returns the call data of getGameAddressByPlayer(player).
func GameAddressByPlayerCall(player common.Address) ([]byte, error) {
	return FactoryABI.Pack("getGameAddressByPlayer", player)
}

// DecodeGameAddress decodes the output of getGameAddressByPlayer.
func DecodeGameAddress(output []byte) (common.Address, error) {
	values, err := FactoryABI.Unpack("getGameAddressByPlayer", output)
	if err != nil {
		return common.Address{}, fmt.Errorf("could not decode game address: %w", err)
	}
	if len(values) != 1 {
		return common.Address{}, fmt.Errorf("expected 1 output, got %d", len(values))
	}
	addr, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected output type %T", values[0])
	}
	return addr, nil
}
