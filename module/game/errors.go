package game

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ErrNoGameAddress is returned when neither the receipt nor the factory yield the
// address of a created game.
var ErrNoGameAddress = errors.New("no game address found")

// GameStartupFailedError indicates that a game was created but its address could
// not be recovered. It is fatal to the game action only.
type GameStartupFailedError struct {
	Player common.Address
	err    error
}

func (e GameStartupFailedError) Error() string {
	return fmt.Sprintf("failed to start game for %s: %v", e.Player.Hex(), e.err)
}

func (e GameStartupFailedError) Unwrap() error {
	return e.err
}

// NewGameStartupFailedError returns a new GameStartupFailedError
func NewGameStartupFailedError(player common.Address, err error) GameStartupFailedError {
	return GameStartupFailedError{Player: player, err: err}
}

// IsGameStartupFailedError returns true if an error is GameStartupFailedError
func IsGameStartupFailedError(err error) bool {
	var e GameStartupFailedError
	return errors.As(err, &e)
}
