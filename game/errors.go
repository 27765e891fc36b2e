package game

import "github.com/pkg/errors"

var (
	// ErrIllegalMove is returned when a move fails the legality checks of a position.
	ErrIllegalMove = errors.New("illegal move")
	// ErrInvalidConfig is returned for unsupported board sizes or rules.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrGameOver is returned when a move is requested from a finished game.
	ErrGameOver = errors.New("game is over")
)
