// Package eval scores Tak positions and ranks their moves with linear heuristics over named
// features. An Evaluator is immutable once built and may be shared between searches.
package eval

import (
	"github.com/chewxy/math32"

	"github.com/alphatak/game"
)

// Evaluator computes static values and policy priors.
type Evaluator struct {
	value  []float64
	policy []float32
}

// New builds an evaluator from w.
func New(w Weights) (*Evaluator, error) {
	value, policy, err := compile(w)
	if err != nil {
		return nil, err
	}
	return &Evaluator{value: value, policy: policy}, nil
}

// Default returns an evaluator with the built in weights.
func Default() *Evaluator {
	e, err := New(nil)
	if err != nil {
		panic(err)
	}
	return e
}

// Weights returns a copy of the weights in use.
func (e *Evaluator) Weights() Weights {
	w := make(Weights, len(e.value)+len(e.policy))
	for i, n := range valueFeatures {
		w[n] = e.value[i]
	}
	for i, n := range policyFeatures {
		w[n] = float64(e.policy[i])
	}
	return w
}

// Evaluate fills priors with the policy for moves and returns the static value of pos.
func (e *Evaluator) Evaluate(pos *game.Position, moves []game.Move, priors []float32) float32 {
	e.Priors(pos, moves, priors)
	return e.Value(pos)
}

// WinProbability converts a value in [-1, 1] to a winning probability.
func WinProbability(v float32) float32 { return (v + 1) / 2 }

// squash maps a raw score to (-1, 1).
func squash(x float32) float32 {
	return 2/(1+math32.Exp(-x)) - 1
}

var centrality [game.MaxSize + 1][]float32

func init() {
	for size := game.MinSize; size <= game.MaxSize; size++ {
		c := make([]float32, size*size)
		mid := float32(size-1) / 2
		for i := range c {
			sq := game.SquareAt(i, size)
			df := math32.Abs(float32(sq.File) - mid)
			dr := math32.Abs(float32(sq.Rank) - mid)
			c[i] = 1 - math32.Max(df, dr)/mid
		}
		centrality[size] = c
	}
}

// edgeMask returns the squares on the rim of the board.
func edgeMask(size int) game.Bitboard {
	var b game.Bitboard
	for i := 0; i < size*size; i++ {
		sq := game.SquareAt(i, size)
		if sq.File == 0 || sq.Rank == 0 || int(sq.File) == size-1 || int(sq.Rank) == size-1 {
			b = b.With(i)
		}
	}
	return b
}

var edges [game.MaxSize + 1]game.Bitboard

func init() {
	for size := game.MinSize; size <= game.MaxSize; size++ {
		edges[size] = edgeMask(size)
	}
}
