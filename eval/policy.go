package eval

import (
	"github.com/chewxy/math32"
	"gorgonia.org/vecf32"

	"github.com/alphatak/game"
)

const numPolicyFeatures = 15

// Priors writes a probability for every move into dst, in the same order. The probabilities sum to
// one and are strictly positive. dst must be at least as long as moves.
func (e *Evaluator) Priors(pos *game.Position, moves []game.Move, dst []float32) {
	if len(moves) == 0 {
		return
	}
	dst = dst[:len(moves)]
	ctx := newPolicyContext(pos)
	var f [numPolicyFeatures]float32
	best := math32.Inf(-1)
	for i, m := range moves {
		ctx.features(m, f[:])
		var logit float32
		for j := range f {
			logit += f[j] * e.policy[j]
		}
		dst[i] = logit
		if logit > best {
			best = logit
		}
	}
	for i := range dst {
		dst[i] = math32.Exp(dst[i] - best)
	}
	vecf32.Scale(dst, 1/vecf32.Sum(dst))
}

// Policy returns the priors as a map from move to probability.
func (e *Evaluator) Policy(pos *game.Position) map[game.Move]float32 {
	moves := pos.LegalMoves()
	priors := make([]float32, len(moves))
	e.Priors(pos, moves, priors)
	retVal := make(map[game.Move]float32, len(moves))
	for i, m := range moves {
		retVal[m] = priors[i]
	}
	return retVal
}

// policyContext caches per position data shared by all moves.
type policyContext struct {
	pos          *game.Position
	me, them     game.Color
	size         int
	theirThreats game.Bitboard
	mySpan       int
	early        bool
}

func newPolicyContext(pos *game.Position) *policyContext {
	me := pos.ToMove()
	size := pos.Size()
	_, span := pos.RoadMask(me).Span(size)
	return &policyContext{
		pos:          pos,
		me:           me,
		them:         me.Other(),
		size:         size,
		theirThreats: pos.RoadMask(me.Other()).RoadThreats(pos.Empty(), size),
		mySpan:       span,
		early:        pos.Ply() < 2*size,
	}
}

func (c *policyContext) features(m game.Move, f []float32) {
	for i := range f {
		f[i] = 0
	}
	size := c.size
	cent := centrality[size]
	idx := m.Square.Index(size)

	if c.pos.Opening() {
		// the first two stones belong to the opponent: keep them out of the way
		f[0] = 1
		f[5] = -cent[idx]
		return
	}

	pv := c.pos.Preview(m)
	switch m.Type {
	case game.Place:
		switch m.Stone {
		case game.Flat:
			f[0] = 1
		case game.Wall:
			f[1] = 1
		case game.Cap:
			f[2] = 1
			if c.early {
				f[3] = 1
			}
		}
		f[5] = cent[idx]
		n := game.Bitboard(0).With(idx).Neighbours(size)
		f[6] = float32((n & c.pos.Tops(c.me)).Count())
		f[7] = float32((n & c.pos.Tops(c.them)).Count())
	case game.Spread:
		f[4] = 1
		var sum float32
		for i := 1; i < pv.N; i++ {
			sum += cent[pv.Changes[i].Square.Index(size)]
		}
		f[5] = sum / float32(pv.N-1)
		f[13] = float32(m.Carry) / float32(size)
		if pv.Flattens {
			f[12] = 1
		}
	}

	for i := 0; i < pv.N; i++ {
		ch := pv.Changes[i]
		mineBefore := ch.HadTop && ch.Before.Color() == c.me
		mineAfter := ch.HasTop && ch.After.Color() == c.me
		switch {
		case ch.HadTop && !mineBefore && mineAfter:
			f[10]++
		case mineBefore && ch.HasTop && !mineAfter:
			f[11]++
		}
	}

	if pv.Roads[c.me].HasRoad(size) {
		f[8] = 1
	}
	if !c.theirThreats.Empty() {
		after := pv.Roads[c.them].RoadThreats(emptyAfter(c.pos, &pv), size)
		if after.Count() < c.theirThreats.Count() {
			f[9] = 1
		}
	}
	if _, span := pv.Roads[c.me].Span(size); span > c.mySpan {
		f[14] = float32(span - c.mySpan)
	}
}

// emptyAfter returns the empty squares after the previewed move.
func emptyAfter(pos *game.Position, pv *game.Preview) game.Bitboard {
	empty := pos.Empty()
	for i := 0; i < pv.N; i++ {
		ch := pv.Changes[i]
		idx := ch.Square.Index(pos.Size())
		if ch.HasTop {
			empty = empty.Without(idx)
		} else {
			empty = empty.With(idx)
		}
	}
	return empty
}
