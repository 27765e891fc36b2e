package mcts

import (
	"time"

	"github.com/chewxy/math32"
	"github.com/samber/lo"

	"github.com/alphatak/game"
)

// Decision is the outcome of a search.
type Decision struct {
	Move    game.Move
	Value   float32 // for the side to move at the root, in [-1, 1]
	PV      []game.Move
	Nodes   int    // iterations run by this search
	Visits  uint32 // visits of the root, including earlier searches of a reused tree
	Elapsed time.Duration
	Proven  Proof // result at the root for the side to move, if the search proved one
	Stop    StopReason
	Overrun bool // the search took longer than the clock allowed
}

// Visit is what the search knows about one root move.
type Visit struct {
	Move   game.Move
	Visits uint32
	W      float64 // accumulated value for the side to move at the root
	Prior  float32
	Proof  Proof // for the side to move at the root
	Status Status
}

// Value is the mean value of the move for the side to move at the root.
func (v Visit) Value() float32 {
	if v.Proof != Unproven {
		return v.Proof.Value()
	}
	if v.Visits == 0 {
		return 0
	}
	return float32(v.W / float64(v.Visits))
}

// proofRank orders moves by what their proof means for the side choosing them.
func (v Visit) proofRank() int {
	switch v.Proof {
	case ProvenWin:
		return 2
	case ProvenLoss:
		return 0
	}
	return 1
}

// better reports whether a should be played rather than b: proven wins first and proven losses
// last, then most visits, then highest prior. Remaining ties keep generation order.
func better(a, b Visit) bool {
	if ra, rb := a.proofRank(), b.proofRank(); ra != rb {
		return ra > rb
	}
	if a.Visits != b.Visits {
		return a.Visits > b.Visits
	}
	return a.Prior > b.Prior
}

func bestVisit(visits []Visit) int {
	best := -1
	for i := range visits {
		if best < 0 || better(visits[i], visits[best]) {
			best = i
		}
	}
	return best
}

func (t *MCTS) visitOf(kid Naughty) Visit {
	child := &t.nodes[kid]
	return Visit{
		Move:   child.move,
		Visits: child.visits,
		W:      child.wsum,
		Prior:  child.psa,
		Proof:  child.proof.Flip(),
		Status: child.status,
	}
}

func (t *MCTS) rootVisits() []Visit {
	return lo.Map(t.children[t.root], func(kid Naughty, _ int) Visit { return t.visitOf(kid) })
}

// bestChild is the child of n that would be played.
func (t *MCTS) bestChild(n Naughty) Naughty {
	best := nilNode
	var bv Visit
	for _, kid := range t.children[n] {
		v := t.visitOf(kid)
		if best == nilNode || better(v, bv) {
			best, bv = kid, v
		}
	}
	return best
}

// principalVariation follows the best child from n down to a leaf.
func (t *MCTS) principalVariation(n Naughty) []game.Move {
	var pv []game.Move
	for len(t.children[n]) > 0 {
		n = t.bestChild(n)
		pv = append(pv, t.nodes[n].move)
		if t.nodes[n].visits == 0 {
			break
		}
	}
	return pv
}

// decide builds the decision for the root from the root moves. visits is in generation order.
// Early in the game the move may be randomized.
func (t *MCTS) decide(visits []Visit, randomize bool) Decision {
	root := &t.nodes[t.root]
	d := Decision{
		Visits: root.visits,
		Proven: root.proof,
		Value:  -root.QSA(),
	}
	if root.proof != Unproven {
		d.Value = root.proof.Value()
	}
	best := bestVisit(visits)
	if best < 0 {
		return d
	}
	if randomize && t.position.Ply() < t.RandomCount && visits[best].Proof != ProvenWin {
		if i := t.randomizeChildren(visits); i >= 0 && i != best {
			t.log("randomized move %v over %v", visits[i].Move, visits[best].Move)
			best = i
		}
	}
	v := visits[best]
	d.Move = v.Move
	if v.Visits > 0 || v.Proof != Unproven {
		d.Value = v.Value()
	}
	d.PV = []game.Move{v.Move}
	if kid := t.findChild(t.root, v.Move); kid != nilNode {
		d.PV = append(d.PV, t.principalVariation(kid)...)
	}
	return d
}

// randomizeChildren picks a move at random, proportionally to its visits raised to
// 1/RandomTemperature. Moves with RandomMinVisits visits or fewer are never picked.
func (t *MCTS) randomizeChildren(visits []Visit) int {
	weights := make([]float32, len(visits))
	var norm uint32
	for _, v := range visits {
		if v.Visits > norm {
			norm = v.Visits
		}
	}
	if norm == 0 {
		return -1
	}
	var accum float32
	for i, v := range visits {
		if v.Visits <= t.RandomMinVisits || v.Proof == ProvenLoss {
			continue
		}
		accum += math32.Pow(float32(v.Visits)/float32(norm), 1/t.RandomTemperature)
		weights[i] = accum
	}
	if accum == 0 {
		return -1
	}
	rnd := t.rand.Float32() * accum // uniform distro: rnd() * (max-min) + min
	for i, a := range weights {
		if a > 0 && rnd < a {
			return i
		}
	}
	return -1
}

// Distribution returns the search results for every root move in generation order.
func (t *MCTS) Distribution() []Visit {
	return t.rootVisits()
}

// Shares turns root visits into a probability distribution over the moves.
func Shares(visits []Visit) map[game.Move]float32 {
	total := lo.SumBy(visits, func(v Visit) uint32 { return v.Visits })
	retVal := make(map[game.Move]float32, len(visits))
	for _, v := range visits {
		if total == 0 {
			retVal[v.Move] = 0
			continue
		}
		retVal[v.Move] = float32(v.Visits) / float32(total)
	}
	return retVal
}
