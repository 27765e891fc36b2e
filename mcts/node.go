package mcts

import (
	"fmt"

	"github.com/alphatak/game"
)

type Status uint8

const (
	Invalid Status = iota
	Active
	Pruned
)

func (a Status) String() string {
	switch a {
	case Invalid:
		return "Invalid"
	case Active:
		return "Active"
	case Pruned:
		return "Pruned"
	}
	return "UNKNOWN STATUS"
}

// Proof is a game theoretic result established by the search, from the point of view of the
// side to move at the node.
type Proof uint8

const (
	Unproven Proof = iota
	ProvenWin
	ProvenLoss
	ProvenDraw
)

func (p Proof) String() string {
	switch p {
	case Unproven:
		return "Unproven"
	case ProvenWin:
		return "Win"
	case ProvenLoss:
		return "Loss"
	case ProvenDraw:
		return "Draw"
	}
	return "UNKNOWN PROOF"
}

// Value is the exact value of a proven node for its side to move.
func (p Proof) Value() float32 {
	switch p {
	case ProvenWin:
		return 1
	case ProvenLoss:
		return -1
	}
	return 0
}

// Flip returns the proof seen from the other side.
func (p Proof) Flip() Proof {
	switch p {
	case ProvenWin:
		return ProvenLoss
	case ProvenLoss:
		return ProvenWin
	}
	return p
}

func proofOf(v float32) Proof {
	switch {
	case v > 0:
		return ProvenWin
	case v < 0:
		return ProvenLoss
	}
	return ProvenDraw
}

// Node is a single position in the tree, reached from its parent by move.
type Node struct {
	move   game.Move
	parent Naughty
	id     Naughty

	visits uint32  // N(s, a)
	wsum   float64 // accumulated value for the player who made move, W(s, a)
	psa    float32 // P(s, a)

	status   Status
	proof    Proof
	expanded bool
	terminal bool
}

func (n *Node) Format(s fmt.State, c rune) {
	fmt.Fprintf(s, "{NodeID: %v, Move: %v, Q(s,a) %.4f, P(s,a) %.4f, Visits %v, Status: %v, Proof: %v}",
		n.id, n.move, n.QSA(), n.psa, n.visits, n.status, n.proof)
}

// Move gets the move associated with the node
func (n *Node) Move() game.Move { return n.move }

// Visits returns N(s, a).
func (n *Node) Visits() uint32 { return n.visits }

// PSA returns P(s, a)
func (n *Node) PSA() float32 { return n.psa }

// QSA returns Q(s, a), the mean value for the player who made the move. Unvisited nodes return 0.
func (n *Node) QSA() float32 {
	if n.visits == 0 {
		return 0
	}
	return float32(n.wsum / float64(n.visits))
}

func (n *Node) Status() Status { return n.status }
func (n *Node) Proof() Proof   { return n.proof }
func (n *Node) ID() int        { return int(n.id) }

// IsActive returns true if the node can be selected.
func (n *Node) IsActive() bool { return n.status == Active }

// IsExpanded returns true once the node's children exist or its result is known.
func (n *Node) IsExpanded() bool { return n.expanded }

// Update records a visit with value v for the player who made the node's move.
func (n *Node) Update(v float32) {
	n.visits++
	n.wsum += float64(v)
}

func (n *Node) reset() {
	*n = Node{id: n.id, parent: nilNode}
}
