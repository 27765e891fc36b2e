package mcts

import (
	"sync/atomic"

	"golang.org/x/exp/rand"

	"github.com/alphatak/game"
)

// Evaluator scores positions for the search. Evaluate writes a prior for every move into priors,
// in the same order, and returns the value of pos in [-1, 1] for the side to move.
// Implementations must be safe for concurrent use when trees share them.
type Evaluator interface {
	Evaluate(pos *game.Position, moves []game.Move, priors []float32) float32
}

// StatsListener is told about a running search every Config.ReportEvery iterations.
type StatsListener interface {
	OnIteration(info Info)
}

// MCTS is essentially a "global" manager of sorts for the memories. The goal is to build MCTS
// without much pointer chasing. A tree is owned by one search at a time, only Stop may be called
// concurrently.
type MCTS struct {
	Config
	eval   Evaluator
	rand   *rand.Rand
	jitter float32

	// memory related fields
	nodes    []Node
	children [][]Naughty
	freelist []Naughty

	root     Naughty
	position *game.Position

	stopped atomic.Bool
	helpers []*MCTS // the other trees of a root-parallel search

	// scratch space for expansion
	moves  []game.Move
	priors []float32

	lumberjack
}

// New creates a tree rooted at pos. The configuration must be valid.
func New(pos *game.Position, conf Config, eval Evaluator) *MCTS {
	t := &MCTS{
		Config:     conf,
		eval:       eval,
		rand:       rand.New(rand.NewSource(conf.Seed)),
		nodes:      make([]Node, 0, 4096),
		children:   make([][]Naughty, 0, 4096),
		root:       nilNode,
		lumberjack: makeLumberJack(conf.Logger),
	}
	for i := 1; i < conf.Threads; i++ {
		hc := conf
		hc.Threads, hc.Listener = 1, nil
		t.helpers = append(t.helpers, newTree(pos, hc, eval, i))
	}
	t.SetPosition(pos)
	return t
}

// newTree builds one of the independent trees of a root-parallel search.
func newTree(pos *game.Position, conf Config, eval Evaluator, i int) *MCTS {
	conf.Seed += uint64(i)
	t := New(pos, conf, eval)
	if i > 0 {
		t.jitter = conf.Jitter
	}
	return t
}

// newNode creates a new node
func (t *MCTS) newNode(move game.Move, prior float32, parent Naughty) Naughty {
	n := t.alloc()
	N := t.nodeFromNaughty(n)
	N.move = move
	N.psa = prior
	N.parent = parent
	N.status = Active
	return n
}

// alloc tries to get a node from the free list. If none is found a new node is allocated into the
// master arena. Pointers into the arena are invalid after alloc.
func (t *MCTS) alloc() Naughty {
	l := len(t.freelist)
	if l == 0 {
		n := Naughty(len(t.nodes))
		t.nodes = append(t.nodes, Node{id: n, parent: nilNode})
		t.children = append(t.children, nil)
		return n
	}
	n := t.freelist[l-1]
	t.freelist = t.freelist[:l-1]
	return n
}

// free puts the node back into the freelist. The caller makes sure nothing refers to n anymore.
func (t *MCTS) free(n Naughty) {
	t.children[n] = t.children[n][:0]
	t.nodes[n].reset()
	t.freelist = append(t.freelist, n)
}

// cleanup frees oldRoot and every subtree under it except the one at newRoot.
func (t *MCTS) cleanup(oldRoot, newRoot Naughty) {
	for _, kid := range t.children[oldRoot] {
		if kid != newRoot {
			t.cleanChildren(kid)
			t.free(kid)
		}
	}
	t.free(oldRoot)
}

func (t *MCTS) cleanChildren(root Naughty) {
	for _, kid := range t.children[root] {
		t.cleanChildren(kid) // recursively clean children
		t.free(kid)
	}
	t.children[root] = t.children[root][:0]
}

// Reset throws the whole tree away, keeping the arena's memory. The root is gone until the next
// SetPosition.
func (t *MCTS) Reset() {
	for _, h := range t.helpers {
		h.Reset()
	}
	t.reset()
}

func (t *MCTS) reset() {
	t.freelist = t.freelist[:0]
	for i := range t.nodes {
		t.nodes[i].reset()
		t.children[i] = t.children[i][:0]
	}
	for i := len(t.nodes) - 1; i >= 0; i-- {
		t.freelist = append(t.freelist, Naughty(i))
	}
	t.root = nilNode
}

// Size is the number of live nodes.
func (t *MCTS) Size() int { return len(t.nodes) - len(t.freelist) }

// Position returns the root position.
func (t *MCTS) Position() *game.Position { return t.position }

// Root returns the root node.
func (t *MCTS) Root() *Node { return t.nodeFromNaughty(t.root) }

// SetPosition moves the root to pos. When pos continues the game at the root, the subtree of the
// moves played in between is kept.
func (t *MCTS) SetPosition(pos *game.Position) {
	for _, h := range t.helpers {
		h.SetPosition(pos)
	}
	t.setPosition(pos)
}

func (t *MCTS) setPosition(pos *game.Position) {
	if t.root.isValid() && t.position != nil {
		if moves, ok := continuation(t.position, pos); ok {
			reused := true
			for _, m := range moves {
				if err := t.advance(m); err != nil {
					reused = false
					break
				}
			}
			if reused && t.position.Equal(pos) {
				t.position = pos
				return
			}
		}
	}
	t.reset()
	t.position = pos
	t.root = t.newNode(game.Move{}, 1, nilNode)
}

// continuation returns the moves that lead from the position from to the position to, if to was
// reached by playing on from from.
func continuation(from, to *game.Position) ([]game.Move, bool) {
	if from.Rules() != to.Rules() {
		return nil, false
	}
	a, b := from.History(), to.History()
	if len(b) < len(a) || to.Ply()-from.Ply() != len(b)-len(a) {
		return nil, false
	}
	for i := range a {
		if a[i] != b[i] {
			return nil, false
		}
	}
	return b[len(a):], true
}

// Advance plays m at the root. The child reached by m becomes the new root and keeps its
// statistics, everything else is freed. Illegal moves leave the tree untouched.
func (t *MCTS) Advance(m game.Move) error {
	if err := t.advance(m); err != nil {
		return err
	}
	for _, h := range t.helpers {
		if err := h.advance(m); err != nil {
			return err
		}
	}
	return nil
}

func (t *MCTS) advance(m game.Move) error {
	next, err := t.position.Apply(m)
	if err != nil {
		return err
	}
	kid := t.findChild(t.root, m)
	if kid == nilNode {
		t.log("advance %v: not in tree, starting afresh", m)
		t.reset()
		t.position = next
		t.root = t.newNode(m, 1, nilNode)
		return nil
	}
	t.cleanup(t.root, kid)
	t.root = kid
	t.position = next
	root := t.nodeFromNaughty(kid)
	root.parent = nilNode
	root.status = Active
	// the old thresholds were for a deeper node
	for _, c := range t.children[kid] {
		if child := t.nodeFromNaughty(c); child.status == Pruned {
			child.status = Active
		}
	}
	t.log("advance %v: kept %d nodes with %d visits", m, t.Size(), root.visits)
	return nil
}

// findChild finds the first child that has the wanted move
func (t *MCTS) findChild(of Naughty, move game.Move) Naughty {
	for _, kid := range t.children[of] {
		if t.nodes[kid].move == move {
			return kid
		}
	}
	return nilNode
}

// nodeFromNaughty gets the node given the pointer.
func (t *MCTS) nodeFromNaughty(ptr Naughty) *Node { return &t.nodes[int(ptr)] }

// Children returns a list of children
func (t *MCTS) Children(of Naughty) []Naughty { return t.children[of] }

// Node returns the node at n.
func (t *MCTS) Node(n Naughty) *Node { return t.nodeFromNaughty(n) }
