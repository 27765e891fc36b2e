package mcts

import (
	"context"
	"time"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"gorgonia.org/vecf32"

	"github.com/alphatak/game"
)

/*
Here lies the majority of the MCTS search code, while node.go and tree.go handle the data structure
stuff. A search runs one iteration at a time: select down to a leaf, expand and evaluate it, then
back the value up to the root. Statistics are consistent after every whole iteration, so a search
may stop at any iteration boundary.
*/

// Info describes a running search.
type Info struct {
	Nodes   int // iterations so far
	Visits  uint32
	Size    int // live nodes
	Elapsed time.Duration
	Best    game.Move
	Value   float32
	PV      []game.Move
}

// Stop asks a running search to return at the end of its current iteration. It is safe to call
// at any time from any goroutine.
func (t *MCTS) Stop() {
	t.stopped.Store(true)
	for _, h := range t.helpers {
		h.stopped.Store(true)
	}
}

// Search runs the search from the root position until the budget is spent, ctx is done, Stop is
// called, or the result at the root is proven. At least one iteration always runs, so the decision
// holds a legal move.
func (t *MCTS) Search(ctx context.Context, budget Budget) (Decision, error) {
	if err := budget.Validate(); err != nil {
		return Decision{}, err
	}
	if r := t.position.Result(); r.Over() {
		return Decision{}, errors.Wrapf(game.ErrGameOver, "result %v", r)
	}
	if t.Threads > 1 {
		return t.searchParallel(ctx, budget)
	}
	t.stopped.Store(false)
	tm := NewTimeManager(t.Time, budget, t.position)
	start := time.Now()
	iter, reason := t.run(ctx, budget, tm, start)
	d := t.decide(t.rootVisits(), true)
	t.finish(&d, iter, time.Since(start), reason, tm)
	return d, nil
}

func (t *MCTS) run(ctx context.Context, budget Budget, tm *TimeManager, start time.Time) (iter int, reason StopReason) {
	for {
		full := !t.iterate()
		iter++
		if full {
			return iter, StopMemory
		}
		if reason, stop := t.shouldStop(ctx, budget, tm, iter, start); stop {
			return iter, reason
		}
	}
}

// shouldStop is polled once after every iteration.
func (t *MCTS) shouldStop(ctx context.Context, budget Budget, tm *TimeManager, iter int, start time.Time) (StopReason, bool) {
	if t.nodes[t.root].proof != Unproven {
		return StopProven, true
	}
	if budget.Nodes > 0 && iter >= budget.Nodes {
		return StopNodes, true
	}
	if t.stopped.Load() {
		return StopRequested, true
	}
	select {
	case <-ctx.Done():
		return StopRequested, true
	default:
	}

	elapsed := time.Since(start)
	if tm.Expired(elapsed) {
		return StopTime, true
	}
	if t.Listener != nil && t.ReportEvery > 0 && iter%t.ReportEvery == 0 {
		t.Listener.OnIteration(t.info(iter, elapsed))
	}
	if iter%t.Time.CheckEvery == 0 && !budget.Infinite {
		return tm.ShouldStop(elapsed, t.rootStats())
	}
	return StopNone, false
}

func (t *MCTS) finish(d *Decision, iter int, elapsed time.Duration, reason StopReason, tm *TimeManager) {
	d.Nodes = iter
	d.Elapsed = elapsed
	d.Stop = reason
	d.Overrun = tm.Overrun(elapsed)
	if d.Overrun {
		t.logger.Warn().Dur("elapsed", elapsed).Dur("target", tm.Target).Msg("search overran its time allocation")
	}
	t.logger.Debug().
		Int("ply", t.position.Ply()).
		Int("iterations", iter).
		Uint32("visits", d.Visits).
		Int("nodes", t.Size()).
		Dur("elapsed", elapsed).
		Stringer("stop", reason).
		Stringer("best", d.Move).
		Float32("value", d.Value).
		Msg("search done")
}

// iterate runs one iteration from the root. It returns false when the arena is full.
func (t *MCTS) iterate() bool {
	return t.pipeline(t.position, t.root, 0)
}

// pipeline is a recursive MCTS pipeline:
//	SELECT, EXPAND and EVALUATE, BACKPROPAGATE.
//
// current is the position at n. The value of current for its side to move is backed up through
// the return value of each level, and stored in every node from the point of view of the player
// who made the node's move.
func (t *MCTS) pipeline(current *game.Position, n Naughty, depth int) (ok bool) {
	_, ok = t.descend(current, n, depth)
	return ok
}

func (t *MCTS) descend(current *game.Position, n Naughty, depth int) (v float32, ok bool) {
	node := t.nodeFromNaughty(n)
	switch {
	case node.proof != Unproven:
		v, ok = node.proof.Value(), true
	case !node.expanded:
		v, ok = t.expand(n, current, depth)
	default:
		kid := t.selectChild(n)
		move := t.nodes[kid].move
		next, err := current.Apply(move)
		if err != nil {
			panic(errors.Wrapf(err, "tree holds an illegal move %v at ply %d", move, current.Ply()))
		}
		var cv float32
		cv, ok = t.descend(next, kid, depth+1)
		v = -cv
		t.updateProof(n)
	}

	// BACKPROPAGATE
	t.nodeFromNaughty(n).Update(-v)
	if t.tracing() {
		t.logger.Trace().Int("depth", depth).Stringer("move", t.nodes[n].move).Float32("value", v).Msg("backprop")
	}
	return v, ok
}

// expand creates the children of n and returns the static value of current. Children whose move
// completes a road are proven on the spot. When the arena has no room left for the children, the
// node is evaluated but left unexpanded and ok is false. The root is always expanded so that a
// decision has a move to pick from.
func (t *MCTS) expand(n Naughty, current *game.Position, depth int) (v float32, ok bool) {
	if r := current.Result(); r.Over() {
		v = r.ValueFor(current.ToMove())
		node := t.nodeFromNaughty(n)
		node.expanded, node.terminal, node.proof = true, true, proofOf(v)
		return v, true
	}

	t.moves = current.AppendLegalMoves(t.moves[:0])
	moves := t.moves
	if cap(t.priors) < len(moves) {
		t.priors = make([]float32, len(moves))
	}
	priors := t.priors[:len(moves)]
	v = t.eval.Evaluate(current, moves, priors)
	if n != t.root && t.Size()+len(moves) > t.MaxNodes {
		return v, false
	}
	if t.jitter > 0 {
		t.jitterPriors(priors)
	}

	best := argmax(priors)
	cutoff := priors[best] * t.Prune.priorRatio(depth)
	me, size := current.ToMove(), current.Size()
	roadCount := current.RoadMask(me).Count()

	var won bool
	kids := t.children[n][:0]
	for i, m := range moves {
		kid := t.newNode(m, priors[i], n)
		child := t.nodeFromNaughty(kid)
		if i != best && priors[i] < cutoff {
			child.status = Pruned
		}
		if roadCount+roadGain(m) >= size && current.WinsByRoad(m) {
			child.status = Active
			child.expanded, child.terminal, child.proof = true, true, ProvenLoss
			won = true
		}
		kids = append(kids, kid)
	}
	t.children[n] = kids

	node := t.nodeFromNaughty(n)
	node.expanded = true
	if won {
		node.proof = ProvenWin
		return 1, true
	}
	return v, true
}

// roadGain bounds how many road squares m can add for its player.
func roadGain(m game.Move) int {
	if m.IsPlace() {
		return 1
	}
	return int(m.NumDrops)
}

// jitterPriors perturbs priors so that independent trees explore differently.
func (t *MCTS) jitterPriors(priors []float32) {
	for i := range priors {
		priors[i] *= 1 + t.jitter*(2*t.rand.Float32()-1)
	}
	vecf32.Scale(priors, 1/vecf32.Sum(priors))
}

// selectChild selects the best child based on alpha zero paper
// the upper bound formula is as such
// U(s, a) = Q(s, a) + c * P(s, a) * ((sqrt(parent visits))/ (1+visits to this node))
//
// where
// U(s, a) = upper confidence bound given state and action
// Q(s, a) = reward of taking the action given the state
// P(s, a) = initial probability/estimate of taking an action from the state given according to the policy
// c       = CPuctInit + ln((1 + parent visits + CPuctBase) / CPuctBase)
//
// Unvisited children are valued at the parent's Q minus FPUReduction. A child that is a proven
// loss for its mover is taken at once, children proven to win for the opponent are skipped.
func (t *MCTS) selectChild(n Naughty) Naughty {
	parent := t.nodeFromNaughty(n)
	children := t.children[n]
	numerator := t.cpuct(parent.visits) * math32.Sqrt(float32(parent.visits))
	fpu := -parent.QSA() - t.FPUReduction

	prune := t.Prune.MinVisits > 0
	var active int
	if prune {
		for _, kid := range children {
			if child := &t.nodes[kid]; child.status == Active && child.proof != ProvenWin {
				active++
			}
		}
	}

	best := nilNode
	bestValue := math32.Inf(-1)
	for _, kid := range children {
		child := &t.nodes[kid]
		if child.status != Active {
			continue
		}
		switch child.proof {
		case ProvenLoss:
			return kid
		case ProvenWin:
			continue
		}
		if prune && active > 1 && child.visits >= t.Prune.MinVisits && child.QSA() < t.Prune.QFloor {
			child.status = Pruned
			active--
			continue
		}
		if usa := t.usa(child, numerator, fpu); usa > bestValue {
			bestValue = usa
			best = kid
		}
	}
	if best != nilNode {
		return best
	}
	return t.reactivate(n, numerator, fpu)
}

func (t *MCTS) usa(child *Node, numerator, fpu float32) float32 {
	qsa := fpu
	if child.visits > 0 {
		qsa = child.QSA() // but if this node has been visited before, Q from the node is used.
	}
	return qsa + numerator*child.psa/(1+float32(child.visits))
}

// reactivate is the way out when every selectable child has been pruned: the best pruned child
// that is not a proven loss comes back.
func (t *MCTS) reactivate(n Naughty, numerator, fpu float32) Naughty {
	best := nilNode
	bestValue := math32.Inf(-1)
	for _, kid := range t.children[n] {
		child := &t.nodes[kid]
		if child.status == Invalid || child.proof == ProvenWin {
			continue
		}
		if usa := t.usa(child, numerator, fpu); usa > bestValue {
			bestValue = usa
			best = kid
		}
	}
	if best == nilNode {
		// every child wins for the opponent, the proof is about to say so
		return t.bestChild(n)
	}
	t.nodes[best].status = Active
	return best
}

// updateProof derives the proof of n from its children: one child lost for its mover makes n a
// win, and once every child is proven n takes their minimax.
func (t *MCTS) updateProof(n Naughty) {
	node := t.nodeFromNaughty(n)
	if node.proof != Unproven {
		return
	}
	proof := ProvenLoss
	for _, kid := range t.children[n] {
		switch t.nodes[kid].proof {
		case ProvenLoss:
			node.proof = ProvenWin
			return
		case Unproven:
			return
		case ProvenDraw:
			proof = ProvenDraw
		}
	}
	if len(t.children[n]) > 0 {
		node.proof = proof
	}
}

func (t *MCTS) rootStats() RootStats {
	var s RootStats
	var bestQ float32
	best := nilNode
	for _, kid := range t.children[t.root] {
		child := &t.nodes[kid]
		s.Choices++
		switch {
		case child.visits > s.Best:
			s.Second = s.Best
			s.Best = child.visits
			best = kid
			bestQ = child.QSA()
		case child.visits > s.Second:
			s.Second = child.visits
		}
	}
	for _, kid := range t.children[t.root] {
		if child := &t.nodes[kid]; kid != best && child.visits > 0 && child.QSA() > bestQ {
			s.BetterValue = true
			break
		}
	}
	return s
}

func (t *MCTS) info(iter int, elapsed time.Duration) Info {
	d := t.decide(t.rootVisits(), false)
	return Info{
		Nodes:   iter,
		Visits:  t.nodes[t.root].visits,
		Size:    t.Size(),
		Elapsed: elapsed,
		Best:    d.Move,
		Value:   d.Value,
		PV:      d.PV,
	}
}
