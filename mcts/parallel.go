package mcts

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/alphatak/game"
)

// searchParallel runs every tree on its own goroutine with the same budget, then merges the root
// statistics. The trees share nothing but the evaluator. A proven root or a full arena in any tree
// ends the whole search.
func (t *MCTS) searchParallel(ctx context.Context, budget Budget) (Decision, error) {
	trees := append([]*MCTS{t}, t.helpers...)
	tm := NewTimeManager(t.Time, budget, t.position)
	iters := make([]int, len(trees))
	reasons := make([]StopReason, len(trees))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var g errgroup.Group
	start := time.Now()
	for _, tree := range trees {
		tree.stopped.Store(false)
	}
	for i, tree := range trees {
		i, tree := i, tree
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					cancel()
					err = errors.Errorf("search tree %d: %v", i, r)
				}
			}()
			iters[i], reasons[i] = tree.run(ctx, budget, tm, start)
			if reasons[i] == StopProven || reasons[i] == StopMemory {
				cancel()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Decision{}, err
	}
	elapsed := time.Since(start)

	d := t.decide(mergeVisits(trees), true)
	d.Visits = lo.SumBy(trees, func(tree *MCTS) uint32 { return tree.nodes[tree.root].visits })
	for _, tree := range trees {
		if proof := tree.nodes[tree.root].proof; proof != Unproven {
			d.Proven, d.Value = proof, proof.Value()
			break
		}
	}
	if owner, kid := mostVisited(trees, d.Move); kid != nilNode {
		d.PV = append([]game.Move{d.Move}, owner.principalVariation(kid)...)
	}
	reason := reasons[0]
	for _, r := range reasons {
		if r == StopProven || r == StopMemory {
			reason = r
		}
	}
	t.finish(&d, lo.Sum(iters), elapsed, reason, tm)
	return d, nil
}

// mergeVisits sums the root statistics of the trees per move. Priors come from the first tree,
// which is never jittered. A proof found by any tree holds for all.
func mergeVisits(trees []*MCTS) []Visit {
	merged := trees[0].rootVisits()
	index := make(map[game.Move]int, len(merged))
	for i, v := range merged {
		index[v.Move] = i
	}
	for _, tree := range trees[1:] {
		for _, v := range tree.rootVisits() {
			i, ok := index[v.Move]
			if !ok {
				index[v.Move] = len(merged)
				merged = append(merged, v)
				continue
			}
			m := &merged[i]
			m.Visits += v.Visits
			m.W += v.W
			if m.Proof == Unproven {
				m.Proof = v.Proof
			}
		}
	}
	return merged
}

// mostVisited finds the tree holding most visits of move at its root.
func mostVisited(trees []*MCTS, move game.Move) (*MCTS, Naughty) {
	var owner *MCTS
	best := nilNode
	for _, tree := range trees {
		kid := tree.findChild(tree.root, move)
		if kid == nilNode {
			continue
		}
		if best == nilNode || tree.nodes[kid].visits > owner.nodes[best].visits {
			owner, best = tree, kid
		}
	}
	return owner, best
}
