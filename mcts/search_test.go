package mcts

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alphatak/eval"
	"github.com/alphatak/game"
)

// white to move completes a road on e3
const roadInOne = "x5/x5/1,1,1,1,x/2,2,2,x2/x5 1 4"

func mustTPS(t *testing.T, tps string) *game.Position {
	p, err := game.ParseTPS(tps, game.Rules{})
	require.NoError(t, err)
	return p
}

func midgame(t *testing.T) *game.Position {
	p, err := game.NewFromMoves(game.DefaultRules(5), "a1", "e5", "c3", "c2", "d3", "b3", "c4", "Cd2")
	require.NoError(t, err)
	return p
}

func newTestTree(pos *game.Position, mutators ...func(*Config)) *MCTS {
	conf := DefaultConfig()
	for _, m := range mutators {
		m(&conf)
	}
	return New(pos, conf, eval.Default())
}

func search(t *testing.T, tree *MCTS, budget Budget) Decision {
	d, err := tree.Search(context.Background(), budget)
	require.NoError(t, err)
	return d
}

// checkConservation verifies N = 1 + sum of child N below n for every expanded node whose result
// is still open.
func checkConservation(t *testing.T, tree *MCTS, n Naughty) {
	node := tree.Node(n)
	kids := tree.Children(n)
	if node.IsExpanded() && node.Proof() == Unproven && len(kids) > 0 {
		var sum uint32
		for _, kid := range kids {
			sum += tree.Node(kid).Visits()
		}
		require.Equal(t, node.Visits(), 1+sum, "node %v", node)
	}
	for _, kid := range kids {
		checkConservation(t, tree, kid)
	}
}

func TestConservation(t *testing.T) {
	for _, pos := range []*game.Position{game.MustNew(game.DefaultRules(5)), midgame(t)} {
		tree := newTestTree(pos)
		d := search(t, tree, Nodes(2000))
		require.Equal(t, 2000, d.Nodes)
		require.Equal(t, uint32(2000), d.Visits)
		checkConservation(t, tree, tree.root)
	}
}

func TestNodeBudgetOne(t *testing.T) {
	pos := midgame(t)
	tree := newTestTree(pos)
	d := search(t, tree, Nodes(1))

	moves := pos.LegalMoves()
	require.Contains(t, moves, d.Move)
	require.Equal(t, 1, d.Nodes)

	priors := make([]float32, len(moves))
	eval.Default().Priors(pos, moves, priors)
	require.Equal(t, moves[argmax(priors)], d.Move, "without visits the highest prior is played")
	require.Equal(t, []game.Move{d.Move}, d.PV)
}

func TestTinyArena(t *testing.T) {
	pos := midgame(t)
	moves := pos.LegalMoves()
	require.Greater(t, len(moves), 10)

	for name, conf := range map[string]func(*Config){
		"single":        func(c *Config) { c.MaxNodes = 10 },
		"root parallel": func(c *Config) { c.MaxNodes, c.Threads = 10, 2 },
	} {
		t.Run(name, func(t *testing.T) {
			tree := newTestTree(pos, conf)
			d := search(t, tree, Nodes(50))
			require.Equal(t, StopMemory, d.Stop)
			require.Contains(t, moves, d.Move)
			require.NotEmpty(t, d.PV)
			require.Len(t, tree.Children(tree.root), len(moves))
		})
	}
}

func TestRoadInOne(t *testing.T) {
	pos := mustTPS(t, roadInOne)
	for name, conf := range map[string]func(*Config){
		"default":       func(*Config) {},
		"heavy prune":   func(c *Config) { c.Prune.PriorRatio, c.Prune.PriorRatioMax = 0.9, 0.9 },
		"root parallel": func(c *Config) { c.Threads = 3 },
	} {
		t.Run(name, func(t *testing.T) {
			tree := newTestTree(pos, conf)
			d := search(t, tree, Nodes(200))
			require.Equal(t, "e3", d.Move.String())
			require.Equal(t, ProvenWin, d.Proven)
			require.Equal(t, StopProven, d.Stop)
			require.Equal(t, float32(1), d.Value)
		})
	}
}

func TestAvoidsLosingMoves(t *testing.T) {
	pos := mustTPS(t, "x5/x5/1,1,1,1,x/2,2,2,x2/x5 2 4")
	tree := newTestTree(pos)
	d := search(t, tree, Nodes(3000))

	next := pos.MustApply(d.Move)
	for _, reply := range next.LegalMoves() {
		require.False(t, next.WinsByRoad(reply), "%v lets white win with %v", d.Move, reply)
	}
	require.NotEqual(t, ProvenLoss, d.Proven)
}

func TestDeterminism(t *testing.T) {
	pos := midgame(t)
	a := search(t, newTestTree(pos), Nodes(1500))
	b := search(t, newTestTree(pos), Nodes(1500))
	require.Equal(t, a.Move, b.Move)
	require.Equal(t, a.Value, b.Value)
	require.Equal(t, a.PV, b.PV)
	require.Equal(t, a.Nodes, b.Nodes)
	require.Equal(t, a.Visits, b.Visits)
}

func TestTreeReuse(t *testing.T) {
	pos := midgame(t)
	tree := newTestTree(pos)
	d := search(t, tree, Nodes(1000))

	kid := tree.findChild(tree.root, d.Move)
	require.NotEqual(t, nilNode, kid)
	kept := tree.Node(kid).Visits()
	require.NotZero(t, kept)

	require.NoError(t, tree.Advance(d.Move))
	require.Equal(t, kept, tree.Root().Visits())
	require.True(t, tree.Position().Equal(pos.MustApply(d.Move)))
	checkConservation(t, tree, tree.root)

	d2 := search(t, tree, Nodes(500))
	require.Equal(t, kept+500, d2.Visits)
	checkConservation(t, tree, tree.root)

	t.Run("set position continues the game", func(t *testing.T) {
		next := tree.Position().MustApply(d2.Move)
		want := tree.Node(tree.findChild(tree.root, d2.Move)).Visits()
		tree.SetPosition(next)
		require.Equal(t, want, tree.Root().Visits())
	})

	t.Run("unrelated position resets", func(t *testing.T) {
		tree.SetPosition(game.MustNew(game.DefaultRules(5)))
		require.Zero(t, tree.Root().Visits())
		require.Equal(t, 1, tree.Size())
	})

	t.Run("illegal advance", func(t *testing.T) {
		before := tree.Position()
		err := tree.Advance(game.SpreadMove(game.Sq(0, 0), game.North, 1))
		require.ErrorIs(t, err, game.ErrIllegalMove)
		require.Same(t, before, tree.Position())
	})
}

func TestStop(t *testing.T) {
	pos := midgame(t)

	t.Run("cancelled before the search", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		d, err := newTestTree(pos).Search(ctx, Budget{Infinite: true})
		require.NoError(t, err)
		require.Contains(t, pos.LegalMoves(), d.Move)
		require.Equal(t, 1, d.Nodes)
		require.Equal(t, StopRequested, d.Stop)
	})

	t.Run("stop while searching", func(t *testing.T) {
		tree := newTestTree(pos)
		go func() {
			time.Sleep(20 * time.Millisecond)
			tree.Stop()
			tree.Stop()
		}()
		d := search(t, tree, Budget{Infinite: true})
		require.Equal(t, StopRequested, d.Stop)
		require.Contains(t, pos.LegalMoves(), d.Move)
	})
}

func TestSearchErrors(t *testing.T) {
	over := mustTPS(t, "x5/x5/1,1,1,1,1/2,2,2,x2/x5 2 4")
	_, err := newTestTree(over).Search(context.Background(), Nodes(10))
	require.ErrorIs(t, err, game.ErrGameOver)

	_, err = newTestTree(midgame(t)).Search(context.Background(), Budget{})
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestTimedSearch(t *testing.T) {
	tree := newTestTree(midgame(t))
	start := time.Now()
	d := search(t, tree, MoveTime(200*time.Millisecond))
	require.Less(t, time.Since(start), time.Second)
	require.Contains(t, []StopReason{StopTime, StopSoft, StopProven}, d.Stop)
	require.False(t, d.Overrun)
}

func TestRootParallel(t *testing.T) {
	pos := midgame(t)
	tree := newTestTree(pos, func(c *Config) { c.Threads = 3 })
	d := search(t, tree, Nodes(300))
	require.Equal(t, 900, d.Nodes)
	require.Equal(t, uint32(900), d.Visits)
	require.Contains(t, pos.LegalMoves(), d.Move)
	require.Equal(t, d.Move, d.PV[0])

	for _, h := range append([]*MCTS{tree}, tree.helpers...) {
		checkConservation(t, h, h.root)
	}

	next := pos.MustApply(d.Move)
	require.NoError(t, tree.Advance(d.Move))
	for _, h := range tree.helpers {
		require.True(t, h.Position().Equal(next))
	}
}

func TestPruning(t *testing.T) {
	t.Run("prior and value", func(t *testing.T) {
		tree := newTestTree(midgame(t), func(c *Config) {
			c.Prune = PruneConfig{PriorRatio: 0.2, PriorRatioPerPly: 0.1, PriorRatioMax: 0.6, MinVisits: 20, QFloor: -0.3}
		})
		search(t, tree, Nodes(2000))
		checkConservation(t, tree, tree.root)

		var active, pruned int
		for _, kid := range tree.Children(tree.root) {
			switch tree.Node(kid).Status() {
			case Active:
				active++
			case Pruned:
				pruned++
			}
		}
		require.NotZero(t, active)
		require.NotZero(t, pruned)
	})

	t.Run("pruned at expansion stays unvisited", func(t *testing.T) {
		tree := newTestTree(midgame(t), func(c *Config) {
			c.Prune = PruneConfig{PriorRatio: 0.2, PriorRatioPerPly: 0.1, PriorRatioMax: 0.6}
		})
		search(t, tree, Nodes(2000))
		checkConservation(t, tree, tree.root)

		pruned := countUnvisitedPruned(t, tree, tree.root)
		require.NotZero(t, pruned)
	})
}

// countUnvisitedPruned walks the tree below n, requires every pruned node to be unvisited and
// returns how many there are.
func countUnvisitedPruned(t *testing.T, tree *MCTS, n Naughty) int {
	var count int
	for _, kid := range tree.Children(n) {
		node := tree.Node(kid)
		if node.Status() == Pruned {
			require.Zero(t, node.Visits(), "pruned node %v", node)
			count++
			continue
		}
		count += countUnvisitedPruned(t, tree, kid)
	}
	return count
}

func TestDistribution(t *testing.T) {
	pos := midgame(t)
	tree := newTestTree(pos)
	d := search(t, tree, Nodes(800))

	dist := tree.Distribution()
	require.Len(t, dist, len(pos.LegalMoves()))
	var sum uint32
	for _, v := range dist {
		sum += v.Visits
	}
	require.Equal(t, d.Visits-1, sum)

	sort.Stable(ByVisits(dist))
	require.Equal(t, d.Move, dist[0].Move)

	shares := Shares(dist)
	var total float32
	for _, s := range shares {
		total += s
	}
	require.InDelta(t, 1, total, 1e-4)
}

func TestRandomizedOpening(t *testing.T) {
	pos := game.MustNew(game.DefaultRules(5))
	played := func(seed uint64, randomCount int) game.Move {
		tree := newTestTree(pos, func(c *Config) {
			c.RandomCount, c.RandomMinVisits, c.RandomTemperature, c.Seed = randomCount, 2, 2, seed
		})
		d := search(t, tree, Nodes(400))
		kid := tree.findChild(tree.root, d.Move)
		require.Greater(t, tree.Node(kid).Visits(), uint32(2))
		return d.Move
	}

	fixed := make(map[game.Move]bool)
	seen := make(map[game.Move]bool)
	for seed := uint64(0); seed < 16; seed++ {
		fixed[played(seed, 0)] = true
		seen[played(seed, 4)] = true
	}
	require.Len(t, fixed, 1, "without randomization the seed does not matter")
	require.Greater(t, len(seen), 1, "randomized openings never varied")
}

type countingListener struct{ infos []Info }

func (l *countingListener) OnIteration(info Info) { l.infos = append(l.infos, info) }

func TestListener(t *testing.T) {
	l := new(countingListener)
	tree := newTestTree(midgame(t), func(c *Config) {
		c.Listener, c.ReportEvery = l, 100
	})
	search(t, tree, Nodes(500))
	require.Len(t, l.infos, 4)
	require.Equal(t, 400, l.infos[3].Nodes)
	require.NotEmpty(t, l.infos[3].PV)
}

func TestDot(t *testing.T) {
	tree := newTestTree(midgame(t))
	search(t, tree, Nodes(200))
	dot, err := tree.Dot(2)
	require.NoError(t, err)
	require.Contains(t, dot, "digraph")
	require.Contains(t, dot, "root")
	require.Contains(t, dot, "->")
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
	require.True(t, DefaultConfig().IsValid())

	c := DefaultConfig()
	c.CPuctInit = -1
	c.Threads = 0
	c.Prune.PriorRatio = 1.5
	err := c.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	require.Contains(t, err.Error(), "3 errors occurred")
}
