package eval

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"github.com/alphatak/game"
)

func mustTPS(t *testing.T, tps string) *game.Position {
	p, err := game.ParseTPS(tps, game.Rules{})
	require.NoError(t, err)
	return p
}

func TestNewRejectsUnknownFeatures(t *testing.T) {
	_, err := New(Weights{"flat_diff": 1, "bogus": 2, "also_bogus": 3})
	require.ErrorIs(t, err, ErrInvalidWeights)
	require.ErrorIs(t, err, game.ErrInvalidConfig)
	require.Contains(t, err.Error(), "2 errors occurred")
	require.Contains(t, err.Error(), `"bogus"`)
}

func TestNewKeepsDefaultsAndDoesNotMutate(t *testing.T) {
	w := Weights{FlatDiff: 3}
	e, err := New(w)
	require.NoError(t, err)
	require.Equal(t, Weights{FlatDiff: 3}, w, "caller weights are read only")

	got := e.Weights()
	require.Equal(t, 3.0, got[FlatDiff])
	require.InDelta(t, DefaultWeights()[RoadWin], got[RoadWin], 1e-6)
	require.Len(t, got, len(FeatureNames()))
}

func TestValue(t *testing.T) {
	e := Default()

	t.Run("terminal positions are exact", func(t *testing.T) {
		p := mustTPS(t, "x5/x5/1,1,1,1,1/2,2,2,x2/x5 2 4")
		require.Equal(t, float32(-1), e.Value(p))
	})

	t.Run("road threat favours its owner", func(t *testing.T) {
		white := mustTPS(t, "x5/x5/1,1,1,1,x/2,2,2,x2/x5 1 4")
		black := mustTPS(t, "x5/x5/1,1,1,1,x/2,2,2,x2/x5 2 4")
		require.Greater(t, e.Value(white), float32(0.5))
		require.Less(t, e.Value(black), float32(0))
	})

	t.Run("range", func(t *testing.T) {
		r := rand.New(rand.NewSource(3))
		p := game.MustNew(game.DefaultRules(6))
		for i := 0; i < 100 && !p.Result().Over(); i++ {
			v := e.Value(p)
			require.GreaterOrEqual(t, v, float32(-1))
			require.LessOrEqual(t, v, float32(1))
			moves := p.LegalMoves()
			p = p.MustApply(moves[r.Intn(len(moves))])
		}
	})
}

func TestPriors(t *testing.T) {
	e := Default()

	t.Run("sum to one", func(t *testing.T) {
		r := rand.New(rand.NewSource(11))
		p := game.MustNew(game.DefaultRules(5))
		for i := 0; i < 60 && !p.Result().Over(); i++ {
			moves := p.LegalMoves()
			priors := make([]float32, len(moves))
			value := e.Evaluate(p, moves, priors)
			require.Equal(t, e.Value(p), value)

			var sum float32
			for _, pr := range priors {
				require.Greater(t, pr, float32(0))
				sum += pr
			}
			require.InDelta(t, 1, sum, 1e-4)
			p = p.MustApply(moves[r.Intn(len(moves))])
		}
	})

	t.Run("winning move ranks first", func(t *testing.T) {
		p := mustTPS(t, "x5/x5/1,1,1,1,x/2,2,2,x2/x5 1 4")
		require.Equal(t, "e3", bestPrior(e, p).String())
	})

	t.Run("blocking move ranks first", func(t *testing.T) {
		p := mustTPS(t, "x5/x5/1,1,1,1,x/2,2,2,x2/x5 2 4")
		q, err := p.Apply(bestPrior(e, p))
		require.NoError(t, err)
		threats := q.RoadMask(game.White).RoadThreats(q.Empty(), q.Size())
		require.True(t, threats.Empty(), "white still threatens a road after black's top move")
	})

	t.Run("deterministic", func(t *testing.T) {
		p := mustTPS(t, "2,x4/x,12S,x3/x2,1C,x2/x3,221,x/x4,2 2 12")
		require.Equal(t, e.Policy(p), e.Policy(p))
	})
}

func bestPrior(e *Evaluator, p *game.Position) game.Move {
	moves := p.LegalMoves()
	priors := make([]float32, len(moves))
	e.Priors(p, moves, priors)
	best := 0
	for i := range priors {
		if priors[i] > priors[best] {
			best = i
		}
	}
	return moves[best]
}
