package alphatak

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alphatak/game"
	"github.com/alphatak/mcts"
)

func newTestAgent(t *testing.T, name string, nodes int) *Agent {
	conf := DefaultConfig()
	conf.Rules = game.DefaultRules(3)
	a, err := NewAgent(name, conf, mcts.Nodes(nodes))
	require.NoError(t, err)
	return a
}

func TestArenaPlay(t *testing.T) {
	a, b := newTestAgent(t, "a", 40), newTestAgent(t, "b", 20)
	arena := MakeArena(a, b, game.Rules{Size: 3}, nil)
	arena.Parallel = 2
	arena.Openings = [][]string{{"a1", "c3"}, {"b2", "a1"}}

	records, err := arena.Play(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, records, 4)

	for i, r := range records {
		require.Equal(t, i, r.Index)
		require.NoError(t, r.Err)
		require.True(t, r.Result.Over(), "game %d: %s", i, r.PTN())
		if i%2 == 0 {
			require.Equal(t, "a", r.White)
		} else {
			require.Equal(t, "b", r.White)
		}
		opening := arena.Openings[(i/2)%2]
		require.Equal(t, opening[0], r.Moves[0].String())
		require.Equal(t, opening[1], r.Moves[1].String())

		// the record replays to the same result
		pos, err := game.NewFromMoves(game.Rules{Size: 3, MaxPlies: DefaultMaxPlies}, splitPTN(r.PTN())...)
		require.NoError(t, err)
		require.Equal(t, r.Result, pos.Result())
	}

	for _, agent := range []*Agent{a, b} {
		wins, loss, draw := agent.Stats()
		require.Equal(t, float32(4), wins+loss+draw)
	}
	wa, _, _ := a.Stats()
	_, lb, _ := b.Stats()
	require.Equal(t, wa, lb)

	arena.ResetStats()
	wins, loss, draw := a.Stats()
	require.Zero(t, wins+loss+draw)
}

func TestArenaReportsBadOpenings(t *testing.T) {
	a, b := newTestAgent(t, "a", 10), newTestAgent(t, "b", 10)
	arena := MakeArena(a, b, game.Rules{Size: 3}, nil)
	arena.Openings = [][]string{{"a1", "a1"}}

	records, err := arena.Play(context.Background(), 2)
	require.Error(t, err)
	require.ErrorIs(t, err, game.ErrIllegalMove)
	require.Len(t, records, 2)
	require.Error(t, records[0].Err)
	require.Empty(t, records[0].Winner())
}

func TestAgentSearch(t *testing.T) {
	a := newTestAgent(t, "a", 50)
	pos := game.MustNew(game.DefaultRules(3))
	m, err := a.Search(context.Background(), pos)
	require.NoError(t, err)
	require.True(t, pos.Legal(m))

	_, err = NewAgent("bad", DefaultConfig(), mcts.Budget{})
	require.ErrorIs(t, err, mcts.ErrInvalidConfig)
}

func splitPTN(s string) []string {
	var moves []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ' ' {
			if i > start {
				moves = append(moves, s[start:i])
			}
			start = i + 1
		}
	}
	return moves
}
