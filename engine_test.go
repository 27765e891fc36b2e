package alphatak

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphatak/game"
	"github.com/alphatak/mcts"
)

func newTestEngine(t *testing.T) *Engine {
	e, err := New(DefaultConfig())
	require.NoError(t, err)
	return e
}

func TestNewRejectsBadConfig(t *testing.T) {
	conf := DefaultConfig()
	conf.Rules.Size = 9
	conf.MCTSConf.Threads = 0
	conf.Weights = map[string]float64{"nonsense": 1}
	_, err := New(conf)
	require.ErrorIs(t, err, game.ErrInvalidConfig)
	require.ErrorIs(t, err, mcts.ErrInvalidConfig)
	require.Contains(t, err.Error(), "nonsense")
}

func TestNewGame(t *testing.T) {
	e := newTestEngine(t)
	require.ErrorIs(t, e.NewGame(9, game.Rules{}), game.ErrInvalidConfig)
	require.ErrorIs(t, e.NewGame(5, game.Rules{Size: 6}), game.ErrInvalidConfig)

	require.NoError(t, e.NewGame(6, game.Rules{Komi: 2}))
	require.Equal(t, 6, e.Position().Size())
	require.Equal(t, 2, e.Rules().Komi)
	require.Zero(t, e.Position().Ply())
}

func TestSetPosition(t *testing.T) {
	e := newTestEngine(t)

	t.Run("ptn", func(t *testing.T) {
		require.NoError(t, e.SetPTN("a1", "e5", "c3"))
		require.Equal(t, 3, e.Position().Ply())
	})

	t.Run("illegal move names its index", func(t *testing.T) {
		err := e.SetPTN("a1", "e5", "a1")
		require.ErrorIs(t, err, game.ErrIllegalMove)
		require.Contains(t, err.Error(), "move 2")
		require.Equal(t, 3, e.Position().Ply(), "a failed call leaves the position alone")
	})

	t.Run("moves", func(t *testing.T) {
		a1, e5 := game.PlaceMove(game.Sq(0, 0), game.Flat), game.PlaceMove(game.Sq(4, 4), game.Flat)
		require.NoError(t, e.SetMoves(a1, e5))
		require.Equal(t, 2, e.Position().Ply())

		err := e.SetMoves(a1, e5, game.PlaceMove(game.Sq(0, 0), game.Wall))
		require.ErrorIs(t, err, game.ErrIllegalMove)
		require.Contains(t, err.Error(), "move 2")
	})

	t.Run("tps", func(t *testing.T) {
		require.NoError(t, e.SetTPS("x6/x6/x6/x6/x6/x5,1 2 1"))
		require.Equal(t, 6, e.Position().Size())
		require.ErrorIs(t, e.SetTPS("x5/x5/x5/x5/x5 1"), game.ErrNotation)
	})
}

func TestGo(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.SetPTN("a1", "e5", "c3", "c2"))
	pos := e.Position()

	d, err := e.Go(context.Background(), mcts.Nodes(1))
	require.NoError(t, err)
	require.Contains(t, pos.LegalMoves(), d.Move)

	d, err = e.Go(context.Background(), mcts.Nodes(500))
	require.NoError(t, err)
	require.Contains(t, pos.LegalMoves(), d.Move)
	require.Equal(t, d.Move, d.PV[0])

	dist, err := e.Distribution()
	require.NoError(t, err)
	require.Len(t, dist, len(pos.LegalMoves()))

	dot, err := e.Dot(1)
	require.NoError(t, err)
	require.True(t, strings.Contains(dot, "digraph"))

	require.NoError(t, e.Advance(d.Move))
	require.Equal(t, pos.Ply()+1, e.Position().Ply())
	require.ErrorIs(t, e.Advance(d.Move), game.ErrIllegalMove)
	require.ErrorIs(t, e.AdvancePTN("z9"), game.ErrIllegalMove)
}

func TestGoFindsRoad(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.SetTPS("x5/x5/1,1,1,1,x/2,2,2,x2/x5 1 4"))
	d, err := e.Go(context.Background(), mcts.Nodes(100))
	require.NoError(t, err)
	require.Equal(t, "e3", d.Move.String())
	require.Equal(t, mcts.ProvenWin, d.Proven)

	require.NoError(t, e.Advance(d.Move))
	require.True(t, e.Position().Result().Over())
	_, err = e.Go(context.Background(), mcts.Nodes(100))
	require.ErrorIs(t, err, game.ErrGameOver)
}

func TestBusyAndStop(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.SetPTN("a1", "e5", "c3", "c2"))
	e.Stop() // nothing to stop

	done := make(chan mcts.Decision)
	go func() {
		d, err := e.Go(context.Background(), mcts.Budget{Infinite: true})
		assert.NoError(t, err)
		done <- d
	}()

	require.Eventually(t, func() bool {
		_, err := e.Distribution()
		return errors.Is(err, ErrEngineBusy)
	}, 2*time.Second, time.Millisecond)
	_, err := e.Go(context.Background(), mcts.Nodes(1))
	require.ErrorIs(t, err, ErrEngineBusy)
	require.ErrorIs(t, e.Advance(game.PlaceMove(game.Sq(1, 1), game.Flat)), ErrEngineBusy)

	e.Stop()
	e.Stop()
	select {
	case d := <-done:
		require.Equal(t, mcts.StopRequested, d.Stop)
		require.True(t, e.Position().Legal(d.Move))
	case <-time.After(5 * time.Second):
		t.Fatal("search did not stop")
	}

	_, err = e.Go(context.Background(), mcts.Nodes(10))
	require.NoError(t, err)
}

func TestGoHonoursContext(t *testing.T) {
	e := newTestEngine(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	d, err := e.Go(ctx, mcts.Budget{Infinite: true})
	require.NoError(t, err)
	require.Equal(t, mcts.StopRequested, d.Stop)
}
