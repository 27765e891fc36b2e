package alphatak

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alphatak/eval"
	"github.com/alphatak/game"
)

func TestLoadConfig(t *testing.T) {
	conf, err := LoadConfig(strings.NewReader(`{
		"name": "tuned",
		"rules": {"size": 6, "komi": 2},
		"mcts_conf": {"cpuct_init": 1.1, "threads": 2},
		"weights": {"flat_diff": 0.5}
	}`))
	require.NoError(t, err)
	require.Equal(t, "tuned", conf.Name)
	require.Equal(t, 6, conf.Rules.Size)
	require.Equal(t, float32(1.1), conf.MCTSConf.CPuctInit)
	require.Equal(t, 2, conf.MCTSConf.Threads)
	require.Equal(t, DefaultConfig().MCTSConf.CPuctBase, conf.MCTSConf.CPuctBase, "absent fields keep defaults")
	require.Equal(t, 0.5, conf.Weights[eval.FlatDiff])

	e, err := New(conf)
	require.NoError(t, err)
	require.Equal(t, 6, e.Position().Size())
	require.Equal(t, 0.5, e.Evaluator().Weights()[eval.FlatDiff])
}

func TestLoadConfigErrors(t *testing.T) {
	for name, js := range map[string]string{
		"syntax":        `{"name": `,
		"unknown field": `{"colour": "blue"}`,
		"bad size":      `{"rules": {"size": 12}}`,
		"bad weights":   `{"weights": {"bogus": 1}}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(strings.NewReader(js))
			require.ErrorIs(t, err, game.ErrInvalidConfig)
		})
	}
}

func TestGameRecord(t *testing.T) {
	r := GameRecord{
		White:  "w",
		Black:  "b",
		Moves:  []game.Move{game.MustParseMove("a1", 5), game.MustParseMove("3c3>12", 5)},
		Result: game.Result{Kind: game.RoadWin, Winner: game.Black},
	}
	require.Equal(t, "a1 3c3>12", r.PTN())
	require.Equal(t, "b", r.Winner())

	r.Result = game.Result{Kind: game.Draw}
	require.Empty(t, r.Winner())
}
