package mcts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphatak/game"
)

func TestTimeAllocation(t *testing.T) {
	start := game.MustNew(game.DefaultRules(5)) // 21 flats and a cap in reserve
	conf := DefaultTimeConfig()

	testCases := []struct {
		name         string
		budget       Budget
		target, hard time.Duration
	}{
		{"nodes only", Nodes(100), 0, 0},
		{"move time", MoveTime(time.Second), 950 * time.Millisecond, 950 * time.Millisecond},
		{"tiny move time", MoveTime(40 * time.Millisecond), 10 * time.Millisecond, 10 * time.Millisecond},
		{
			"clock",
			Budget{Clock: &Clock{Remaining: 22*time.Second + 50*time.Millisecond}},
			time.Second, 2 * time.Second,
		},
		{
			"clock with increment",
			Budget{Clock: &Clock{Remaining: 22*time.Second + 50*time.Millisecond, Increment: time.Second}},
			1800 * time.Millisecond, 3600 * time.Millisecond,
		},
		{
			"moves to go",
			Budget{Clock: &Clock{Remaining: 10*time.Second + 50*time.Millisecond, MovesToGo: 10}},
			time.Second, 2 * time.Second,
		},
		{
			"few moves to go are clamped",
			Budget{Clock: &Clock{Remaining: 8*time.Second + 50*time.Millisecond, MovesToGo: 1}},
			time.Second, 2 * time.Second,
		},
		{
			"share cap",
			Budget{Clock: &Clock{Remaining: 4 * time.Second, Increment: 10 * time.Second}},
			time.Second, 2 * time.Second,
		},
		{
			"flagging",
			Budget{Clock: &Clock{Remaining: 20 * time.Millisecond}},
			time.Millisecond, time.Millisecond,
		},
		{
			"move time and clock",
			Budget{MoveTime: 500 * time.Millisecond, Clock: &Clock{Remaining: 22*time.Second + 50*time.Millisecond}},
			450 * time.Millisecond, 450 * time.Millisecond,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tm := NewTimeManager(conf, tc.budget, start)
			assert.InDelta(t, float64(tc.target), float64(tm.Target), float64(time.Millisecond))
			assert.InDelta(t, float64(tc.hard), float64(tm.Hard), float64(time.Millisecond))
		})
	}
}

func TestShouldStop(t *testing.T) {
	conf := DefaultTimeConfig()
	pos := game.MustNew(game.DefaultRules(5))
	tm := NewTimeManager(conf, MoveTime(time.Second+conf.SafetyMargin), pos)
	require.Equal(t, time.Second, tm.Target)

	testCases := []struct {
		name    string
		elapsed time.Duration
		stats   RootStats
		reason  StopReason
		stop    bool
	}{
		{"early", 10 * time.Millisecond, RootStats{Choices: 10, Best: 100, Second: 90}, StopNone, false},
		{"single move", 0, RootStats{Choices: 1, Best: 5}, StopSingleMove, true},
		{"clear best", 500 * time.Millisecond, RootStats{Choices: 10, Best: 100, Second: 40}, StopSoft, true},
		{"close race", 500 * time.Millisecond, RootStats{Choices: 10, Best: 100, Second: 60}, StopNone, false},
		{"better value elsewhere", 500 * time.Millisecond, RootStats{Choices: 10, Best: 100, Second: 10, BetterValue: true}, StopNone, false},
		{"deadline", time.Second, RootStats{Choices: 10, Best: 100, Second: 99, BetterValue: true}, StopTime, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			reason, stop := tm.ShouldStop(tc.elapsed, tc.stats)
			assert.Equal(t, tc.stop, stop)
			assert.Equal(t, tc.reason, reason)
		})
	}

	t.Run("infinite searches ignore a single move", func(t *testing.T) {
		tm := NewTimeManager(conf, Budget{Infinite: true}, pos)
		_, stop := tm.ShouldStop(time.Hour, RootStats{Choices: 1, Best: 5})
		require.False(t, stop)
	})
}

func TestOverrun(t *testing.T) {
	pos := game.MustNew(game.DefaultRules(5))
	tm := NewTimeManager(DefaultTimeConfig(), MoveTime(100*time.Millisecond), pos)
	require.False(t, tm.Overrun(90*time.Millisecond))
	require.True(t, tm.Overrun(150*time.Millisecond))

	tm = NewTimeManager(DefaultTimeConfig(), Budget{Clock: &Clock{Remaining: time.Second}}, pos)
	require.True(t, tm.Overrun(2*time.Second))
}

func TestBudgetValidate(t *testing.T) {
	require.NoError(t, Nodes(1).Validate())
	require.NoError(t, Budget{Infinite: true}.Validate())
	require.ErrorIs(t, Budget{}.Validate(), ErrInvalidConfig)
	require.ErrorIs(t, Budget{Nodes: -1, MoveTime: -time.Second}.Validate(), ErrInvalidConfig)
	require.ErrorIs(t, Budget{Clock: &Clock{Remaining: -1}}.Validate(), ErrInvalidConfig)
}
