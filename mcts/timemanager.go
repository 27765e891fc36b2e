package mcts

import (
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/alphatak/game"
)

// Clock is the state of the mover's clock.
type Clock struct {
	Remaining time.Duration
	Increment time.Duration
	MovesToGo int // 0 estimates it from the mover's reserves
}

// Budget limits a search. Every limit that is set applies and the first one reached stops the
// search. Infinite searches run until stopped.
type Budget struct {
	Nodes    int
	MoveTime time.Duration
	Clock    *Clock
	Infinite bool
}

// Nodes returns a budget of n iterations.
func Nodes(n int) Budget { return Budget{Nodes: n} }

// MoveTime returns a budget of d per move.
func MoveTime(d time.Duration) Budget { return Budget{MoveTime: d} }

func (b Budget) Validate() error {
	var errs error
	if b.Nodes < 0 {
		errs = multierror.Append(errs, errors.Wrapf(ErrInvalidConfig, "negative node budget %d", b.Nodes))
	}
	if b.MoveTime < 0 {
		errs = multierror.Append(errs, errors.Wrapf(ErrInvalidConfig, "negative move time %v", b.MoveTime))
	}
	if b.Clock != nil && (b.Clock.Remaining < 0 || b.Clock.Increment < 0 || b.Clock.MovesToGo < 0) {
		errs = multierror.Append(errs, errors.Wrapf(ErrInvalidConfig, "invalid clock %+v", *b.Clock))
	}
	if errs == nil && b.Nodes == 0 && b.MoveTime == 0 && b.Clock == nil && !b.Infinite {
		errs = multierror.Append(errs, errors.Wrap(ErrInvalidConfig, "empty budget"))
	}
	return errs
}

func (b Budget) timed() bool { return b.MoveTime > 0 || b.Clock != nil }

// StopReason says why a search ended.
type StopReason uint8

const (
	StopNone StopReason = iota
	StopNodes
	StopTime
	StopSoft
	StopSingleMove
	StopProven
	StopRequested
	StopMemory
)

func (r StopReason) String() string {
	switch r {
	case StopNone:
		return "none"
	case StopNodes:
		return "nodes"
	case StopTime:
		return "time"
	case StopSoft:
		return "soft"
	case StopSingleMove:
		return "single move"
	case StopProven:
		return "proven"
	case StopRequested:
		return "requested"
	case StopMemory:
		return "memory"
	}
	return "UNKNOWN STOP REASON"
}

// RootStats summarises the root children for the time manager.
type RootStats struct {
	Choices     int // selectable children
	Best        uint32
	Second      uint32
	BetterValue bool // a child other than the most visited one has a higher mean value
}

// TimeManager turns a budget into deadlines.
type TimeManager struct {
	conf   TimeConfig
	budget Budget

	// Target is when the search should normally end; Hard is when it must. Both are zero for
	// searches without a time limit.
	Target time.Duration
	Hard   time.Duration
}

func NewTimeManager(conf TimeConfig, budget Budget, pos *game.Position) *TimeManager {
	tm := &TimeManager{conf: conf, budget: budget}
	if budget.MoveTime > 0 {
		t := budget.MoveTime - conf.SafetyMargin
		if t < budget.MoveTime/4 {
			t = budget.MoveTime / 4
		}
		tm.Target, tm.Hard = t, t
	}
	if c := budget.Clock; c != nil {
		target, hard := tm.allocate(c, pos)
		if tm.Target == 0 || target < tm.Target {
			tm.Target = target
		}
		if tm.Hard == 0 || hard < tm.Hard {
			tm.Hard = hard
		}
	}
	return tm
}

func (tm *TimeManager) allocate(c *Clock, pos *game.Position) (target, hard time.Duration) {
	usable := c.Remaining - tm.conf.SafetyMargin
	if usable <= time.Millisecond {
		return time.Millisecond, time.Millisecond
	}
	movesToGo := c.MovesToGo
	if movesToGo <= 0 {
		flats, caps := pos.Reserves(pos.ToMove())
		movesToGo = flats + caps
	}
	if movesToGo < tm.conf.MinMovesToGo {
		movesToGo = tm.conf.MinMovesToGo
	}
	target = usable/time.Duration(movesToGo) + time.Duration(float32(c.Increment)*tm.conf.IncrementShare)
	if limit := time.Duration(float32(c.Remaining) * tm.conf.MaxShare); target > limit {
		target = limit
	}
	if target > usable {
		target = usable
	}
	hard = time.Duration(float32(target) * tm.conf.HardFactor)
	if hard > usable {
		hard = usable
	}
	if target < time.Millisecond {
		target = time.Millisecond
	}
	if hard < target {
		hard = target
	}
	return target, hard
}

// Timed reports whether the search has a deadline.
func (tm *TimeManager) Timed() bool { return tm.Hard > 0 }

// Expired is the hard deadline check, cheap enough to run every iteration.
func (tm *TimeManager) Expired(elapsed time.Duration) bool {
	return tm.Hard > 0 && elapsed >= tm.Hard
}

// ShouldStop decides whether a search that has run for elapsed should end, given the state of
// the root children.
func (tm *TimeManager) ShouldStop(elapsed time.Duration, stats RootStats) (StopReason, bool) {
	if tm.Expired(elapsed) {
		return StopTime, true
	}
	if !tm.budget.Infinite && stats.Choices == 1 {
		return StopSingleMove, true
	}
	if tm.Target == 0 {
		return StopNone, false
	}
	if elapsed >= tm.Target && !stats.BetterValue {
		return StopTime, true
	}
	if tm.conf.SoftStop && stats.Best > 0 && !stats.BetterValue {
		ratio := float32(elapsed) / float32(tm.Target)
		if ratio*ratio > float32(stats.Second)/float32(stats.Best)/2 {
			return StopSoft, true
		}
	}
	return StopNone, false
}

// Overrun reports whether elapsed went past what the clock allowed.
func (tm *TimeManager) Overrun(elapsed time.Duration) bool {
	if c := tm.budget.Clock; c != nil && elapsed > c.Remaining {
		return true
	}
	return tm.budget.MoveTime > 0 && elapsed > tm.budget.MoveTime
}
