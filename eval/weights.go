package eval

import (
	"sort"

	"github.com/chewxy/math32"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/alphatak/game"
)

// ErrInvalidWeights is returned by New for unusable weights. It wraps game.ErrInvalidConfig.
var ErrInvalidWeights = errors.WithMessage(game.ErrInvalidConfig, "invalid weights")

// Weights maps feature names to weights. The evaluator never modifies a Weights it was built from.
type Weights map[string]float64

// value features, in vector order
const (
	FlatDiff         = "flat_diff"
	ReserveDiff      = "reserve_diff"
	WallDiff         = "wall_diff"
	CapOnBoard       = "cap_on_board"
	CapCenter        = "cap_center"
	CapHeight        = "cap_height"
	Captives         = "captives"
	Hostages         = "hostages"
	ControlledStacks = "controlled_stacks"
	Center           = "center"
	Edge             = "edge"
	GroupMax         = "group_max"
	Span             = "span"
	OwnThreats       = "own_threats"
	TheirThreats     = "their_threats"
	Tempo            = "tempo"
)

// policy features, in vector order
const (
	PlaceFlat     = "p_flat"
	PlaceWall     = "p_wall"
	PlaceCap      = "p_cap"
	CapEarly      = "p_cap_early"
	SpreadMove    = "p_spread"
	MoveCenter    = "p_center"
	AdjacentOwn   = "p_adjacent_own"
	AdjacentTheir = "p_adjacent_their"
	RoadWin       = "p_road_win"
	Block         = "p_block"
	CaptureTops   = "p_captures"
	LoseTops      = "p_lose_control"
	Flatten       = "p_flatten"
	StackMoved    = "p_stack_moved"
	SpanGrowth    = "p_span_growth"
)

var valueFeatures = []string{
	FlatDiff, ReserveDiff, WallDiff, CapOnBoard, CapCenter, CapHeight, Captives, Hostages,
	ControlledStacks, Center, Edge, GroupMax, Span, OwnThreats, TheirThreats, Tempo,
}

var policyFeatures = []string{
	PlaceFlat, PlaceWall, PlaceCap, CapEarly, SpreadMove, MoveCenter, AdjacentOwn, AdjacentTheir,
	RoadWin, Block, CaptureTops, LoseTops, Flatten, StackMoved, SpanGrowth,
}

// DefaultWeights returns a fresh copy of the built in weights.
func DefaultWeights() Weights {
	return Weights{
		FlatDiff:         0.35,
		ReserveDiff:      0.02,
		WallDiff:         -0.1,
		CapOnBoard:       0.05,
		CapCenter:        0.15,
		CapHeight:        0.05,
		Captives:         0.08,
		Hostages:         0.04,
		ControlledStacks: 0.05,
		Center:           0.1,
		Edge:             -0.05,
		GroupMax:         0.1,
		Span:             0.25,
		OwnThreats:       2.5,
		TheirThreats:     -0.9,
		Tempo:            0.2,

		PlaceFlat:     1.0,
		PlaceWall:     0.2,
		PlaceCap:      0.4,
		CapEarly:      -0.8,
		SpreadMove:    0.3,
		MoveCenter:    0.6,
		AdjacentOwn:   0.15,
		AdjacentTheir: 0.2,
		RoadWin:       8,
		Block:         4,
		CaptureTops:   0.5,
		LoseTops:      -0.6,
		Flatten:       0.6,
		StackMoved:    -0.2,
		SpanGrowth:    0.5,
	}
}

// FeatureNames lists every feature name the evaluator understands.
func FeatureNames() []string {
	return append(append([]string(nil), valueFeatures...), policyFeatures...)
}

// compile checks w and lays it out as dense vectors. Names missing from w keep their default.
func compile(w Weights) (value []float64, policy []float32, err error) {
	known := lo.SliceToMap(FeatureNames(), func(n string) (string, struct{}) { return n, struct{}{} })
	names := lo.Keys(w)
	sort.Strings(names)

	var errs error
	for _, name := range names {
		v := w[name]
		if _, ok := known[name]; !ok {
			errs = multierror.Append(errs, errors.Wrapf(ErrInvalidWeights, "unknown feature %q", name))
			continue
		}
		if math32.IsNaN(float32(v)) || math32.IsInf(float32(v), 0) {
			errs = multierror.Append(errs, errors.Wrapf(ErrInvalidWeights, "feature %q has weight %v", name, v))
		}
	}
	if errs != nil {
		return nil, nil, errs
	}

	defaults := DefaultWeights()
	pick := func(name string) float64 {
		if v, ok := w[name]; ok {
			return v
		}
		return defaults[name]
	}
	value = lo.Map(valueFeatures, func(n string, _ int) float64 { return pick(n) })
	policy = lo.Map(policyFeatures, func(n string, _ int) float32 { return float32(pick(n)) })
	return value, policy, nil
}
