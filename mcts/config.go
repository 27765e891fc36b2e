package mcts

import (
	"time"

	"github.com/chewxy/math32"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ErrInvalidConfig is returned for configurations a tree cannot run with.
var ErrInvalidConfig = errors.New("invalid search configuration")

// Config is the structure to configure the MCTS.
type Config struct {
	// CPuctInit and CPuctBase shape the exploration constant, which grows slowly with the parent's
	// visits: c = CPuctInit + ln((1 + N + CPuctBase) / CPuctBase).
	CPuctInit float32 `json:"cpuct_init"`
	CPuctBase float32 `json:"cpuct_base"`
	// FPUReduction is subtracted from the parent's value to score children that were never visited.
	FPUReduction float32 `json:"fpu_reduction"`

	Prune PruneConfig `json:"prune"`
	Time  TimeConfig  `json:"time"`

	MaxNodes int `json:"max_nodes"` // arena cap, a search stops once the next expansion below the root would exceed it
	Threads  int `json:"threads"`   // independent root-parallel trees

	Seed   uint64  `json:"seed"`
	Jitter float32 `json:"jitter"` // relative noise on priors for trees other than the first

	RandomCount       int     `json:"random_count"` // if the ply is less than this, we should randomize
	RandomMinVisits   uint32  `json:"random_min_visits"`
	RandomTemperature float32 `json:"random_temperature"`

	ReportEvery int             `json:"report_every"` // iterations between StatsListener calls
	Listener    StatsListener   `json:"-"`
	Logger      *zerolog.Logger `json:"-"`
}

// PruneConfig controls which children selection ignores.
//
// A child is pruned at expansion when its prior is below ratio times the best prior among its
// siblings, where ratio = PriorRatio + depth*PriorRatioPerPly, capped at PriorRatioMax. A child
// is pruned during selection when it has at least MinVisits visits and a mean value below QFloor.
// MinVisits of zero disables value pruning.
type PruneConfig struct {
	PriorRatio       float32 `json:"prior_ratio"`
	PriorRatioPerPly float32 `json:"prior_ratio_per_ply"`
	PriorRatioMax    float32 `json:"prior_ratio_max"`
	MinVisits        uint32  `json:"min_visits"`
	QFloor           float32 `json:"q_floor"`
}

// TimeConfig controls how a clock is turned into a time allocation.
type TimeConfig struct {
	SafetyMargin   time.Duration `json:"safety_margin"`
	MinMovesToGo   int           `json:"min_moves_to_go"`
	IncrementShare float32       `json:"increment_share"`
	MaxShare       float32       `json:"max_share"`
	// HardFactor stretches the target to get the hard deadline, bounded by MaxShare of the clock.
	HardFactor float32 `json:"hard_factor"`
	// SoftStop enables stopping before the target when the best move can no longer be caught.
	SoftStop   bool `json:"soft_stop"`
	CheckEvery int  `json:"check_every"` // iterations between soft stop checks
}

func DefaultConfig() Config {
	return Config{
		CPuctInit:    0.57,
		CPuctBase:    10000,
		FPUReduction: 0.2,
		Prune: PruneConfig{
			PriorRatio:       0.001,
			PriorRatioPerPly: 0.001,
			PriorRatioMax:    0.01,
		},
		Time:              DefaultTimeConfig(),
		MaxNodes:          2000000,
		Threads:           1,
		Jitter:            0.1,
		RandomMinVisits:   1,
		RandomTemperature: 1,
		ReportEvery:       1000,
	}
}

func DefaultTimeConfig() TimeConfig {
	return TimeConfig{
		SafetyMargin:   50 * time.Millisecond,
		MinMovesToGo:   8,
		IncrementShare: 0.8,
		MaxShare:       0.25,
		HardFactor:     2,
		SoftStop:       true,
		CheckEvery:     100,
	}
}

func (c Config) IsValid() bool { return c.Validate() == nil }

// Validate reports every problem with c. The errors wrap ErrInvalidConfig.
func (c Config) Validate() error {
	var errs error
	bad := func(format string, args ...interface{}) {
		errs = multierror.Append(errs, errors.Wrapf(ErrInvalidConfig, format, args...))
	}
	finite := func(name string, v float32) bool {
		if math32.IsNaN(v) || math32.IsInf(v, 0) {
			bad("%s is %v", name, v)
			return false
		}
		return true
	}
	if finite("cpuct_init", c.CPuctInit) && c.CPuctInit <= 0 {
		bad("cpuct_init must be positive, got %v", c.CPuctInit)
	}
	if finite("cpuct_base", c.CPuctBase) && c.CPuctBase <= 0 {
		bad("cpuct_base must be positive, got %v", c.CPuctBase)
	}
	if finite("fpu_reduction", c.FPUReduction) && c.FPUReduction < 0 {
		bad("fpu_reduction must not be negative, got %v", c.FPUReduction)
	}
	p := c.Prune
	for _, r := range []struct {
		name string
		v    float32
	}{{"prior_ratio", p.PriorRatio}, {"prior_ratio_per_ply", p.PriorRatioPerPly}, {"prior_ratio_max", p.PriorRatioMax}} {
		if finite(r.name, r.v) && (r.v < 0 || r.v >= 1) {
			bad("prune.%s must be in [0, 1), got %v", r.name, r.v)
		}
	}
	if finite("q_floor", p.QFloor) && p.MinVisits > 0 && (p.QFloor <= -1 || p.QFloor >= 1) {
		bad("prune.q_floor must be in (-1, 1), got %v", p.QFloor)
	}
	if c.MaxNodes < 2 {
		bad("max_nodes must be at least 2, got %d", c.MaxNodes)
	}
	if c.Threads < 1 {
		bad("threads must be at least 1, got %d", c.Threads)
	}
	if finite("jitter", c.Jitter) && (c.Jitter < 0 || c.Jitter >= 1) {
		bad("jitter must be in [0, 1), got %v", c.Jitter)
	}
	if c.RandomCount < 0 {
		bad("random_count must not be negative, got %d", c.RandomCount)
	}
	if finite("random_temperature", c.RandomTemperature) && c.RandomCount > 0 && c.RandomTemperature <= 0 {
		bad("random_temperature must be positive, got %v", c.RandomTemperature)
	}
	if c.ReportEvery < 0 {
		bad("report_every must not be negative, got %d", c.ReportEvery)
	}
	if err := c.Time.Validate(); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs
}

func (c TimeConfig) Validate() error {
	var errs error
	bad := func(format string, args ...interface{}) {
		errs = multierror.Append(errs, errors.Wrapf(ErrInvalidConfig, format, args...))
	}
	if c.SafetyMargin < 0 {
		bad("time.safety_margin must not be negative, got %v", c.SafetyMargin)
	}
	if c.MinMovesToGo < 1 {
		bad("time.min_moves_to_go must be at least 1, got %d", c.MinMovesToGo)
	}
	if !(c.IncrementShare >= 0 && c.IncrementShare <= 1) {
		bad("time.increment_share must be in [0, 1], got %v", c.IncrementShare)
	}
	if !(c.MaxShare > 0 && c.MaxShare <= 1) {
		bad("time.max_share must be in (0, 1], got %v", c.MaxShare)
	}
	if !(c.HardFactor >= 1) || math32.IsInf(c.HardFactor, 0) {
		bad("time.hard_factor must be at least 1, got %v", c.HardFactor)
	}
	if c.CheckEvery < 1 {
		bad("time.check_every must be at least 1, got %d", c.CheckEvery)
	}
	return errs
}

// priorRatio is the prune ratio for the children of a node at depth plies below the root.
func (p PruneConfig) priorRatio(depth int) float32 {
	r := p.PriorRatio + float32(depth)*p.PriorRatioPerPly
	if p.PriorRatioMax > 0 && r > p.PriorRatioMax {
		r = p.PriorRatioMax
	}
	return r
}

// cpuct is the exploration constant for a parent with n visits.
func (c Config) cpuct(n uint32) float32 {
	return c.CPuctInit + math32.Log((1+float32(n)+c.CPuctBase)/c.CPuctBase)
}
