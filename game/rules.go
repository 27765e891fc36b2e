package game

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// stoneTable is the standard number of flats and caps per player for each board size.
var stoneTable = [MaxSize + 1][2]int{
	3: {10, 0},
	4: {15, 0},
	5: {21, 1},
	6: {30, 1},
	7: {40, 2},
	8: {50, 2},
}

// Rules configures a game. Zero Flats or Caps mean "standard for the size".
type Rules struct {
	Size   int  `json:"size"`
	Flats  int  `json:"flats"`
	Caps   int  `json:"caps"`
	NoCaps bool `json:"no_caps"` // variant without capstones
	Komi   int  `json:"komi"`    // added to black's flat count

	// MaxPlies ends the game with a flat count once reached. Zero disables it.
	MaxPlies int `json:"max_plies"`
}

// DefaultRules returns the standard rules for a board size.
func DefaultRules(size int) Rules {
	return Rules{Size: size}.Normalize()
}

// Normalize fills in standard stone counts.
func (r Rules) Normalize() Rules {
	if r.Size < MinSize || r.Size > MaxSize {
		return r
	}
	if r.Flats == 0 {
		r.Flats = stoneTable[r.Size][0]
	}
	if r.Caps == 0 {
		r.Caps = stoneTable[r.Size][1]
	}
	if r.NoCaps {
		r.Caps = 0
	}
	return r
}

// Validate reports every problem with the rules.
func (r Rules) Validate() error {
	var errs error
	if r.Size < MinSize || r.Size > MaxSize {
		errs = multierror.Append(errs, errors.Wrapf(ErrInvalidConfig, "unsupported board size %d", r.Size))
	}
	r = r.Normalize()
	if r.Flats < 0 || r.Flats > 255 {
		errs = multierror.Append(errs, errors.Wrapf(ErrInvalidConfig, "flats %d out of range", r.Flats))
	}
	if r.Caps < 0 || r.Caps > 255 {
		errs = multierror.Append(errs, errors.Wrapf(ErrInvalidConfig, "caps %d out of range", r.Caps))
	}
	if r.MaxPlies < 0 {
		errs = multierror.Append(errs, errors.Wrapf(ErrInvalidConfig, "negative ply limit %d", r.MaxPlies))
	}
	return errs
}
