package game

import (
	"math"
	"strconv"
	"strings"
)

const (
	MinSize = 3
	MaxSize = 8
)

// MoveType tags a Move.
type MoveType uint8

const (
	Place MoveType = iota
	Spread
)

// Move is either a placement or a spread. It is a comparable value and never allocates.
//
// For a placement only Square and Stone are meaningful. For a spread Square is the origin, Carry is
// the number of stones picked up and Drops[:NumDrops] the stones left on each square along Dir.
type Move struct {
	Type     MoveType
	Square   Square
	Stone    Kind
	Dir      Direction
	Carry    uint8
	NumDrops uint8
	Drops    [MaxSize]uint8
}

// PlaceMove builds a placement.
func PlaceMove(sq Square, k Kind) Move {
	return Move{Type: Place, Square: sq, Stone: k}
}

// SpreadMove builds a spread. The carry is the sum of drops, saturated at 255 so that an
// impossible sum never wraps into a small one.
func SpreadMove(origin Square, dir Direction, drops ...uint8) Move {
	m := Move{Type: Spread, Square: origin, Dir: dir}
	var carry int
	for i, d := range drops {
		if i >= MaxSize {
			break
		}
		m.Drops[i] = d
		carry += int(d)
		m.NumDrops++
	}
	m.Carry = uint8(min(carry, math.MaxUint8))
	return m
}

func (m Move) IsPlace() bool  { return m.Type == Place }
func (m Move) IsSpread() bool { return m.Type == Spread }

// DropList returns the drops as a slice.
func (m Move) DropList() []uint8 { return m.Drops[:m.NumDrops] }

// wellFormed checks the drop-count invariant of a spread.
func (m Move) wellFormed() bool {
	if m.Type != Spread {
		return true
	}
	if m.NumDrops == 0 || int(m.NumDrops) > MaxSize || m.Carry == 0 {
		return false
	}
	var sum int
	for _, d := range m.Drops[:m.NumDrops] {
		if d == 0 || d > m.Carry {
			return false
		}
		sum += int(d)
	}
	return sum == int(m.Carry)
}

// String formats the move in PTN.
func (m Move) String() string {
	var b strings.Builder
	switch m.Type {
	case Place:
		if m.Stone != Flat {
			b.WriteString(m.Stone.String())
		}
		b.WriteString(m.Square.String())
	case Spread:
		if m.Carry > 1 {
			b.WriteString(strconv.Itoa(int(m.Carry)))
		}
		b.WriteString(m.Square.String())
		b.WriteByte(m.Dir.Symbol())
		if m.NumDrops > 1 {
			for _, d := range m.DropList() {
				b.WriteByte('0' + d)
			}
		}
	}
	return b.String()
}
