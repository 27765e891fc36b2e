package game

import (
	"strings"

	"github.com/pkg/errors"
)

// ErrNotation is returned for text that is not valid PTN or TPS.
var ErrNotation = errors.New("bad notation")

// ParseMove parses a PTN move such as "c3", "Sb2", "3c3>12" for a board of the given size.
func ParseMove(s string, size int) (Move, error) {
	orig := s
	s = strings.TrimRight(strings.TrimSpace(s), "'!?*\"")
	if s == "" {
		return Move{}, errors.Wrap(ErrNotation, "empty move")
	}

	kind, hasKind := Flat, false
	switch s[0] {
	case 'F':
		hasKind = true
	case 'S':
		kind, hasKind = Wall, true
	case 'C':
		kind, hasKind = Cap, true
	}
	if hasKind {
		s = s[1:]
	}

	count := 0
	if len(s) > 0 && s[0] >= '1' && s[0] <= '8' {
		count = int(s[0] - '0')
		s = s[1:]
	}
	if len(s) < 2 {
		return Move{}, errors.Wrapf(ErrNotation, "%q: missing square", orig)
	}
	sq, err := ParseSquare(s[:2])
	if err != nil {
		return Move{}, errors.Wrapf(ErrNotation, "%q: %v", orig, err)
	}
	if !sq.OnBoard(size) {
		return Move{}, errors.Wrapf(ErrNotation, "%q: square off a %dx%d board", orig, size, size)
	}
	s = s[2:]

	if s == "" {
		if count > 0 {
			return Move{}, errors.Wrapf(ErrNotation, "%q: count without direction", orig)
		}
		return PlaceMove(sq, kind), nil
	}
	if hasKind {
		return Move{}, errors.Wrapf(ErrNotation, "%q: stone kind on a spread", orig)
	}
	dir, ok := directionFromSymbol(s[0])
	if !ok {
		return Move{}, errors.Wrapf(ErrNotation, "%q: bad direction %q", orig, s[0])
	}
	s = s[1:]
	if count == 0 {
		count = 1
	}
	if s == "" {
		return SpreadMove(sq, dir, uint8(count)), nil
	}
	if len(s) > MaxSize {
		return Move{}, errors.Wrapf(ErrNotation, "%q: too many drops", orig)
	}
	drops := make([]uint8, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] < '1' || s[i] > '8' {
			return Move{}, errors.Wrapf(ErrNotation, "%q: bad drop count %q", orig, s[i])
		}
		drops = append(drops, s[i]-'0')
	}
	m := SpreadMove(sq, dir, drops...)
	if int(m.Carry) != count {
		return Move{}, errors.Wrapf(ErrNotation, "%q: drops sum to %d, carry is %d", orig, m.Carry, count)
	}
	return m, nil
}

// MustParseMove panics on bad notation.
func MustParseMove(s string, size int) Move {
	m, err := ParseMove(s, size)
	if err != nil {
		panic(err)
	}
	return m
}
