package game

import (
	"github.com/pkg/errors"
)

// placedColor is the colour of a stone placed by the side to move.
func (p *Position) placedColor() Color {
	if p.Opening() {
		return p.toMove.Other()
	}
	return p.toMove
}

// check validates m against p without building the resulting position.
func (p *Position) check(m Move) error {
	if p.result.Over() {
		return errors.Wrapf(ErrIllegalMove, "%v: %v", m, ErrGameOver)
	}
	if !m.Square.OnBoard(p.size) {
		return errors.Wrapf(ErrIllegalMove, "%v: square off the board", m)
	}
	idx := m.Square.Index(p.size)

	switch m.Type {
	case Place:
		if len(p.stacks[idx]) != 0 {
			return errors.Wrapf(ErrIllegalMove, "%v: square is occupied", m)
		}
		c := p.placedColor()
		switch {
		case m.Stone > Cap:
			return errors.Wrapf(ErrIllegalMove, "%v: unknown stone", m)
		case p.Opening() && m.Stone != Flat:
			return errors.Wrapf(ErrIllegalMove, "%v: only flats may be placed on the first turn", m)
		case m.Stone == Cap && p.caps[c] == 0:
			return errors.Wrapf(ErrIllegalMove, "%v: no capstones left", m)
		case m.Stone != Cap && p.flats[c] == 0:
			return errors.Wrapf(ErrIllegalMove, "%v: no flats left", m)
		}
		return nil

	case Spread:
		if p.Opening() {
			return errors.Wrapf(ErrIllegalMove, "%v: no spreads on the first turn", m)
		}
		stack := p.stacks[idx]
		if len(stack) == 0 {
			return errors.Wrapf(ErrIllegalMove, "%v: origin is empty", m)
		}
		top := stack[len(stack)-1]
		if top.Color() != p.toMove {
			return errors.Wrapf(ErrIllegalMove, "%v: origin is controlled by %v", m, top.Color())
		}
		if !m.wellFormed() || int(m.NumDrops) > p.size || m.Dir > West {
			return errors.Wrapf(ErrIllegalMove, "%v: malformed drop counts", m)
		}
		if int(m.Carry) > p.size || int(m.Carry) > len(stack) {
			return errors.Wrapf(ErrIllegalMove, "%v: carry %d over capacity", m, m.Carry)
		}
		sq := m.Square
		for i, d := range m.DropList() {
			sq = sq.Step(m.Dir)
			if !sq.OnBoard(p.size) {
				return errors.Wrapf(ErrIllegalMove, "%v: spread leaves the board", m)
			}
			t, ok := p.Top(sq)
			if !ok {
				continue
			}
			switch t.Kind() {
			case Cap:
				return errors.Wrapf(ErrIllegalMove, "%v: %v is blocked by a capstone", m, sq)
			case Wall:
				if i != int(m.NumDrops)-1 || d != 1 || top.Kind() != Cap {
					return errors.Wrapf(ErrIllegalMove, "%v: %v is blocked by a wall", m, sq)
				}
			}
		}
		return nil
	}
	return errors.Wrapf(ErrIllegalMove, "unknown move type %d", m.Type)
}

// Legal reports whether m can be applied to p.
func (p *Position) Legal(m Move) bool { return p.check(m) == nil }

// Apply returns the position after m, or an error wrapping ErrIllegalMove.
func (p *Position) Apply(m Move) (*Position, error) {
	if err := p.check(m); err != nil {
		return nil, err
	}
	q := p.clone()
	rec := &undo{move: m, prev: p.last, n: 1}
	if p.last != nil {
		rec.n = p.last.n + 1
	}

	idx := m.Square.Index(p.size)
	switch m.Type {
	case Place:
		c := p.placedColor()
		q.stacks[idx] = []Piece{MakePiece(c, m.Stone)}
		if m.Stone == Cap {
			q.caps[c]--
		} else {
			q.flats[c]--
		}
	case Spread:
		stack := p.stacks[idx]
		h := len(stack)
		carried := stack[h-int(m.Carry):]
		q.stacks[idx] = stack[: h-int(m.Carry) : h-int(m.Carry)]
		sq := m.Square
		for _, d := range m.DropList() {
			sq = sq.Step(m.Dir)
			i := sq.Index(p.size)
			old := p.stacks[i]
			ns := make([]Piece, len(old), len(old)+int(d))
			copy(ns, old)
			if n := len(ns); n > 0 && ns[n-1].Kind() == Wall {
				ns[n-1] = MakePiece(ns[n-1].Color(), Flat)
				rec.flattened = true
			}
			ns = append(ns, carried[:d]...)
			carried = carried[d:]
			q.stacks[i] = ns
		}
	}

	q.toMove = p.toMove.Other()
	q.ply = p.ply + 1
	q.last = rec
	q.refresh()
	return q, nil
}

// MustApply applies a sequence of moves known to be legal.
func (p *Position) MustApply(moves ...Move) *Position {
	for _, m := range moves {
		var err error
		if p, err = p.Apply(m); err != nil {
			panic(err)
		}
	}
	return p
}

// Undo takes back the last move using the stored history.
func (p *Position) Undo() (*Position, error) {
	if p.last == nil {
		return nil, errors.New("no move to undo")
	}
	rec := p.last
	m := rec.move
	q := p.clone()
	q.toMove = p.toMove.Other()
	q.ply = p.ply - 1
	q.last = rec.prev

	idx := m.Square.Index(p.size)
	switch m.Type {
	case Place:
		c := q.placedColor()
		q.stacks[idx] = nil
		if m.Stone == Cap {
			q.caps[c]++
		} else {
			q.flats[c]++
		}
	case Spread:
		var path [MaxSize]Square
		sq := m.Square
		for i := range m.DropList() {
			sq = sq.Step(m.Dir)
			path[i] = sq
		}
		carried := make([]Piece, 0, m.Carry)
		for i, d := range m.DropList() {
			s := p.stacks[path[i].Index(p.size)]
			carried = append(carried, s[len(s)-int(d):]...)
			rest := make([]Piece, len(s)-int(d))
			copy(rest, s)
			if rec.flattened && i == int(m.NumDrops)-1 {
				n := len(rest) - 1
				rest[n] = MakePiece(rest[n].Color(), Wall)
			}
			if len(rest) == 0 {
				rest = nil
			}
			q.stacks[path[i].Index(p.size)] = rest
		}
		origin := p.stacks[idx]
		ns := make([]Piece, len(origin), len(origin)+len(carried))
		copy(ns, origin)
		q.stacks[idx] = append(ns, carried...)
	}
	q.refresh()
	return q, nil
}

// TopChange describes how the top of one square changes.
type TopChange struct {
	Square         Square
	Before, After  Piece
	HadTop, HasTop bool
	Covered        int // stones added on top of the previous top
}

// Preview summarises the effect of a legal move on the tops of the board.
type Preview struct {
	Changes   [MaxSize + 1]TopChange
	N         int
	Flattens  bool
	Roads     [2]Bitboard // road masks after the move
	FromStack int         // stones left on the origin of a spread
}

// Preview computes the top changes of m without building the new position. m must be legal.
func (p *Position) Preview(m Move) Preview {
	var pv Preview
	roads := [2]Bitboard{p.RoadMask(White), p.RoadMask(Black)}
	set := func(ch TopChange) {
		i := ch.Square.Index(p.size)
		roads[White], roads[Black] = roads[White].Without(i), roads[Black].Without(i)
		if ch.HasTop && ch.After.IsRoad() {
			roads[ch.After.Color()] = roads[ch.After.Color()].With(i)
		}
		pv.Changes[pv.N] = ch
		pv.N++
	}

	switch m.Type {
	case Place:
		set(TopChange{Square: m.Square, After: MakePiece(p.placedColor(), m.Stone), HasTop: true, Covered: 1})
	case Spread:
		stack := p.Stack(m.Square)
		h := len(stack)
		left := h - int(m.Carry)
		ch := TopChange{Square: m.Square, Before: stack[h-1], HadTop: true}
		if left > 0 {
			ch.After, ch.HasTop = stack[left-1], true
		}
		pv.FromStack = left
		set(ch)
		carried := stack[left:]
		sq := m.Square
		for i, d := range m.DropList() {
			sq = sq.Step(m.Dir)
			before, had := p.Top(sq)
			if had && before.Kind() == Wall && i == int(m.NumDrops)-1 {
				pv.Flattens = true
			}
			set(TopChange{
				Square: sq, Before: before, HadTop: had,
				After: carried[d-1], HasTop: true, Covered: int(d),
			})
			carried = carried[d:]
		}
	}
	pv.Roads = roads
	return pv
}

// WinsByRoad reports whether the legal move m completes a road for the side to move.
func (p *Position) WinsByRoad(m Move) bool {
	if p.Opening() {
		return false
	}
	if m.Type == Place && m.Stone == Wall {
		return false
	}
	pv := p.Preview(m)
	return pv.Roads[p.toMove].HasRoad(p.size)
}
