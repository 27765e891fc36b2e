package game

// LegalMoves returns all legal moves for the side to move.
func (p *Position) LegalMoves() []Move {
	return p.AppendLegalMoves(make([]Move, 0, 4*len(p.stacks)))
}

// AppendLegalMoves appends the legal moves to dst: placements by square (flat, wall, cap), then
// spreads by origin, direction, carry and drop composition. A finished game has no moves.
func (p *Position) AppendLegalMoves(dst []Move) []Move {
	if p.result.Over() {
		return dst
	}
	empty := p.Empty()
	c := p.placedColor()
	for i := range p.stacks {
		if !empty.Has(i) {
			continue
		}
		sq := SquareAt(i, p.size)
		if p.Opening() {
			dst = append(dst, PlaceMove(sq, Flat))
			continue
		}
		if p.flats[c] > 0 {
			dst = append(dst, PlaceMove(sq, Flat), PlaceMove(sq, Wall))
		}
		if p.caps[c] > 0 {
			dst = append(dst, PlaceMove(sq, Cap))
		}
	}
	if p.Opening() {
		return dst
	}

	for i, stack := range p.stacks {
		if !p.tops[p.toMove].Has(i) {
			continue
		}
		origin := SquareAt(i, p.size)
		maxCarry := len(stack)
		if maxCarry > p.size {
			maxCarry = p.size
		}
		capTop := stack[len(stack)-1].Kind() == Cap
		for _, dir := range Directions {
			for carry := 1; carry <= maxCarry; carry++ {
				m := Move{Type: Spread, Square: origin, Dir: dir, Carry: uint8(carry)}
				dst = p.appendDrops(dst, m, origin, uint8(carry), capTop)
			}
		}
	}
	return dst
}

// appendDrops enumerates every way to drop the remaining stones starting one step past at.
func (p *Position) appendDrops(dst []Move, m Move, at Square, remaining uint8, capTop bool) []Move {
	next := at.Step(m.Dir)
	if !next.OnBoard(p.size) {
		return dst
	}
	if t, ok := p.Top(next); ok {
		switch t.Kind() {
		case Cap:
			return dst
		case Wall:
			if remaining == 1 && capTop {
				m.Drops[m.NumDrops] = 1
				m.NumDrops++
				dst = append(dst, m)
			}
			return dst
		}
	}
	for d := uint8(1); d <= remaining; d++ {
		mm := m
		mm.Drops[mm.NumDrops] = d
		mm.NumDrops++
		if d == remaining {
			dst = append(dst, mm)
			continue
		}
		dst = p.appendDrops(dst, mm, next, remaining-d, capTop)
	}
	return dst
}

// Perft counts the leaf positions reachable in depth plies. Finished games count as one leaf.
func (p *Position) Perft(depth int) uint64 {
	if depth <= 0 || p.result.Over() {
		return 1
	}
	moves := p.LegalMoves()
	if depth == 1 {
		return uint64(len(moves))
	}
	var n uint64
	for _, m := range moves {
		q, err := p.Apply(m)
		if err != nil {
			panic(err)
		}
		n += q.Perft(depth - 1)
	}
	return n
}
