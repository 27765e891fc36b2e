package game

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/pkg/errors"
)

// undo records what is needed to take back one move.
type undo struct {
	move      Move
	flattened bool // a wall under the final drop was flattened
	prev      *undo
	n         int // length of the history up to and including this record
}

// Position is a Tak position. A Position is never modified after construction: Apply returns a new
// Position that shares the stacks it did not touch.
type Position struct {
	rules  Rules
	size   int
	stacks [][]Piece // indexed by Square.Index, bottom to top

	flats, caps [2]int // reserves
	toMove      Color
	ply         int
	last        *undo

	// derived
	tops   [2]Bitboard // squares whose top stone belongs to each color
	walls  Bitboard
	capsBB Bitboard
	result Result
}

// New returns the starting position for the rules.
func New(rules Rules) (*Position, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	rules = rules.Normalize()
	p := &Position{
		rules:  rules,
		size:   rules.Size,
		stacks: make([][]Piece, rules.Size*rules.Size),
	}
	for c := range p.flats {
		p.flats[c] = rules.Flats
		p.caps[c] = rules.Caps
	}
	p.refresh()
	return p, nil
}

// MustNew is New for rules known to be valid.
func MustNew(rules Rules) *Position {
	p, err := New(rules)
	if err != nil {
		panic(fmt.Sprintf("%+v", err))
	}
	return p
}

// NewFromMoves replays PTN moves from the starting position. The error names the first move that
// could not be parsed or applied.
func NewFromMoves(rules Rules, moves ...string) (*Position, error) {
	p, err := New(rules)
	if err != nil {
		return nil, err
	}
	for i, s := range moves {
		m, err := ParseMove(s, p.size)
		if err != nil {
			return nil, errors.Wrapf(ErrIllegalMove, "move %d (%q): %v", i, s, err)
		}
		if p, err = p.Apply(m); err != nil {
			return nil, errors.WithMessagef(err, "move %d (%q)", i, s)
		}
	}
	return p, nil
}

func (p *Position) Rules() Rules  { return p.rules }
func (p *Position) Size() int     { return p.size }
func (p *Position) ToMove() Color { return p.toMove }
func (p *Position) Ply() int      { return p.ply }

// Result is the cached check_result of the position.
func (p *Position) Result() Result { return p.result }

// Opening reports whether the swap rule is in force: each side places one of the opponent's flats.
func (p *Position) Opening() bool { return p.ply < 2 }

// Stack returns the stack on sq, bottom to top. The slice must not be modified.
func (p *Position) Stack(sq Square) []Piece { return p.stacks[sq.Index(p.size)] }

// Height is the number of stones on sq.
func (p *Position) Height(sq Square) int { return len(p.stacks[sq.Index(p.size)]) }

// Top returns the top stone of sq.
func (p *Position) Top(sq Square) (Piece, bool) {
	s := p.stacks[sq.Index(p.size)]
	if len(s) == 0 {
		return 0, false
	}
	return s[len(s)-1], true
}

// Reserves returns the stones c has left to place.
func (p *Position) Reserves(c Color) (flats, caps int) { return p.flats[c], p.caps[c] }

// Tops returns the squares controlled by c.
func (p *Position) Tops(c Color) Bitboard { return p.tops[c] }

// RoadMask returns the squares that count towards a road for c.
func (p *Position) RoadMask(c Color) Bitboard { return p.tops[c] &^ p.walls }

// Walls returns all squares topped by a standing stone.
func (p *Position) Walls() Bitboard { return p.walls }

// Caps returns all squares topped by a capstone.
func (p *Position) Caps() Bitboard { return p.capsBB }

// Occupied returns all non-empty squares.
func (p *Position) Occupied() Bitboard { return p.tops[White] | p.tops[Black] }

// Empty returns all empty squares.
func (p *Position) Empty() Bitboard { return masks[p.size].full &^ p.Occupied() }

// LastMove returns the move that led to this position.
func (p *Position) LastMove() (Move, bool) {
	if p.last == nil {
		return Move{}, false
	}
	return p.last.move, true
}

// History returns the moves played from the starting position, oldest first. Positions parsed from
// TPS have no history before the parsed position.
func (p *Position) History() []Move {
	if p.last == nil {
		return nil
	}
	moves := make([]Move, p.last.n)
	for u := p.last; u != nil; u = u.prev {
		moves[u.n-1] = u.move
	}
	return moves
}

// refresh recomputes the derived bitboards and the result.
func (p *Position) refresh() {
	p.tops = [2]Bitboard{}
	p.walls, p.capsBB = 0, 0
	for i, s := range p.stacks {
		if len(s) == 0 {
			continue
		}
		top := s[len(s)-1]
		p.tops[top.Color()] = p.tops[top.Color()].With(i)
		switch top.Kind() {
		case Wall:
			p.walls = p.walls.With(i)
		case Cap:
			p.capsBB = p.capsBB.With(i)
		}
	}
	p.result = p.computeResult()
}

// clone copies the position header and the outer stack slice. Stacks are shared.
func (p *Position) clone() *Position {
	q := *p
	q.stacks = make([][]Piece, len(p.stacks))
	copy(q.stacks, p.stacks)
	return &q
}

// Equal reports whether both positions have the same board, reserves, side to move, ply and
// history.
func (p *Position) Equal(o *Position) bool {
	if p.rules != o.rules || p.toMove != o.toMove || p.ply != o.ply || p.flats != o.flats || p.caps != o.caps {
		return false
	}
	for i := range p.stacks {
		a, b := p.stacks[i], o.stacks[i]
		if len(a) != len(b) {
			return false
		}
		for j := range a {
			if a[j] != b[j] {
				return false
			}
		}
	}
	ha, hb := p.History(), o.History()
	if len(ha) != len(hb) {
		return false
	}
	for i := range ha {
		if ha[i] != hb[i] {
			return false
		}
	}
	return true
}

// Hash returns a 64 bit hash of the board, reserves and side to move.
func (p *Position) Hash() uint64 {
	h := fnv.New64a()
	var buf [8]byte
	buf[0] = byte(p.size)
	buf[1] = byte(p.toMove)
	buf[2], buf[3] = byte(p.flats[White]), byte(p.flats[Black])
	buf[4], buf[5] = byte(p.caps[White]), byte(p.caps[Black])
	if p.Opening() {
		buf[6] = 1
	}
	h.Write(buf[:7])
	for _, s := range p.stacks {
		binary.LittleEndian.PutUint16(buf[:2], uint16(len(s)))
		h.Write(buf[:2])
		for _, pc := range s {
			buf[0] = byte(pc)
			h.Write(buf[:1])
		}
	}
	return h.Sum64()
}

// String renders the board, top rank first.
func (p *Position) String() string {
	var b strings.Builder
	for r := p.size - 1; r >= 0; r-- {
		fmt.Fprintf(&b, "%d ", r+1)
		for f := 0; f < p.size; f++ {
			s := p.stacks[Sq(f, r).Index(p.size)]
			cell := "."
			if len(s) > 0 {
				var sb strings.Builder
				for _, pc := range s {
					sb.WriteByte('1' + byte(pc.Color()))
				}
				if k := s[len(s)-1].Kind(); k != Flat {
					sb.WriteString(k.String())
				}
				cell = sb.String()
			}
			fmt.Fprintf(&b, "%-6s", cell)
		}
		b.WriteByte('\n')
	}
	b.WriteString("  ")
	for f := 0; f < p.size; f++ {
		fmt.Fprintf(&b, "%-6c", 'a'+f)
	}
	fmt.Fprintf(&b, "\n%v to move, ply %d, reserves %d/%d %d/%d", p.toMove, p.ply,
		p.flats[White], p.caps[White], p.flats[Black], p.caps[Black])
	return b.String()
}
