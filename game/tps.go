package game

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ParseTPS parses a position in Tak Positional System notation, for example
// "x5/x5/x2,1,x2/x5/x5 2 1". Reserves are derived from the rules and the stones on the board.
// rules.Size may be zero, in which case it is taken from the TPS.
func ParseTPS(tps string, rules Rules) (*Position, error) {
	tps = strings.TrimPrefix(strings.TrimSuffix(strings.TrimSpace(tps), "]"), "[TPS ")
	tps = strings.Trim(tps, "\"")
	fields := strings.Fields(tps)
	if len(fields) != 3 {
		return nil, errors.Wrapf(ErrNotation, "tps %q: want 3 fields", tps)
	}
	rows := strings.Split(fields[0], "/")
	if rules.Size == 0 {
		rules.Size = len(rows)
	}
	if len(rows) != rules.Size {
		return nil, errors.Wrapf(ErrInvalidConfig, "tps has %d rows for board size %d", len(rows), rules.Size)
	}
	p, err := New(rules)
	if err != nil {
		return nil, err
	}
	size := p.size

	var used [2][2]int // [color][flat or wall, cap]
	for r, row := range rows {
		rank := size - 1 - r
		file := 0
		for _, cell := range strings.Split(row, ",") {
			if cell == "" {
				return nil, errors.Wrapf(ErrNotation, "tps row %q: empty cell", row)
			}
			if cell[0] == 'x' {
				n := 1
				if len(cell) > 1 {
					if n, err = strconv.Atoi(cell[1:]); err != nil || n < 1 {
						return nil, errors.Wrapf(ErrNotation, "tps row %q: bad run %q", row, cell)
					}
				}
				file += n
				continue
			}
			if file >= size {
				return nil, errors.Wrapf(ErrNotation, "tps row %q: too many squares", row)
			}
			stack, err := parseTPSStack(cell)
			if err != nil {
				return nil, errors.Wrapf(err, "tps row %q", row)
			}
			for _, pc := range stack {
				if pc.Kind() == Cap {
					used[pc.Color()][1]++
				} else {
					used[pc.Color()][0]++
				}
			}
			p.stacks[Sq(file, rank).Index(size)] = stack
			file++
		}
		if file != size {
			return nil, errors.Wrapf(ErrNotation, "tps row %q: %d squares, want %d", row, file, size)
		}
	}

	for c := range used {
		p.flats[c] -= used[c][0]
		p.caps[c] -= used[c][1]
		if p.flats[c] < 0 || p.caps[c] < 0 {
			return nil, errors.Wrapf(ErrInvalidConfig, "tps uses more stones than %v owns", Color(c))
		}
	}

	switch fields[1] {
	case "1":
		p.toMove = White
	case "2":
		p.toMove = Black
	default:
		return nil, errors.Wrapf(ErrNotation, "tps side to move %q", fields[1])
	}
	moveNumber, err := strconv.Atoi(fields[2])
	if err != nil || moveNumber < 1 {
		return nil, errors.Wrapf(ErrNotation, "tps move number %q", fields[2])
	}
	p.ply = 2*(moveNumber-1) + int(p.toMove)
	p.refresh()
	return p, nil
}

func parseTPSStack(cell string) ([]Piece, error) {
	kind := Flat
	switch cell[len(cell)-1] {
	case 'S':
		kind = Wall
		cell = cell[:len(cell)-1]
	case 'C':
		kind = Cap
		cell = cell[:len(cell)-1]
	}
	if cell == "" {
		return nil, errors.Wrap(ErrNotation, "stack without stones")
	}
	stack := make([]Piece, len(cell))
	for i := 0; i < len(cell); i++ {
		switch cell[i] {
		case '1':
			stack[i] = WhiteFlat
		case '2':
			stack[i] = BlackFlat
		default:
			return nil, errors.Wrapf(ErrNotation, "bad stone %q", cell[i])
		}
	}
	top := stack[len(stack)-1]
	stack[len(stack)-1] = MakePiece(top.Color(), kind)
	return stack, nil
}

// TPS formats the position in Tak Positional System notation.
func (p *Position) TPS() string {
	var b strings.Builder
	for r := p.size - 1; r >= 0; r-- {
		empty := 0
		cells := make([]string, 0, p.size)
		flush := func() {
			switch {
			case empty == 1:
				cells = append(cells, "x")
			case empty > 1:
				cells = append(cells, fmt.Sprintf("x%d", empty))
			}
			empty = 0
		}
		for f := 0; f < p.size; f++ {
			s := p.stacks[Sq(f, r).Index(p.size)]
			if len(s) == 0 {
				empty++
				continue
			}
			flush()
			var sb strings.Builder
			for _, pc := range s {
				sb.WriteByte('1' + byte(pc.Color()))
			}
			if k := s[len(s)-1].Kind(); k != Flat {
				sb.WriteString(k.String())
			}
			cells = append(cells, sb.String())
		}
		flush()
		b.WriteString(strings.Join(cells, ","))
		if r > 0 {
			b.WriteByte('/')
		}
	}
	fmt.Fprintf(&b, " %d %d", p.toMove+1, p.ply/2+1)
	return b.String()
}
