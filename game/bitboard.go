package game

import "math/bits"

// Bitboard is a set of squares indexed by Square.Index for one board size.
type Bitboard uint64

type edgeMasks struct {
	full, west, east, south, north Bitboard
}

var masks [MaxSize + 1]edgeMasks

func init() {
	for size := MinSize; size <= MaxSize; size++ {
		var m edgeMasks
		for r := 0; r < size; r++ {
			for f := 0; f < size; f++ {
				bit := Bitboard(1) << uint(r*size+f)
				m.full |= bit
				if f == 0 {
					m.west |= bit
				}
				if f == size-1 {
					m.east |= bit
				}
				if r == 0 {
					m.south |= bit
				}
				if r == size-1 {
					m.north |= bit
				}
			}
		}
		masks[size] = m
	}
}

func (b Bitboard) Has(i int) bool         { return b&(1<<uint(i)) != 0 }
func (b Bitboard) With(i int) Bitboard    { return b | 1<<uint(i) }
func (b Bitboard) Without(i int) Bitboard { return b &^ (1 << uint(i)) }
func (b Bitboard) Count() int             { return bits.OnesCount64(uint64(b)) }
func (b Bitboard) Empty() bool            { return b == 0 }

// lowest returns the index of the lowest set bit.
func (b Bitboard) lowest() int { return bits.TrailingZeros64(uint64(b)) }

// Neighbours returns the squares orthogonally adjacent to b.
func (b Bitboard) Neighbours(size int) Bitboard {
	m := masks[size]
	n := b<<uint(size) | b>>uint(size) | (b<<1)&^m.west | (b>>1)&^m.east
	return n & m.full
}

// flood grows seed inside within until it stops changing.
func flood(seed, within Bitboard, size int) Bitboard {
	seed &= within
	for {
		next := (seed | seed.Neighbours(size)) & within
		if next == seed {
			return seed
		}
		seed = next
	}
}

// HasRoad reports whether b connects two opposite edges.
func (b Bitboard) HasRoad(size int) bool {
	m := masks[size]
	if b&m.south != 0 && b&m.north != 0 && flood(b&m.south, b, size)&m.north != 0 {
		return true
	}
	return b&m.west != 0 && b&m.east != 0 && flood(b&m.west, b, size)&m.east != 0
}

// Group is a connected set of road squares.
type Group struct {
	Squares Bitboard
	Size    int
	Files   int // distinct files covered
	Ranks   int // distinct ranks covered
}

// Groups splits b into its connected components.
func (b Bitboard) Groups(size int) []Group {
	var groups []Group
	for b != 0 {
		g := flood(Bitboard(1)<<uint(b.lowest()), b, size)
		b &^= g
		groups = append(groups, Group{
			Squares: g,
			Size:    g.Count(),
			Files:   g.files(size),
			Ranks:   g.ranks(size),
		})
	}
	return groups
}

// Span returns the size of the largest group in b and the widest extent, in files or ranks, of
// any group. It does not allocate.
func (b Bitboard) Span(size int) (largest, span int) {
	for b != 0 {
		g := flood(Bitboard(1)<<uint(b.lowest()), b, size)
		b &^= g
		if n := g.Count(); n > largest {
			largest = n
		}
		if n := g.files(size); n > span {
			span = n
		}
		if n := g.ranks(size); n > span {
			span = n
		}
	}
	return largest, span
}

func (b Bitboard) files(size int) int {
	var n int
	col := masks[size].west
	for f := 0; f < size; f++ {
		if b&(col<<uint(f)) != 0 {
			n++
		}
	}
	return n
}

func (b Bitboard) ranks(size int) int {
	var n int
	row := masks[size].south
	for r := 0; r < size; r++ {
		if b&(row<<uint(r*size)) != 0 {
			n++
		}
	}
	return n
}

// RoadThreats returns the squares of open that would complete a road if added to b.
func (b Bitboard) RoadThreats(open Bitboard, size int) Bitboard {
	var threats Bitboard
	for c := open & b.Neighbours(size); c != 0; {
		i := c.lowest()
		c = c.Without(i)
		if b.With(i).HasRoad(size) {
			threats = threats.With(i)
		}
	}
	return threats
}
