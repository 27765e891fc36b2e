package game

import "fmt"

// Color is the owner of a stone and the side to move.
type Color uint8

const (
	White Color = iota
	Black
)

// Other returns the opponent.
func (c Color) Other() Color { return c ^ 1 }

func (c Color) String() string {
	switch c {
	case White:
		return "white"
	case Black:
		return "black"
	}
	return "UNKNOWN COLOR"
}

// Kind is the type of a stone.
type Kind uint8

const (
	Flat Kind = iota
	Wall      // standing stone
	Cap
)

func (k Kind) String() string {
	switch k {
	case Flat:
		return "F"
	case Wall:
		return "S"
	case Cap:
		return "C"
	}
	return "?"
}

// Piece is a single stone: owner in bit 2, kind in the low bits.
type Piece uint8

const (
	WhiteFlat Piece = Piece(White)<<2 | Piece(Flat)
	WhiteWall Piece = Piece(White)<<2 | Piece(Wall)
	WhiteCap  Piece = Piece(White)<<2 | Piece(Cap)
	BlackFlat Piece = Piece(Black)<<2 | Piece(Flat)
	BlackWall Piece = Piece(Black)<<2 | Piece(Wall)
	BlackCap  Piece = Piece(Black)<<2 | Piece(Cap)
)

// MakePiece builds a piece.
func MakePiece(c Color, k Kind) Piece { return Piece(c)<<2 | Piece(k) }

func (p Piece) Color() Color { return Color(p >> 2) }
func (p Piece) Kind() Kind   { return Kind(p & 3) }

// IsRoad reports whether the piece counts for road connectivity.
func (p Piece) IsRoad() bool { return p.Kind() != Wall }

func (p Piece) String() string {
	return fmt.Sprintf("%d%v", p.Color()+1, p.Kind())
}

// Square is a board coordinate. File 0 is column "a", Rank 0 is row "1".
type Square struct {
	File, Rank int8
}

// Sq is shorthand for Square{file, rank}.
func Sq(file, rank int) Square { return Square{File: int8(file), Rank: int8(rank)} }

// ParseSquare parses a square such as "c3".
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return Square{}, fmt.Errorf("bad square %q", s)
	}
	return Sq(int(s[0]-'a'), int(s[1]-'1')), nil
}

func (s Square) String() string {
	return string([]byte{'a' + byte(s.File), '1' + byte(s.Rank)})
}

// OnBoard reports whether s lies on a board of the given size.
func (s Square) OnBoard(size int) bool {
	return s.File >= 0 && s.Rank >= 0 && int(s.File) < size && int(s.Rank) < size
}

// Index is the dense index of the square on a board of the given size.
func (s Square) Index(size int) int { return int(s.Rank)*size + int(s.File) }

// SquareAt is the inverse of Index.
func SquareAt(idx, size int) Square { return Sq(idx%size, idx/size) }

// Step moves the square one step in direction d.
func (s Square) Step(d Direction) Square {
	switch d {
	case North:
		s.Rank++
	case East:
		s.File++
	case South:
		s.Rank--
	case West:
		s.File--
	}
	return s
}

// Direction of a spread.
type Direction uint8

const (
	North Direction = iota // +
	East                   // >
	South                  // -
	West                   // <
)

// Directions lists all directions in generation order.
var Directions = [...]Direction{North, East, South, West}

func (d Direction) Symbol() byte {
	return "+>-<"[d]
}

func (d Direction) String() string {
	switch d {
	case North:
		return "north"
	case East:
		return "east"
	case South:
		return "south"
	case West:
		return "west"
	}
	return "UNKNOWN DIRECTION"
}

func directionFromSymbol(b byte) (Direction, bool) {
	switch b {
	case '+':
		return North, true
	case '>':
		return East, true
	case '-':
		return South, true
	case '<':
		return West, true
	}
	return 0, false
}
