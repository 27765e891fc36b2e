package game

// ResultKind classifies the state of a game.
type ResultKind uint8

const (
	Ongoing ResultKind = iota
	RoadWin
	FlatWin
	Draw
)

func (k ResultKind) String() string {
	switch k {
	case Ongoing:
		return "Ongoing"
	case RoadWin:
		return "Road"
	case FlatWin:
		return "Flat"
	case Draw:
		return "Draw"
	}
	return "UNKNOWN RESULT"
}

// Result is the outcome of a position. Winner is only meaningful for RoadWin and FlatWin.
type Result struct {
	Kind   ResultKind
	Winner Color
}

// Over reports whether the game has ended.
func (r Result) Over() bool { return r.Kind != Ongoing }

// ValueFor returns 1 if c has won, -1 if c has lost and 0 otherwise.
func (r Result) ValueFor(c Color) float32 {
	switch r.Kind {
	case RoadWin, FlatWin:
		if r.Winner == c {
			return 1
		}
		return -1
	}
	return 0
}

// String uses PTN result notation.
func (r Result) String() string {
	switch r.Kind {
	case RoadWin:
		if r.Winner == White {
			return "R-0"
		}
		return "0-R"
	case FlatWin:
		if r.Winner == White {
			return "F-0"
		}
		return "0-F"
	case Draw:
		return "1/2-1/2"
	}
	return "*"
}

// computeResult is check_result. The player who just moved wins if both players have a road.
func (p *Position) computeResult() Result {
	mover := p.toMove.Other()
	whiteRoad := p.RoadMask(White).HasRoad(p.size)
	blackRoad := p.RoadMask(Black).HasRoad(p.size)
	switch {
	case whiteRoad && blackRoad:
		return Result{Kind: RoadWin, Winner: mover}
	case whiteRoad:
		return Result{Kind: RoadWin, Winner: White}
	case blackRoad:
		return Result{Kind: RoadWin, Winner: Black}
	}

	full := p.Empty() == 0
	out := p.flats[White]+p.caps[White] == 0 || p.flats[Black]+p.caps[Black] == 0
	ceiling := p.rules.MaxPlies > 0 && p.ply >= p.rules.MaxPlies
	if !full && !out && !ceiling {
		return Result{}
	}

	white, black := p.FlatCount()
	switch {
	case white > black:
		return Result{Kind: FlatWin, Winner: White}
	case black > white:
		return Result{Kind: FlatWin, Winner: Black}
	}
	return Result{Kind: Draw}
}

// FlatCount counts flat-topped squares for each player, komi included for black.
func (p *Position) FlatCount() (white, black int) {
	flatTops := ^(p.walls | p.capsBB)
	white = (p.tops[White] & flatTops).Count()
	black = (p.tops[Black]&flatTops).Count() + p.rules.Komi
	return white, black
}
