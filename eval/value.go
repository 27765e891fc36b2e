package eval

import (
	"gonum.org/v1/gonum/floats"

	"github.com/alphatak/game"
)

const numValueFeatures = 16

// Value is the static value of pos in [-1, 1] from the point of view of the side to move.
// Finished games score exactly -1, 0 or 1.
func (e *Evaluator) Value(pos *game.Position) float32 {
	if r := pos.Result(); r.Over() {
		return r.ValueFor(pos.ToMove())
	}
	var f [numValueFeatures]float64
	valueFeaturesOf(pos, f[:])
	return squash(float32(floats.Dot(f[:], e.value)))
}

// ValueFeatures returns the raw feature vector of pos in FeatureNames order.
func ValueFeatures(pos *game.Position) []float64 {
	f := make([]float64, numValueFeatures)
	valueFeaturesOf(pos, f)
	return f
}

type sideStats struct {
	walls, caps                     int
	capCenter, capHeight            float64
	captives, hostages, controlled  int
	center, edge                    float64
	largest, span, threats, reserve int
}

func valueFeaturesOf(pos *game.Position, f []float64) {
	me, them := pos.ToMove(), pos.ToMove().Other()
	size := pos.Size()
	s := [2]sideStats{statsFor(pos, game.White), statsFor(pos, game.Black)}
	white, black := pos.FlatCount()
	flats := [2]int{white, black}
	n := float64(size)

	f[0] = float64(flats[me]-flats[them]) / n
	f[1] = float64(s[me].reserve-s[them].reserve) / n
	f[2] = float64(s[me].walls - s[them].walls)
	f[3] = float64(s[me].caps - s[them].caps)
	f[4] = s[me].capCenter - s[them].capCenter
	f[5] = s[me].capHeight - s[them].capHeight
	f[6] = float64(s[me].captives-s[them].captives) / n
	f[7] = float64(s[me].hostages-s[them].hostages) / n
	f[8] = float64(s[me].controlled - s[them].controlled)
	f[9] = s[me].center - s[them].center
	f[10] = s[me].edge - s[them].edge
	f[11] = float64(s[me].largest-s[them].largest) / n
	f[12] = float64(s[me].span-s[them].span) / n
	f[13] = float64(min(s[me].threats, 2))
	f[14] = float64(min(s[them].threats, 2))
	f[15] = 1
}

func statsFor(pos *game.Position, c game.Color) sideStats {
	var s sideStats
	size := pos.Size()
	cent := centrality[size]
	tops := pos.Tops(c)
	for i := 0; i < size*size; i++ {
		if !tops.Has(i) {
			continue
		}
		sq := game.SquareAt(i, size)
		stack := pos.Stack(sq)
		top := stack[len(stack)-1]
		switch top.Kind() {
		case game.Wall:
			s.walls++
		case game.Cap:
			s.caps++
			s.capCenter += float64(cent[i])
			s.capHeight += float64(len(stack)-1) / float64(size)
		default:
			s.center += float64(cent[i])
			if edges[size].Has(i) {
				s.edge++
			}
		}
		if len(stack) > 1 {
			s.controlled++
		}
		for _, pc := range stack[:len(stack)-1] {
			if pc.Color() == c {
				s.captives++
			} else {
				s.hostages++
			}
		}
	}
	flats, caps := pos.Reserves(c)
	s.reserve = flats + caps
	road := pos.RoadMask(c)
	s.largest, s.span = road.Span(size)
	s.threats = road.RoadThreats(pos.Empty(), size).Count()
	return s
}
