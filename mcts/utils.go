package mcts

import (
	"github.com/chewxy/math32"
)

// ByVisits is a sortable list of root moves. It sorts the list with the move that would be played
// first.
type ByVisits []Visit

func (l ByVisits) Len() int           { return len(l) }
func (l ByVisits) Less(i, j int) bool { return better(l[i], l[j]) }
func (l ByVisits) Swap(i, j int)      { l[i], l[j] = l[j], l[i] }

func argmax(a []float32) int {
	var retVal int
	var max = math32.Inf(-1)
	for i := range a {
		if a[i] > max {
			max = a[i]
			retVal = i
		}
	}
	return retVal
}
