package mcts

// Naughty is essentially *Node: an index into the arena of the tree that owns it. Indices stay
// valid while the arena grows, pointers into it do not.
type Naughty int32

func (n Naughty) isValid() bool { return n >= 0 }

const (
	nilNode Naughty = -1
)
