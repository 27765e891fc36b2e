package mcts

import (
	"fmt"
	"strconv"

	"github.com/awalterschulze/gographviz"
	"github.com/pkg/errors"
)

const dotGraph = "mcts"

// Dot renders the visited part of the tree, down to depth plies below the root, in graphviz DOT
// format. Pruned children are dashed and proven nodes coloured.
func (t *MCTS) Dot(depth int) (string, error) {
	g := gographviz.NewGraph()
	if err := g.SetName(dotGraph); err != nil {
		return "", errors.Wrap(err, "dot")
	}
	if err := g.SetDir(true); err != nil {
		return "", errors.Wrap(err, "dot")
	}
	if err := t.dotNode(g, t.root, nilNode, depth); err != nil {
		return "", errors.Wrap(err, "dot")
	}
	return g.String(), nil
}

func (t *MCTS) dotNode(g *gographviz.Graph, n, parent Naughty, depth int) error {
	node := &t.nodes[n]
	move := "root"
	if parent != nilNode {
		move = node.move.String()
	}
	attrs := map[string]string{
		"label": strconv.Quote(fmt.Sprintf("%s\nN=%d Q=%.3f P=%.3f", move, node.visits, node.QSA(), node.psa)),
	}
	switch {
	case node.status == Pruned:
		attrs["style"] = "dashed"
	case node.proof == ProvenWin:
		attrs["color"] = "green"
	case node.proof == ProvenLoss:
		attrs["color"] = "red"
	case node.proof == ProvenDraw:
		attrs["color"] = "blue"
	}
	name := dotName(n)
	if err := g.AddNode(dotGraph, name, attrs); err != nil {
		return err
	}
	if parent != nilNode {
		if err := g.AddEdge(dotName(parent), name, true, nil); err != nil {
			return err
		}
	}
	if depth <= 0 {
		return nil
	}
	for _, kid := range t.children[n] {
		if t.nodes[kid].visits == 0 {
			continue
		}
		if err := t.dotNode(g, kid, n, depth-1); err != nil {
			return err
		}
	}
	return nil
}

func dotName(n Naughty) string { return "n" + strconv.Itoa(int(n)) }
