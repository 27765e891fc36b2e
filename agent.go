package alphatak

import (
	"context"
	"sync"

	"github.com/alphatak/game"
	"github.com/alphatak/mcts"
)

// An Agent is a named engine configuration with a search budget, together with its results in
// the arena.
type Agent struct {
	Name   string
	Conf   Config
	Budget mcts.Budget

	// Statistics
	Wins float32
	Loss float32
	Draw float32
	sync.Mutex

	engine *Engine
}

// NewAgent checks conf and budget.
func NewAgent(name string, conf Config, budget mcts.Budget) (*Agent, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if err := budget.Validate(); err != nil {
		return nil, err
	}
	conf.Name = name
	return &Agent{Name: name, Conf: conf, Budget: budget}, nil
}

// Engine returns the agent's own engine, creating it on first use.
func (a *Agent) Engine() (*Engine, error) {
	a.Lock()
	defer a.Unlock()
	if a.engine == nil {
		e, err := New(a.Conf)
		if err != nil {
			return nil, err
		}
		a.engine = e
	}
	return a.engine, nil
}

// Search searches pos with the agent's budget and returns the suggested move.
func (a *Agent) Search(ctx context.Context, pos *game.Position) (game.Move, error) {
	e, err := a.Engine()
	if err != nil {
		return game.Move{}, err
	}
	if err := e.SetPosition(pos); err != nil {
		return game.Move{}, err
	}
	d, err := e.Go(ctx, a.Budget)
	if err != nil {
		return game.Move{}, err
	}
	return d.Move, nil
}

// spawn makes an engine for one arena game, configured like the agent's.
func (a *Agent) spawn(rules game.Rules) (*Engine, error) {
	conf := a.Conf
	conf.Rules = rules
	return New(conf)
}

func (a *Agent) record(c game.Color, r game.Result) {
	a.Lock()
	defer a.Unlock()
	switch v := r.ValueFor(c); {
	case v > 0:
		a.Wins++
	case v < 0:
		a.Loss++
	default:
		a.Draw++
	}
}

// Stats returns the wins, losses and draws so far.
func (a *Agent) Stats() (wins, loss, draw float32) {
	a.Lock()
	defer a.Unlock()
	return a.Wins, a.Loss, a.Draw
}

func (a *Agent) resetStats() {
	a.Lock()
	a.Wins = 0
	a.Loss = 0
	a.Draw = 0
	a.Unlock()
}
