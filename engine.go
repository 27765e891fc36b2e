// Package alphatak is a Tak engine: a Monte Carlo tree search guided by heuristic priors and
// values. Engine is the entry point for protocol adapters, Arena plays engines against each other.
package alphatak

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/alphatak/eval"
	"github.com/alphatak/game"
	"github.com/alphatak/mcts"
)

// ErrEngineBusy is returned when the engine is asked to do anything but Stop while a search runs.
var ErrEngineBusy = errors.New("engine busy")

// Engine holds a game position and the search tree for it. All methods are safe for concurrent
// use. While Go runs, every other call except Stop fails with ErrEngineBusy.
type Engine struct {
	conf   Config
	eval   *eval.Evaluator
	logger zerolog.Logger

	mu        sync.Mutex // guards everything below
	searching bool
	cancel    context.CancelFunc
	rules     game.Rules
	pos       *game.Position
	tree      *mcts.MCTS
}

// New validates conf and returns an engine set up for a new game with conf.Rules.
func New(conf Config) (*Engine, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	ev, err := eval.New(conf.Weights)
	if err != nil {
		return nil, err
	}
	logger := zerolog.Nop()
	if conf.Logger != nil {
		logger = conf.Logger.With().Str("engine", conf.name()).Logger()
	}
	mconf := conf.MCTSConf
	if mconf.Logger == nil {
		mconf.Logger = &logger
	}
	conf.MCTSConf = mconf

	e := &Engine{conf: conf, eval: ev, logger: logger}
	rules := conf.Rules.Normalize()
	pos, err := game.New(rules)
	if err != nil {
		return nil, err
	}
	e.rules = rules
	e.pos = pos
	e.tree = mcts.New(pos, conf.MCTSConf, ev)
	return e, nil
}

// NewGame starts a new game on a size x size board. rules.Size may be left zero.
func (e *Engine) NewGame(size int, rules game.Rules) error {
	if rules.Size != 0 && rules.Size != size {
		return errors.Wrapf(game.ErrInvalidConfig, "board size %d does not match rules for size %d", size, rules.Size)
	}
	rules.Size = size
	pos, err := game.New(rules)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.searching {
		return ErrEngineBusy
	}
	e.rules = pos.Rules()
	e.pos = pos
	e.tree.SetPosition(pos)
	e.logger.Info().Int("size", size).Msg("new game")
	return nil
}

// SetPosition makes pos the current position. If pos continues the game from the current position,
// the search tree of the moves in between is kept.
func (e *Engine) SetPosition(pos *game.Position) error {
	if pos == nil {
		return errors.Wrap(game.ErrInvalidConfig, "nil position")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.searching {
		return ErrEngineBusy
	}
	e.rules = pos.Rules()
	e.pos = pos
	e.tree.SetPosition(pos)
	return nil
}

// SetMoves plays moves from the starting position of the current rules. The error names the first
// illegal move.
func (e *Engine) SetMoves(moves ...game.Move) error {
	pos, err := game.New(e.Rules())
	if err != nil {
		return err
	}
	for i, m := range moves {
		if pos, err = pos.Apply(m); err != nil {
			return errors.WithMessagef(err, "move %d (%v)", i, m)
		}
	}
	return e.SetPosition(pos)
}

// SetPTN is SetMoves for moves in PTN.
func (e *Engine) SetPTN(moves ...string) error {
	pos, err := game.NewFromMoves(e.Rules(), moves...)
	if err != nil {
		return err
	}
	return e.SetPosition(pos)
}

// SetTPS sets up the position described by a TPS string, under the current rules.
func (e *Engine) SetTPS(tps string) error {
	r := e.Rules()
	pos, err := game.ParseTPS(tps, game.Rules{NoCaps: r.NoCaps, Komi: r.Komi, MaxPlies: r.MaxPlies})
	if err != nil {
		return err
	}
	return e.SetPosition(pos)
}

// Go searches the current position within budget. It fails with ErrEngineBusy if a search is
// already running and with game.ErrGameOver if the game has ended. Running out of budget or being
// stopped is not an error: the decision holds the best move found so far.
func (e *Engine) Go(ctx context.Context, budget mcts.Budget) (mcts.Decision, error) {
	e.mu.Lock()
	if e.searching {
		e.mu.Unlock()
		return mcts.Decision{}, ErrEngineBusy
	}
	if r := e.pos.Result(); r.Over() {
		e.mu.Unlock()
		return mcts.Decision{}, errors.Wrapf(game.ErrGameOver, "result %v", r)
	}
	ctx, cancel := context.WithCancel(ctx)
	e.searching, e.cancel = true, cancel
	tree, ply := e.tree, e.pos.Ply()
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.searching, e.cancel = false, nil
		e.mu.Unlock()
		cancel()
	}()

	d, err := tree.Search(ctx, budget)
	if err != nil {
		return d, err
	}
	if d.Overrun {
		e.logger.Warn().Int("ply", ply).Dur("elapsed", d.Elapsed).Msg("clock overrun")
	}
	e.logger.Info().
		Int("ply", ply).
		Stringer("move", d.Move).
		Float32("value", d.Value).
		Int("nodes", d.Nodes).
		Dur("elapsed", d.Elapsed).
		Stringer("stop", d.Stop).
		Msg("bestmove")
	return d, nil
}

// Stop ends a running search at its next iteration boundary. It does nothing when no search
// runs, and may be called any number of times.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
}

// Advance plays m in the current position, keeping the search tree below it.
func (e *Engine) Advance(m game.Move) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.searching {
		return ErrEngineBusy
	}
	if err := e.tree.Advance(m); err != nil {
		return err
	}
	e.pos = e.tree.Position()
	return nil
}

// AdvancePTN is Advance for a move in PTN.
func (e *Engine) AdvancePTN(s string) error {
	m, err := game.ParseMove(s, e.Position().Size())
	if err != nil {
		return errors.Wrapf(game.ErrIllegalMove, "%v", err)
	}
	return e.Advance(m)
}

// Position returns the current position.
func (e *Engine) Position() *game.Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pos
}

// Rules returns the rules of the current game.
func (e *Engine) Rules() game.Rules {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rules
}

// Distribution returns the root statistics of the last search.
func (e *Engine) Distribution() ([]mcts.Visit, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.searching {
		return nil, ErrEngineBusy
	}
	return e.tree.Distribution(), nil
}

// Dot renders the top depth plies of the search tree in graphviz DOT format.
func (e *Engine) Dot(depth int) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.searching {
		return "", ErrEngineBusy
	}
	return e.tree.Dot(depth)
}

// Evaluator returns the evaluator the engine searches with.
func (e *Engine) Evaluator() *eval.Evaluator { return e.eval }
