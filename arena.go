package alphatak

import (
	"context"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/alphatak/game"
)

// DefaultMaxPlies ends arena games that would otherwise shuffle stones forever.
const DefaultMaxPlies = 300

// Arena represents a game arena where two agents play each other.
type Arena struct {
	A, B  *Agent
	Rules game.Rules
	// Parallel is the number of games played at once.
	Parallel int
	// Openings are PTN move lists the games start from, used in turn. Each opening is played
	// twice in a row so that both agents get each side.
	Openings [][]string

	logger zerolog.Logger
}

// MakeArena makes an arena given the agents and the rules.
func MakeArena(a, b *Agent, rules game.Rules, logger *zerolog.Logger) *Arena {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "arena").Logger()
	}
	return &Arena{A: a, B: b, Rules: rules, Parallel: 1, logger: l}
}

// Play plays games games. Agent A has white in the even numbered games. Games that fail are
// reported in the returned error, the others still count. Records are ordered by game number.
func (a *Arena) Play(ctx context.Context, games int) ([]GameRecord, error) {
	rules := a.Rules
	if rules.MaxPlies == 0 {
		rules.MaxPlies = DefaultMaxPlies
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	rules = rules.Normalize()

	records := make([]GameRecord, games)
	g, ctx := errgroup.WithContext(ctx)
	if a.Parallel > 0 {
		g.SetLimit(a.Parallel)
	}
	for i := 0; i < games; i++ {
		i := i
		g.Go(func() error {
			records[i] = a.playGame(ctx, i, rules)
			return nil
		})
	}
	_ = g.Wait()

	var errs error
	for _, r := range records {
		if r.Err != nil {
			errs = multierror.Append(errs, errors.WithMessagef(r.Err, "game %d", r.Index))
		}
	}
	return records, errs
}

func (a *Arena) playGame(ctx context.Context, i int, rules game.Rules) (rec GameRecord) {
	white, black := a.A, a.B
	if i%2 == 1 {
		white, black = black, white
	}
	rec = GameRecord{Index: i, White: white.Name, Black: black.Name}

	pos, err := a.opening(i, rules)
	if err != nil {
		rec.Err = err
		return rec
	}
	rec.Moves = pos.History()

	agents := [2]*Agent{white, black}
	engines := [2]*Engine{}
	for c, agent := range agents {
		if engines[c], err = agent.spawn(rules); err != nil {
			rec.Err = err
			return rec
		}
		if err = engines[c].SetPosition(pos); err != nil {
			rec.Err = err
			return rec
		}
	}
	for !pos.Result().Over() {
		if err := ctx.Err(); err != nil {
			rec.Err = errors.WithStack(err)
			return rec
		}
		mover := pos.ToMove()
		d, err := engines[mover].Go(ctx, agents[mover].Budget)
		if err != nil {
			rec.Err = err
			return rec
		}
		for _, e := range engines {
			if err = e.Advance(d.Move); err != nil {
				rec.Err = err
				return rec
			}
		}
		pos = engines[mover].Position()
		rec.Moves = append(rec.Moves, d.Move)
	}

	rec.Result = pos.Result()
	white.record(game.White, rec.Result)
	black.record(game.Black, rec.Result)
	a.logger.Info().
		Int("game", i).
		Str("white", white.Name).
		Str("black", black.Name).
		Stringer("result", rec.Result).
		Int("plies", pos.Ply()).
		Msg("game over")
	return rec
}

func (a *Arena) opening(i int, rules game.Rules) (*game.Position, error) {
	if len(a.Openings) == 0 {
		return game.New(rules)
	}
	return game.NewFromMoves(rules, a.Openings[(i/2)%len(a.Openings)]...)
}

// ResetStats clears the statistics of both agents.
func (a *Arena) ResetStats() {
	a.A.resetStats()
	a.B.resetStats()
}
