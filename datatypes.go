package alphatak

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/alphatak/eval"
	"github.com/alphatak/game"
	"github.com/alphatak/mcts"
)

// Config for the Engine.
// It holds the rules of the game played, the search settings and the evaluation weights.
type Config struct {
	Name     string       `json:"name"`
	Rules    game.Rules   `json:"rules"`
	MCTSConf mcts.Config  `json:"mcts_conf"`
	Weights  eval.Weights `json:"weights"` // missing features keep their default weight

	Logger *zerolog.Logger `json:"-"`
}

// DefaultConfig plays standard 5x5 Tak.
func DefaultConfig() Config {
	return Config{
		Name:     "alphatak",
		Rules:    game.DefaultRules(5),
		MCTSConf: mcts.DefaultConfig(),
	}
}

func (c Config) name() string {
	if c.Name == "" {
		return "UNKNOWN ENGINE"
	}
	return c.Name
}

// Validate reports every problem with c.
func (c Config) Validate() error {
	var errs error
	if err := c.Rules.Validate(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := c.MCTSConf.Validate(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if _, err := eval.New(c.Weights); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs
}

// LoadConfig reads a JSON config from r. Fields that are absent keep their DefaultConfig value.
func LoadConfig(r io.Reader) (Config, error) {
	conf := DefaultConfig()
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&conf); err != nil {
		return Config{}, errors.Wrapf(game.ErrInvalidConfig, "decoding config: %v", err)
	}
	if err := conf.Validate(); err != nil {
		return Config{}, err
	}
	return conf, nil
}

// LoadConfigFile is LoadConfig for a file.
func LoadConfigFile(filename string) (Config, error) {
	f, err := os.Open(filename)
	if err != nil {
		return Config{}, errors.WithStack(err)
	}
	defer f.Close()
	conf, err := LoadConfig(f)
	return conf, errors.WithMessagef(err, "config file %s", filename)
}

// GameRecord is a finished arena game.
type GameRecord struct {
	Index  int
	White  string
	Black  string
	Moves  []game.Move
	Result game.Result
	Err    error // set when the game could not be finished
}

// PTN returns the moves in PTN, separated by spaces.
func (g GameRecord) PTN() string {
	var buf strings.Builder
	for i, m := range g.Moves {
		if i > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(m.String())
	}
	return buf.String()
}

// Winner returns the name of the winner, or "" for draws and unfinished games.
func (g GameRecord) Winner() string {
	switch {
	case g.Err != nil || !g.Result.Over() || g.Result.Kind == game.Draw:
		return ""
	case g.Result.Winner == game.White:
		return g.White
	}
	return g.Black
}
