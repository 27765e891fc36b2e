// This package counts the leaf nodes of the legal move tree of a position to the given depth, to
// check the move generator against known counts.

package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/alphatak/game"
)

var (
	sizeFlag  = flag.Int("size", 5, "board size")
	depthFlag = flag.Int("depth", 3, "perft depth")
	tpsFlag   = flag.String("tps", "", "start from this TPS position instead of an empty board")
	movesFlag = flag.String("moves", "", "space separated PTN moves played before counting")
	splitFlag = flag.Bool("split", false, "print the count below each root move")
)

func main() {
	flag.Parse()
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()

	pos, err := start()
	if err != nil {
		logger.Fatal().Err(err).Msg("bad start position")
	}

	if *splitFlag {
		var total uint64
		for _, m := range pos.LegalMoves() {
			n := pos.MustApply(m).Perft(*depthFlag - 1)
			total += n
			fmt.Printf("%-10v %d\n", m, n)
		}
		fmt.Printf("total      %d\n", total)
		return
	}

	for d := 0; d <= *depthFlag; d++ {
		begin := time.Now()
		n := pos.Perft(d)
		elapsed := time.Since(begin)
		fmt.Printf("perft(%d) = %d\n", d, n)
		logger.Debug().Int("depth", d).Uint64("nodes", n).Dur("elapsed", elapsed).Msg("perft")
	}
}

func start() (*game.Position, error) {
	rules := game.DefaultRules(*sizeFlag)
	var pos *game.Position
	var err error
	if *tpsFlag != "" {
		pos, err = game.ParseTPS(*tpsFlag, game.Rules{})
	} else {
		pos, err = game.New(rules)
	}
	if err != nil {
		return nil, err
	}
	for i, s := range strings.Fields(*movesFlag) {
		m, err := game.ParseMove(s, pos.Size())
		if err != nil {
			return nil, err
		}
		if pos, err = pos.Apply(m); err != nil {
			return nil, errors.WithMessagef(err, "move %d", i)
		}
	}
	return pos, nil
}
