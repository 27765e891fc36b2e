package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog"

	alphatak "github.com/alphatak"
	"github.com/alphatak/game"
	"github.com/alphatak/mcts"
)

var (
	configAFlag  = flag.String("config_a", "", "JSON config of the first engine")
	configBFlag  = flag.String("config_b", "", "JSON config of the second engine")
	sizeFlag     = flag.Int("size", 5, "board size")
	gamesFlag    = flag.Int("games", 10, "number of games to play")
	parallelFlag = flag.Int("parallel", 1, "games played at once")
	nodesAFlag   = flag.Int("nodes_a", 2000, "node budget of the first engine")
	nodesBFlag   = flag.Int("nodes_b", 2000, "node budget of the second engine")
	moveTimeFlag = flag.Duration("movetime", 0, "time budget per move for both engines, overrides node budgets")
	openingsFlag = flag.String("openings", "", "file of openings, one line of space separated PTN moves each")
	outFlag      = flag.String("out", "", "write the games to this file, one line each")
)

func main() {
	flag.Parse()
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()

	a, err := agent("a", *configAFlag, *nodesAFlag)
	if err != nil {
		logger.Fatal().Err(err).Msg("first engine")
	}
	b, err := agent("b", *configBFlag, *nodesBFlag)
	if err != nil {
		logger.Fatal().Err(err).Msg("second engine")
	}

	arena := alphatak.MakeArena(a, b, game.Rules{Size: *sizeFlag}, &logger)
	arena.Parallel = *parallelFlag
	if *openingsFlag != "" {
		if arena.Openings, err = readOpenings(*openingsFlag); err != nil {
			logger.Fatal().Err(err).Msg("openings")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	records, err := arena.Play(ctx, *gamesFlag)
	if err != nil {
		logger.Error().Err(err).Msg("some games failed")
	}

	if *outFlag != "" {
		var buf strings.Builder
		for _, r := range records {
			if r.Err == nil {
				fmt.Fprintf(&buf, "%d\t%s\t%s\t%v\t%s\n", r.Index, r.White, r.Black, r.Result, r.PTN())
			}
		}
		if err := os.WriteFile(*outFlag, []byte(buf.String()), 0644); err != nil {
			logger.Fatal().Err(err).Msg("writing games")
		}
	}

	for _, ag := range []*alphatak.Agent{a, b} {
		wins, loss, draw := ag.Stats()
		fmt.Printf("%s: wins %v, loss %v, draw %v\n", ag.Name, wins, loss, draw)
	}
}

func agent(name, configFile string, nodes int) (*alphatak.Agent, error) {
	conf := alphatak.DefaultConfig()
	if configFile != "" {
		var err error
		if conf, err = alphatak.LoadConfigFile(configFile); err != nil {
			return nil, err
		}
	}
	budget := mcts.Nodes(nodes)
	if *moveTimeFlag > 0 {
		budget = mcts.MoveTime(*moveTimeFlag)
	}
	return alphatak.NewAgent(name, conf, budget)
}

func readOpenings(filename string) ([][]string, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var openings [][]string
	for _, line := range strings.Split(string(data), "\n") {
		if moves := strings.Fields(line); len(moves) > 0 {
			openings = append(openings, moves)
		}
	}
	return openings, nil
}
