package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	alphatak "github.com/alphatak"
	"github.com/alphatak/eval"
	"github.com/alphatak/game"
	"github.com/alphatak/mcts"
)

var (
	configFlag   = flag.String("config", "", "JSON engine config, defaults are used when empty")
	sizeFlag     = flag.Int("size", 0, "board size, 0 keeps the config value")
	tpsFlag      = flag.String("tps", "", "position to analyze in TPS")
	movesFlag    = flag.String("moves", "", "space separated PTN moves from the start position")
	nodesFlag    = flag.Int("nodes", 0, "node budget")
	moveTimeFlag = flag.Duration("movetime", 0, "time budget")
	threadsFlag  = flag.Int("threads", 0, "root parallel trees, 0 keeps the config value")
	topFlag      = flag.Int("top", 8, "number of root moves to list")
	dotFlag      = flag.String("dot", "", "write the top of the search tree to this DOT file")
	dotDepthFlag = flag.Int("dot_depth", 2, "plies written to the DOT file")
	verboseFlag  = flag.Bool("v", false, "debug logging")
)

func main() {
	flag.Parse()
	level := zerolog.InfoLevel
	if *verboseFlag {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).With().Timestamp().Logger()

	if err := run(&logger); err != nil {
		logger.Fatal().Err(err).Msg("analyze")
	}
}

func run(logger *zerolog.Logger) error {
	conf := alphatak.DefaultConfig()
	if *configFlag != "" {
		var err error
		if conf, err = alphatak.LoadConfigFile(*configFlag); err != nil {
			return err
		}
	}
	if r := conf.Rules; *sizeFlag != 0 && *sizeFlag != r.Size {
		conf.Rules = game.Rules{Size: *sizeFlag, NoCaps: r.NoCaps, Komi: r.Komi, MaxPlies: r.MaxPlies}.Normalize()
	}
	if *threadsFlag > 0 {
		conf.MCTSConf.Threads = *threadsFlag
	}
	conf.Logger = logger

	e, err := alphatak.New(conf)
	if err != nil {
		return err
	}
	switch {
	case *tpsFlag != "":
		err = e.SetTPS(*tpsFlag)
	case *movesFlag != "":
		err = e.SetPTN(strings.Fields(*movesFlag)...)
	}
	if err != nil {
		return err
	}
	pos := e.Position()
	fmt.Println(pos)
	fmt.Printf("static value %.3f (win probability %.3f)\n",
		e.Evaluator().Value(pos), eval.WinProbability(e.Evaluator().Value(pos)))

	budget := mcts.Budget{Nodes: *nodesFlag, MoveTime: *moveTimeFlag}
	if budget.Nodes == 0 && budget.MoveTime == 0 {
		budget.Infinite = true
		fmt.Println("searching until interrupted")
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	d, err := e.Go(ctx, budget)
	if err != nil {
		return err
	}
	fmt.Printf("bestmove %v value %.3f nodes %d visits %d time %v stop %v proven %v\n",
		d.Move, d.Value, d.Nodes, d.Visits, d.Elapsed.Round(time.Millisecond), d.Stop, d.Proven)
	fmt.Printf("pv %s\n", joinMoves(d.PV))

	dist, err := e.Distribution()
	if err != nil {
		return err
	}
	sort.Stable(mcts.ByVisits(dist))
	for i, v := range dist {
		if i >= *topFlag {
			break
		}
		fmt.Printf("%-10v visits %7d value %+.3f prior %.4f %v\n", v.Move, v.Visits, v.Value(), v.Prior, v.Status)
	}

	if *dotFlag != "" {
		dot, err := e.Dot(*dotDepthFlag)
		if err != nil {
			return err
		}
		if err := os.WriteFile(*dotFlag, []byte(dot), 0644); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

func joinMoves[T fmt.Stringer](moves []T) string {
	s := make([]string, len(moves))
	for i, m := range moves {
		s[i] = m.String()
	}
	return strings.Join(s, " ")
}
