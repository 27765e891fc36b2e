package mcts

import "github.com/rs/zerolog"

// lumberjack is the tree's logger. Per search summaries go out at debug level, per iteration
// detail at trace level.
type lumberjack struct {
	logger zerolog.Logger
}

func makeLumberJack(l *zerolog.Logger) lumberjack {
	if l == nil {
		return lumberjack{logger: zerolog.Nop()}
	}
	return lumberjack{logger: l.With().Str("component", "mcts").Logger()}
}

func (l *lumberjack) log(format string, attrs ...interface{}) {
	l.logger.Debug().Msgf(format, attrs...)
}

// tracing is true when trace events would be written.
func (l *lumberjack) tracing() bool {
	return l.logger.GetLevel() <= zerolog.TraceLevel && zerolog.GlobalLevel() <= zerolog.TraceLevel
}
