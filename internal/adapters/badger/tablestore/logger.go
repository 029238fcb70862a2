package tablestore

import (
	"fmt"
	"log/slog"
	"strings"
)

// badgerLogger adapts slog to badger's printf-style Logger.
type badgerLogger struct {
	logger *slog.Logger
}

func newBadgerLogger(l *slog.Logger) *badgerLogger {
	if l == nil {
		l = slog.Default()
	}
	return &badgerLogger{logger: l.With("component", "badger")}
}

func (b *badgerLogger) Errorf(format string, args ...any) {
	b.logger.Error(msg(format, args))
}

func (b *badgerLogger) Warningf(format string, args ...any) {
	b.logger.Warn(msg(format, args))
}

func (b *badgerLogger) Infof(format string, args ...any) {
	b.logger.Info(msg(format, args))
}

func (b *badgerLogger) Debugf(format string, args ...any) {
	b.logger.Debug(msg(format, args))
}

func msg(format string, args []any) string {
	return strings.TrimSpace(fmt.Sprintf(format, args...))
}
