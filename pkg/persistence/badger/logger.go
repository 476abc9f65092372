package badger

import (
	"strings"

	badgerdb "github.com/dgraph-io/badger/v3"
	"go.uber.org/zap"
)

// zapBadgerLogger routes badger's printf-style logging into zap.
// Badger terminates most lines with a newline, which is trimmed.
type zapBadgerLogger struct {
	sugar *zap.SugaredLogger
}

var _ badgerdb.Logger = (*zapBadgerLogger)(nil)

func newZapBadgerLogger(logger *zap.Logger) *zapBadgerLogger {
	return &zapBadgerLogger{sugar: logger.Named("badger").Sugar()}
}

func (l *zapBadgerLogger) Errorf(format string, args ...interface{}) {
	l.sugar.Errorf(strings.TrimSuffix(format, "\n"), args...)
}

func (l *zapBadgerLogger) Warningf(format string, args ...interface{}) {
	l.sugar.Warnf(strings.TrimSuffix(format, "\n"), args...)
}

func (l *zapBadgerLogger) Infof(format string, args ...interface{}) {
	l.sugar.Debugf(strings.TrimSuffix(format, "\n"), args...)
}

func (l *zapBadgerLogger) Debugf(format string, args ...interface{}) {
	l.sugar.Debugf(strings.TrimSuffix(format, "\n"), args...)
}
