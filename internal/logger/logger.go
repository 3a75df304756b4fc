package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Sugared adapts a zap SugaredLogger to the printf style Logger interfaces
// used by the library packages.
type Sugared struct {
	s *zap.SugaredLogger
}

func (l Sugared) Debug(format string, args ...any) { l.s.Debugf(format, args...) }
func (l Sugared) Info(format string, args ...any)  { l.s.Infof(format, args...) }
func (l Sugared) Warn(format string, args ...any)  { l.s.Warnf(format, args...) }
func (l Sugared) Error(format string, args ...any) { l.s.Errorf(format, args...) }

// Named returns a child logger
func (l Sugared) Named(name string) Sugared {
	return Sugared{s: l.s.Named(name)}
}

// Sync flushes buffered entries
func (l Sugared) Sync() error {
	return l.s.Sync()
}

// Wrap adapts an existing zap logger
func Wrap(z *zap.Logger) Sugared {
	return Sugared{s: z.Sugar()}
}

// New builds a zap logger for the given level and encoding (json|console).
func New(level, encoding string) (Sugared, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	if encoding == "console" {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	z, err := cfg.Build()
	if err != nil {
		return Sugared{}, err
	}
	return Wrap(z), nil
}
