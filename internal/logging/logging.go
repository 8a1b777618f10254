// Package logging defines the structured logging interface the profiler's
// core uses and a default implementation backed by zap.
//
// The interface uses key-value pairs via variadic arguments so any
// slog/zap/logrus adapter the operator already has can be dropped in
// without touching the model.
package logging

import "go.uber.org/zap"

// Logger is the structured logging interface consumed by the model and
// driver packages.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
}

// zapLogger adapts a zap.SugaredLogger to Logger.
type zapLogger struct {
	s *zap.SugaredLogger
}

// NewZap builds a Logger backed by zap. debug selects zap's development
// encoder config (human-readable, debug level enabled) over its production
// one (JSON, info level and above) — matching sp_gdb_ctrl's --debug flag,
// which lowers the Python logger's level from INFO to DEBUG.
func NewZap(debug bool) (Logger, error) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &zapLogger{s: l.Sugar()}, nil
}

func (l *zapLogger) Debug(msg string, kv ...any) { l.s.Debugw(msg, kv...) }
func (l *zapLogger) Info(msg string, kv ...any)  { l.s.Infow(msg, kv...) }
func (l *zapLogger) Warn(msg string, kv ...any)  { l.s.Warnw(msg, kv...) }
func (l *zapLogger) Error(msg string, kv ...any) { l.s.Errorw(msg, kv...) }

// Nop is a Logger that discards everything, useful in tests that don't care
// about log output.
type Nop struct{}

func (Nop) Debug(string, ...any) {}
func (Nop) Info(string, ...any)  {}
func (Nop) Warn(string, ...any)  {}
func (Nop) Error(string, ...any) {}
