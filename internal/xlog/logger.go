// Package xlog provides structured logging for the loader using zap.
package xlog

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with loader-specific helpers.
type Logger struct {
	*zap.Logger
}

var (
	// L is the global logger instance.
	L    *Logger
	once sync.Once
)

// Init initializes the global logger with the given configuration.
// Safe to call multiple times; only the first call takes effect.
func Init(debug bool) {
	once.Do(func() {
		L = New(debug)
	})
}

// New creates a new Logger instance, tagged with a fresh run ID so that
// output from several invocations can be correlated after the fact.
func New(debug bool) *Logger {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		logger = zap.NewNop()
	}

	runID := uuid.NewString()
	logger = logger.With(zap.String("run", runID))

	return &Logger{Logger: logger}
}

// NewNop creates a no-op logger for testing.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// WithObject returns a logger with the object path field preset.
func (l *Logger) WithObject(path string) *Logger {
	return &Logger{Logger: l.Logger.With(zap.String("obj", path))}
}

// Phase logs a loader pipeline transition (Loading, TLSAllocated, ...).
func (l *Logger) Phase(name string) {
	l.Info("phase", zap.String("phase", name))
}

// Segment logs a segment being mapped.
func (l *Logger) Segment(path string, vaddr, size uint64, flags string) {
	l.Debug("map segment",
		zap.String("obj", path),
		zap.String("vaddr", Hex(vaddr)),
		zap.Uint64("size", size),
		zap.String("flags", flags),
	)
}

// Reloc logs an applied relocation.
func (l *Logger) Reloc(kind string, target uint64) {
	l.Debug("relocate",
		zap.String("type", kind),
		zap.String("target", Hex(target)),
	)
}

// RelocFailure logs a relocation that could not be applied, with a
// human-readable (demangled where possible) symbol name.
func (l *Logger) RelocFailure(kind, symbol string, err error) {
	l.Warn("relocation failed",
		zap.String("type", kind),
		zap.String("symbol", symbol),
		zap.Error(err),
	)
}

// Hex formats a uint64 as a hex string for logging.
func Hex(addr uint64) string {
	return "0x" + hexString(addr)
}

func hexString(v uint64) string {
	const digits = "0123456789abcdef"
	if v == 0 {
		return "0"
	}
	buf := make([]byte, 16)
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = digits[v&0xf]
		v >>= 4
	}
	return string(buf[i:])
}

// Addr creates an address field.
func Addr(name string, addr uint64) zap.Field {
	return zap.String(name, Hex(addr))
}
