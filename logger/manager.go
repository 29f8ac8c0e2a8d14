// Package logger provides module-scoped structured logging built on zap.
//
// Each module of the gate (limiter, redis, gate, ...) obtains its own logger
// through GetLogger(module); all loggers share one ManagerConfig and one set
// of sinks. File output rotates through lumberjack.
package logger

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Manager owns the zap cores and hands out per-module loggers.
type Manager struct {
	config  ManagerConfig
	loggers map[string]*CtxZapLogger
	writers []*lumberjack.Logger
	mu      sync.RWMutex
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// NewManager creates an independent manager. Zero-valued config fields are
// filled with defaults.
func NewManager(cfg ManagerConfig) *Manager {
	cfg.ApplyDefaults()
	return &Manager{
		config:  cfg,
		loggers: make(map[string]*CtxZapLogger),
	}
}

// InitManager initializes the process-wide manager. Only the first call wins;
// GetLogger falls back to defaults if it was never called.
func InitManager(cfg ManagerConfig) {
	managerOnce.Do(func() {
		globalManager = NewManager(cfg)
	})
}

// GetLogger returns the named module logger from the global manager,
// initializing the manager with defaults on first use.
func GetLogger(module string) *CtxZapLogger {
	InitManager(DefaultManagerConfig())
	return globalManager.GetLogger(module)
}

// GetLogger returns the logger for a module, creating it on first request.
func (m *Manager) GetLogger(module string) *CtxZapLogger {
	m.mu.RLock()
	if l, ok := m.loggers[module]; ok {
		m.mu.RUnlock()
		return l
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if l, ok := m.loggers[module]; ok {
		return l
	}

	base := m.buildZapLogger(module)
	l := &CtxZapLogger{base: base, module: module, config: &m.config}
	m.loggers[module] = l
	return l
}

// Close flushes and closes all file writers.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, l := range m.loggers {
		_ = l.base.Sync()
	}
	for _, w := range m.writers {
		_ = w.Close()
	}
	m.writers = nil
	return nil
}

func (m *Manager) buildZapLogger(module string) *zap.Logger {
	level, err := parseLevel(m.config.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if m.config.Encoding == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	var cores []zapcore.Core
	if m.config.EnableConsole {
		cores = append(cores, zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level))
	}
	if m.config.EnableFile {
		writer := &lumberjack.Logger{
			Filename:   filepath.Join(m.config.BaseLogDir, module+".log"),
			MaxSize:    m.config.MaxSize,
			MaxBackups: m.config.MaxBackups,
			MaxAge:     m.config.MaxAge,
			Compress:   m.config.Compress,
		}
		m.writers = append(m.writers, writer)
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(writer), level))
	}
	if len(cores) == 0 {
		cores = append(cores, zapcore.NewNopCore())
	}

	opts := []zap.Option{}
	if m.config.EnableCaller {
		// skip the CtxZapLogger wrapper frame
		opts = append(opts, zap.AddCaller(), zap.AddCallerSkip(1))
	}

	return zap.New(zapcore.NewTee(cores...), opts...).With(zap.String("module", module))
}
