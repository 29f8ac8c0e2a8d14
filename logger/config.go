package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"
)

// ManagerConfig is the logging configuration shared by every module logger.
type ManagerConfig struct {
	// Level is the minimum level emitted (debug, info, warn, error).
	Level string `mapstructure:"level"`

	// AppName is injected into every log line (may be empty).
	AppName string `mapstructure:"app_name"`

	// Encoding selects the output format: json or console.
	Encoding string `mapstructure:"encoding"`

	// EnableConsole writes to stdout in addition to any file sink.
	EnableConsole bool `mapstructure:"enable_console"`

	// EnableFile writes rotated log files under BaseLogDir.
	EnableFile bool `mapstructure:"enable_file"`

	// BaseLogDir is the root directory for file sinks (default logs/).
	BaseLogDir string `mapstructure:"base_log_dir"`

	// Rotation settings (lumberjack).
	MaxSize    int  `mapstructure:"max_size"`    // MB per file
	MaxBackups int  `mapstructure:"max_backups"` // old files kept
	MaxAge     int  `mapstructure:"max_age"`     // days kept
	Compress   bool `mapstructure:"compress"`

	// EnableCaller annotates entries with file:line of the call site.
	EnableCaller bool `mapstructure:"enable_caller"`
}

// DefaultManagerConfig returns the configuration used when none is supplied.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Level:         "info",
		Encoding:      "json",
		EnableConsole: true,
		EnableFile:    false,
		BaseLogDir:    "logs",
		MaxSize:       100,
		MaxBackups:    3,
		MaxAge:        28,
		Compress:      true,
		EnableCaller:  true,
	}
}

// ApplyDefaults fills zero-valued fields in place.
func (c *ManagerConfig) ApplyDefaults() {
	def := DefaultManagerConfig()
	if c.Level == "" {
		c.Level = def.Level
	}
	if c.Encoding == "" {
		c.Encoding = def.Encoding
	}
	if c.BaseLogDir == "" {
		c.BaseLogDir = def.BaseLogDir
	}
	if c.MaxSize <= 0 {
		c.MaxSize = def.MaxSize
	}
	if c.MaxBackups <= 0 {
		c.MaxBackups = def.MaxBackups
	}
	if c.MaxAge <= 0 {
		c.MaxAge = def.MaxAge
	}
}

// Validate rejects configurations the zap core cannot honor.
func (c *ManagerConfig) Validate() error {
	if _, err := parseLevel(c.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Encoding) {
	case "json", "console":
	default:
		return fmt.Errorf("invalid logger encoding: %s (must be json or console)", c.Encoding)
	}
	return nil
}

func parseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("invalid logger level: %s", level)
	}
}
