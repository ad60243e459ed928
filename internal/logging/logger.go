package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger. An empty level means info; encoding is
// "console" (default) or "json".
func New(level, encoding string) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Encoding = "console"
	if enc := strings.TrimSpace(encoding); enc != "" {
		if enc != "console" && enc != "json" {
			return nil, fmt.Errorf("unknown log encoding %q", encoding)
		}
		cfg.Encoding = enc
	}

	lvl := zapcore.InfoLevel
	if raw := strings.TrimSpace(level); raw != "" {
		if err := lvl.UnmarshalText([]byte(raw)); err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", level, err)
		}
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	if cfg.Encoding == "json" {
		cfg.Development = false
		cfg.EncoderConfig = zap.NewProductionEncoderConfig()
	}
	return cfg.Build()
}
