package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger: JSON in production, console in development.
func New(development bool, level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("logger: bad level %q: %w", level, err)
	}

	zapConfig := zap.NewProductionConfig()
	if development {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.Level.SetLevel(lvl)

	log, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return log, nil
}
