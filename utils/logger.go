package utils

import (
	"os"

	"go.uber.org/zap"
)

var logger = zap.NewNop()

// InitLogger builds the process logger. GIN_MODE=release selects the
// production JSON config; anything else gets the development console config.
func InitLogger() (*zap.Logger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if os.Getenv("GIN_MODE") == "release" {
		l, err = zap.NewProduction()
	} else {
		l, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}
	SetLogger(l)
	return l, nil
}

// SetLogger replaces the process logger. Call it before serving requests.
func SetLogger(l *zap.Logger) {
	if l != nil {
		logger = l
	}
}

// Logger returns the process logger, a no-op logger until InitLogger runs.
func Logger() *zap.Logger {
	return logger
}
