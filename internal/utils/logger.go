package utils

import (
	"go.uber.org/zap"
)

// NewLogger builds the service logger: human-readable with debug level in
// development, JSON at info level otherwise. Every entry carries the service
// name.
func NewLogger(dev bool, service string) (*zap.SugaredLogger, error) {
	var z *zap.Logger
	var err error
	if dev {
		cfg := zap.NewDevelopmentConfig()
		z, err = cfg.Build()
	} else {
		cfg := zap.NewProductionConfig()
		cfg.DisableStacktrace = true
		z, err = cfg.Build()
	}
	if err != nil {
		return nil, err
	}
	return z.With(zap.String("service", service)).Sugar(), nil
}
