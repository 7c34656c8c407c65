package logger

import (
	"fmt"

	"github.com/smallbiznis/debtledger/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the application logger. JSON in production, console encoding in
// any other environment, tagged with the service identity so aggregated logs
// from several deployments stay distinguishable.
func New(appCfg config.Config) (*zap.Logger, error) {
	var cfg zap.Config
	if appCfg.Environment == "production" {
		cfg = zap.NewProductionConfig()
		cfg.Encoding = "json"
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	level := appCfg.LogLevel
	if level == "" {
		level = "info"
	}
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	logger = logger.With(
		zap.String("service", appCfg.AppName),
		zap.String("version", appCfg.AppVersion),
	)

	zap.ReplaceGlobals(logger)
	return logger, nil
}
