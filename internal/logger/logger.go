// README: Global zap logger, env-switched between dev and prod encoders.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Initialized eagerly so callers that log before Init (tests, tooling) get a
// production logger instead of racing on a lazy nil check.
var log = zap.Must(zap.NewProduction())

// Init builds the global logger. Production gets structured JSON, anything
// else gets the human-readable development encoder.
func Init(env, levelStr string) {
	var cfg zap.Config
	if env == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		level = zapcore.InfoLevel
	}
	cfg.Level.SetLevel(level)

	var err error
	log, err = cfg.Build()
	if err != nil {
		panic("logger init: " + err.Error())
	}
}

// L returns the global logger.
func L() *zap.Logger {
	return log
}
