package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LoggerConfig struct {
	Debug bool
}

// NewLogger builds a JSON production logger, or a colored development logger at debug level
func NewLogger(cfg *LoggerConfig, options ...zap.Option) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg != nil && cfg.Debug {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapCfg = zap.NewProductionConfig()
		zapCfg.EncoderConfig.TimeKey = "timestamp"
		zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	return zapCfg.Build(options...)
}
