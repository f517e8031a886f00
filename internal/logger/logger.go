package logger

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger. Production environments get JSON lines with an
// RFC3339Nano "ts" in loc; anything else gets the zap development console logger.
func New(env string, loc *time.Location) (*zap.Logger, error) {
	if loc == nil {
		loc = time.UTC
	}

	var cfg zap.Config
	if env == "production" {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.MessageKey = "msg"
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.EncoderConfig.EncodeTime = TimeEncoder(loc)

	return cfg.Build()
}

// TimeEncoder formats entry times as RFC3339Nano in loc.
func TimeEncoder(loc *time.Location) zapcore.TimeEncoder {
	return func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.In(loc).Format(time.RFC3339Nano))
	}
}
