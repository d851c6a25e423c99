package logger

import (
	"context"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fastygo/productsync/domain"
)

type ctxKey string

const requestIDKey ctxKey = "request_id"

// Config mirrors config.LoggerConfig but avoids importing the config package here.
type Config struct {
	Level    string
	Encoding string
}

// New builds a zap.Logger using the provided configuration.
func New(cfg Config) (*zap.Logger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	level := zapcore.InfoLevel
	if err := level.Set(cfg.Level); err != nil {
		level = zapcore.InfoLevel
	}

	var encoder zapcore.Encoder
	switch cfg.Encoding {
	case "console":
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	default:
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	core := zapcore.NewCore(
		encoder,
		zapcore.AddSync(zapcore.Lock(os.Stdout)),
		level,
	)

	return zap.New(core, zap.AddCaller()), nil
}

// ContextWithRequestID attaches a request ID to the provided context.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestID returns the request ID stored in ctx, if any.
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	reqID, _ := ctx.Value(requestIDKey).(string)
	return reqID
}

// WithRequestID enriches the logger with the request ID stored in the context.
func WithRequestID(ctx context.Context, base *zap.Logger) *zap.Logger {
	if base == nil {
		return base
	}
	if reqID := RequestID(ctx); reqID != "" {
		return base.With(zap.String("request_id", reqID))
	}
	return base
}

// EventFields describes a change event for log lines. The new description is
// left out; it can be long and carries customer text.
func EventFields(event domain.ProductChangeEvent) []zap.Field {
	fields := []zap.Field{
		zap.String("product_id", string(event.ObjectID)),
		zap.String("property", event.PropertyName),
		zap.Int("description_length", len(event.PropertyValue)),
	}
	if event.EventID != 0 {
		fields = append(fields, zap.Int64("event_id", event.EventID), zap.Int64("portal_id", event.PortalID))
	}
	if event.AttemptNumber > 0 {
		fields = append(fields, zap.Int("attempt", event.AttemptNumber))
	}
	if event.ChangeSource != "" {
		fields = append(fields, zap.String("change_source", event.ChangeSource))
	}
	if at := event.OccurredAt(); !at.IsZero() {
		fields = append(fields, zap.Time("occurred_at", at))
	}
	return fields
}
