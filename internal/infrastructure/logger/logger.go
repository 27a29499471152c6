package logger

import (
	"fmt"

	"github.com/doloop/core/internal/infrastructure/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logger shared by every doloop component.
type Logger struct {
	*zap.SugaredLogger
}

// New builds a logger from cfg. "json" selects the production encoder,
// anything else the development console encoder.
func New(cfg config.LoggerConfig) (*Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	zc := baseConfig(cfg.Format)
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths, zc.ErrorOutputPaths = sinks(cfg)

	zl, err := zc.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return FromZap(zl), nil
}

func baseConfig(format string) zap.Config {
	zc := zap.NewDevelopmentConfig()
	if format == "json" {
		zc = zap.NewProductionConfig()
	}
	zc.EncoderConfig.TimeKey = "ts"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zc
}

// sinks returns the output and error paths for cfg.Output.
func sinks(cfg config.LoggerConfig) ([]string, []string) {
	switch cfg.Output {
	case "file":
		if cfg.Filename != "" {
			return []string{cfg.Filename}, []string{cfg.Filename}
		}
	case "stderr":
		return []string{"stderr"}, []string{"stderr"}
	}
	return []string{"stdout"}, []string{"stderr"}
}

// FromZap wraps an existing zap logger, mostly for tests using zaptest.
func FromZap(l *zap.Logger) *Logger {
	return &Logger{SugaredLogger: l.Sugar()}
}

// NewNop returns a logger that discards everything
func NewNop() *Logger {
	return FromZap(zap.NewNop())
}

// WithFields returns a child logger carrying the given key/value pairs.
func (l *Logger) WithFields(keysAndValues ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(keysAndValues...)}
}

func (l *Logger) WithError(err error) *Logger {
	return l.WithFields("error", err.Error())
}

func (l *Logger) WithRequestID(requestID string) *Logger {
	return l.WithFields("request_id", requestID)
}

func (l *Logger) WithUserID(userID string) *Logger {
	return l.WithFields("user_id", userID)
}

// WithComponent tags entries with the subsystem that wrote them.
func (l *Logger) WithComponent(component string) *Logger {
	return l.WithFields("component", component)
}

// LogHTTPRequest records one served request
func (l *Logger) LogHTTPRequest(method, path, userAgent, ip string, statusCode int, durationMS float64) {
	l.Infow("HTTP request",
		"method", method,
		"path", path,
		"status_code", statusCode,
		"duration_ms", durationMS,
		"user_agent", userAgent,
		"ip", ip,
	)
}

// LogSecurityEvent records authentication anomalies at warn level.
func (l *Logger) LogSecurityEvent(event, userID, ip string, details map[string]interface{}) {
	fields := make([]interface{}, 0, 6+2*len(details))
	fields = append(fields, "security_event", event, "user_id", userID, "ip", ip)
	for k, v := range details {
		fields = append(fields, k, v)
	}
	l.Warnw("Security event", fields...)
}

// Close flushes any buffered log entries
func (l *Logger) Close() error {
	return l.SugaredLogger.Sync()
}
