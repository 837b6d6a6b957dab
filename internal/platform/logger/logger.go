package logger

import (
	"go.uber.org/zap"
)

// Logger wraps zap.Logger
type Logger struct {
	*zap.Logger
}

// New creates a new logger instance
func New(level, format string) (*Logger, error) {
	var cfg zap.Config

	if format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	// Set log level
	switch level {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	zapLogger, err := cfg.Build(
		zap.AddCallerSkip(1),
	)
	if err != nil {
		return nil, err
	}

	return &Logger{Logger: zapLogger}, nil
}

// WithRequestID adds request_id to the logger context
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{
		Logger: l.Logger.With(zap.String("request_id", requestID)),
	}
}

// WithChannel adds the originating channel to the logger context
func (l *Logger) WithChannel(channel string) *Logger {
	return &Logger{
		Logger: l.Logger.With(zap.String("channel", channel)),
	}
}

// WithJob adds job_name to the logger context
func (l *Logger) WithJob(jobName string) *Logger {
	return &Logger{
		Logger: l.Logger.With(zap.String("job_name", jobName)),
	}
}

// WithProvider adds the sync provider to the logger context
func (l *Logger) WithProvider(provider string) *Logger {
	return &Logger{
		Logger: l.Logger.With(zap.String("provider", provider)),
	}
}

// WithAgent adds agent_name to the logger context
func (l *Logger) WithAgent(agentName string) *Logger {
	return &Logger{
		Logger: l.Logger.With(zap.String("agent_name", agentName)),
	}
}
