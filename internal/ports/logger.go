package ports

import "context"

// Logger is the logging interface used across the analysis engine.
// Components receive it at construction so implementations can be swapped
// (standard log, zerolog, zap) without touching calculation code.
type Logger interface {
	// Debug logs a message at Debug level.
	Debug(ctx context.Context, msg string, fields ...map[string]interface{})
	// Info logs a message at Info level.
	Info(ctx context.Context, msg string, fields ...map[string]interface{})
	// Warn logs a message at Warning level.
	Warn(ctx context.Context, msg string, fields ...map[string]interface{})
	// Error logs an error with an accompanying message at Error level.
	Error(ctx context.Context, err error, msg string, fields ...map[string]interface{})
}
