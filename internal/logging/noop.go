package logging

import "github.com/rs/zerolog"

// NewNoopLogger creates a logger that discards all messages
func NewNoopLogger() Logger {
	// Use zerolog's built-in no-op logger
	return &logger{zl: zerolog.Nop()}
}
