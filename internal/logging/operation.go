package logging

import (
	"context"
	"time"
)

// LogOperation logs the completion or failure of fn with its duration.
func LogOperation(ctx context.Context, logger Logger, operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	if err != nil {
		logger.ErrorContext(ctx, "Operation failed",
			"operation", operation,
			"duration_ms", elapsed.Milliseconds(),
			"error", err.Error(),
		)
		return err
	}

	logger.DebugContext(ctx, "Operation completed",
		"operation", operation,
		"duration_ms", elapsed.Milliseconds(),
	)
	return nil
}
