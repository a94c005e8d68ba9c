package reporting

import (
	"context"
	"errors"
	"log/slog"
)

// Status flags a report that was rendered without (some of) its data.
type Status struct {
	Degraded bool     `json:"degraded"`
	Warnings []string `json:"warnings,omitempty"`
}

// Degrade logs err and records a user facing warning for the failed part.
// Cancellation is not a data failure and is only logged at debug level.
func (s *Status) Degrade(ctx context.Context, logger *slog.Logger, part string, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	if errors.Is(err, context.Canceled) {
		logger.DebugContext(ctx, "report load cancelled", slog.String("part", part))
	} else {
		logger.ErrorContext(ctx, "report load failed", slog.String("part", part), slog.Any("error", err))
	}
	s.Degraded = true
	s.Warnings = append(s.Warnings, part+" is temporarily unavailable")
}
