package logger

import (
	"context"
	"log/slog"

	"rwaledger/pkg/requestcontext"
)

// LogAudit writes one audit line for a committed ledger mutation.
func LogAudit(ctx context.Context, logger *slog.Logger, event string, attrs ...any) {
	if logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attrs = append(attrs, "request_id", requestID)
	}
	args := append(attrs, "event", event, "log_type", "audit")
	logger.InfoContext(ctx, event, args...)
}

// LogReadFailure records a failed read that the caller answers with a default
// value instead of an error.
func LogReadFailure(ctx context.Context, logger *slog.Logger, msg string, err error, attrs ...any) {
	if logger == nil {
		return
	}
	logger.WarnContext(ctx, msg, append(attrs, "error", err)...)
}
