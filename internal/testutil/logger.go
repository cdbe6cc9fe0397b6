package testutil

import "log/slog"

// DiscardLogger returns a slog.Logger that drops all output, for quiet
// tests. log.Logger aliases *slog.Logger, so this satisfies both.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
