package errs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
)

// Handle logs err with its goerr values and reports it to Sentry. Reporting
// is a no-op when Sentry has not been initialized.
func Handle(ctx context.Context, logger *slog.Logger, msg string, err error) {
	if err == nil {
		return
	}

	attrs := append([]any{slog.Any("error", err)}, Attrs(err)...)
	logger.ErrorContext(ctx, msg, attrs...)

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.CaptureException(err)
}

// Attrs converts goerr values attached to err into slog attributes
func Attrs(err error) []any {
	var ge *goerr.Error
	if !errors.As(err, &ge) {
		return nil
	}
	var attrs []any
	for k, v := range ge.Values() {
		attrs = append(attrs, slog.Any(k, v))
	}
	return attrs
}
