package async

import (
	"context"
	"log/slog"
	"runtime/debug"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/hookwarden/pkg/utils/errs"
)

// Dispatch executes a handler function asynchronously with proper context and panic recovery
//
// Parameters:
//   - ctx: Original context (values will be preserved, but cancellation won't affect the async handler)
//   - logger: Destination of errors and recovered panics
//   - handler: Function to execute asynchronously
//
// Behavior:
//   - Creates a new background context with the preserved Sentry hub
//   - Executes handler in a new goroutine
//   - Recovers from panics and logs them
//   - Logs errors returned by handler
func Dispatch(ctx context.Context, logger *slog.Logger, handler func(ctx context.Context) error) {
	newCtx := newBackgroundContext(ctx)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				stack := debug.Stack()
				logger.Error("panic in async handler",
					"recover", r,
					"stack", string(stack))
				sentry.CurrentHub().Recover(r)
			}
		}()

		if err := handler(newCtx); err != nil {
			errs.Handle(newCtx, logger, "error in async handler", goerr.Wrap(err, "async handler failed"))
		}
	}()
}

// newBackgroundContext creates a new background context preserving important values
//
// Preserved values:
//   - Sentry hub (cloned so the async scope does not leak into the request)
//
// Returns: New context.Background() with preserved values
func newBackgroundContext(ctx context.Context) context.Context {
	newCtx := context.Background()
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		newCtx = sentry.SetHubOnContext(newCtx, hub.Clone())
	}
	return newCtx
}
