package obs

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type ctxKey string

const RequestIDKey ctxKey = "req_id"

// NewLogger builds the process-wide logger. APP_ENV=dev switches to the
// human-readable console writer; anything else emits JSON lines.
func NewLogger(component string) zerolog.Logger {
	env := strings.ToLower(os.Getenv("APP_ENV"))
	if env == "dev" {
		writer := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(writer).With().Timestamp().Str("component", component).Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Str("component", component).Logger()
}

// Time records the duration and outcome of one operation when the returned
// func runs:
//
//	defer obs.Time(ctx, "route.optimize")(&err)
//
// The logger is taken from ctx; without one the record is dropped, which
// keeps tests quiet.
func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()
	logger := zerolog.Ctx(ctx)
	reqID, _ := ctx.Value(RequestIDKey).(string)

	return func(errp *error) {
		dur := time.Since(start)

		ev := logger.Info()
		if errp != nil && *errp != nil {
			ev = logger.Error().Err(*errp)
		}
		if reqID != "" {
			ev = ev.Str("req_id", reqID)
		}
		ev.Int64("dur_ms", dur.Milliseconds()).Msg(name)
	}
}
