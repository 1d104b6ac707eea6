package hostelbites

import (
	"context"

	"github.com/MrEthical07/hostelbites/api"
)

// WithRequestID pins the X-Correlation-Id of every backend request made with
// ctx, so one CLI command can be traced across several calls.
func WithRequestID(ctx context.Context, id string) context.Context {
	return api.WithCorrelationID(ctx, id)
}

// RequestID returns the id set by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	return api.CorrelationID(ctx)
}
