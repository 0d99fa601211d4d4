package poller

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/google/uuid"
)

// recoverItem must be deferred directly. It stops a panic in one item's
// operation from crashing the cycle, logging the stack under a correlation ID.
// The deferring function's named results keep their zero values, which the
// callers treat as absent.
func recoverItem(logger *slog.Logger, what string, attrs ...any) {
	r := recover()
	if r == nil {
		return
	}

	correlationID := uuid.NewString()
	logger.Error(what+" panic", append(attrs,
		"correlation_id", correlationID,
		"panic", fmt.Sprintf("%v", r),
		"stack", string(debug.Stack()),
	)...)
}
