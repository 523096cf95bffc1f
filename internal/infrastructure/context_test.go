package infrastructure

import (
	"context"
	"log/slog"
	"testing"

	"tarifa/internal/shared/testutil"
)

func TestInfoContext_CapturesMessageAndAttrs(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	ctx := EnsureTraceID(context.Background())
	LoggerWithContext(ctx) // exercises the trace_id lookup path; the record below goes through the test logger, not the global one

	logger.InfoContext(ctx, "loaded panel", "symbols", 25, "rows", 1200)

	testutil.AssertLogContains(t, handler, slog.LevelInfo, "loaded panel")
	testutil.AssertLogAttr(t, handler, "symbols", 25)
	testutil.AssertNoErrors(t, handler)
}

func TestWithError_AttachesErrorMessage(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)

	err := context.DeadlineExceeded
	WithError(logger, err).Error("fetch failed")

	testutil.AssertLogContains(t, handler, slog.LevelError, "fetch failed")
	if handler.Count() != 1 {
		t.Fatalf("expected 1 record, got %d", handler.Count())
	}
}
