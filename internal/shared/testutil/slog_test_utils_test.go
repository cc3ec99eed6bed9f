package testutil

import (
	"log/slog"
	"testing"
)

func TestBufferedSlogHandler(t *testing.T) {
	t.Run("captures log records", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("ticket fetched", slog.String("ticket_id", "T-1"))
		logger.Error("backend failed", slog.Int("status", 502))

		if handler.Count() != 2 {
			t.Errorf("Expected 2 records, got %d", handler.Count())
		}
		if !handler.ContainsMessage("ticket fetched") {
			t.Error("Expected to find 'ticket fetched'")
		}
		if !handler.ContainsAttr("ticket_id", "T-1") {
			t.Error("Expected to find attribute ticket_id=T-1")
		}
		if !handler.ContainsAttr("status", int64(502)) {
			t.Error("Expected to find attribute status=502")
		}
	})

	t.Run("keeps attributes bound with With", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.With(slog.String("component", "gate")).Warn("oracle failed")

		if !handler.ContainsAttr("component", "gate") {
			t.Error("Expected bound attribute component=gate")
		}
	})

	t.Run("flattens groups", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("payload", slog.Group("payload", slog.String("email", "a@b.co")))

		if !handler.ContainsAttr("payload.email", "a@b.co") {
			t.Error("Expected grouped attribute payload.email")
		}
		if !handler.ContainsText("a@b.co") {
			t.Error("Expected ContainsText to search attribute values")
		}
	})

	t.Run("filters by level", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Debug("debug msg")
		logger.Info("info msg")
		logger.Warn("warn msg")
		logger.Error("error msg")

		if n := len(handler.GetRecordsByLevel(slog.LevelWarn)); n != 1 {
			t.Errorf("Expected 1 warn record, got %d", n)
		}
		AssertLogContains(t, handler, slog.LevelError, "error msg")
	})

	t.Run("clear functionality", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("message 1")
		handler.Clear()

		if handler.Count() != 0 {
			t.Errorf("Expected 0 records after clear, got %d", handler.Count())
		}
		AssertNoErrors(t, handler)
	})
}
