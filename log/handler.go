package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// SimpleHandler writes logs in the format: <timestamp> <level> <message>.
type SimpleHandler struct {
	*slog.TextHandler
	mu *sync.Mutex
	w  io.Writer
}

// NewSimpleHandler creates a new SimpleHandler that writes to the provided io.Writer.
func NewSimpleHandler(w io.Writer, level slog.Level) slog.Handler {
	return &SimpleHandler{
		TextHandler: slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}),
		mu:          &sync.Mutex{},
		w:           w,
	}
}

// Handle implements the slog.Handler interface.
func (h *SimpleHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := fmt.Fprintf(h.w, "%s %s %s\n", r.Time.Format("15:04:05"), levelName(r.Level), r.Message)
	return err
}

func levelName(l slog.Level) string {
	if l == NoticeLevel {
		return "NOTICE"
	}
	return l.String()
}
