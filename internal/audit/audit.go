// Package audit records successful mutations in the activity log without
// delaying the request that caused them.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/erazemk/assetdesk/internal/store"
)

// Entry is one activity log record.
type Entry struct {
	Action    string
	UserID    *int64
	RequestID string
	Method    string
	Path      string
	Body      any
	Result    any
}

type details struct {
	RequestID string `json:"request_id,omitempty"`
	Method    string `json:"method"`
	Path      string `json:"path"`
	Body      any    `json:"body,omitempty"`
	Result    any    `json:"result,omitempty"`
}

const defaultQueueSize = 256

// Logger writes entries from a bounded queue. Records are best effort: they
// are dropped when the queue is full and insert failures are only logged.
type Logger struct {
	db    *sql.DB
	queue chan Entry
}

// New returns a logger writing to db. Call Run to start draining.
func New(db *sql.DB, queueSize int) *Logger {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Logger{db: db, queue: make(chan Entry, queueSize)}
}

// Record queues an entry. It never blocks.
func (l *Logger) Record(e Entry) {
	select {
	case l.queue <- e:
	default:
		slog.Warn("audit queue full, dropping entry", "action", e.Action, "request_id", e.RequestID)
	}
}

// Run writes queued entries until ctx is done. Entries still queued at that
// point are written before returning.
func (l *Logger) Run(ctx context.Context) {
	for {
		select {
		case e := <-l.queue:
			l.write(e)
		case <-ctx.Done():
			for {
				select {
				case e := <-l.queue:
					l.write(e)
				default:
					return
				}
			}
		}
	}
}

func (l *Logger) write(e Entry) {
	blob, err := json.Marshal(details{
		RequestID: e.RequestID,
		Method:    e.Method,
		Path:      e.Path,
		Body:      Redact(e.Body),
		Result:    e.Result,
	})
	if err != nil {
		slog.Error("encoding audit entry", "action", e.Action, "error", err)
		return
	}

	// The request that produced the entry may already be finished.
	if err := store.InsertActivity(context.Background(), l.db, e.Action, e.UserID, e.RequestID, blob); err != nil {
		slog.Error("writing audit entry", "action", e.Action, "error", err)
	}
}

// Redact replaces password values in decoded JSON with a placeholder.
func Redact(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if strings.Contains(strings.ToLower(k), "password") {
				out[k] = "[redacted]"
				continue
			}
			out[k] = Redact(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Redact(val)
		}
		return out
	default:
		return v
	}
}
