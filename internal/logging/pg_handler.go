package logging

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/nippogen/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const batchSize = 50

// PGHandler is an slog.Handler that batches ERROR+ logs to PostgreSQL.
type PGHandler struct {
	db     *gorm.DB
	mu     sync.Mutex
	buffer []models.SystemLog
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func NewPGHandler(db *gorm.DB) *PGHandler {
	h := &PGHandler{
		db:     db,
		buffer: make([]models.SystemLog, 0, batchSize),
		ticker: time.NewTicker(5 * time.Second),
		done:   make(chan struct{}),
	}
	go h.flushLoop()
	return h
}

func (h *PGHandler) flushLoop() {
	for {
		select {
		case <-h.ticker.C:
			h.flush()
		case <-h.done:
			h.flush()
			return
		}
	}
}

func (h *PGHandler) flush() {
	h.mu.Lock()
	if len(h.buffer) == 0 {
		h.mu.Unlock()
		return
	}
	batch := h.buffer
	h.buffer = make([]models.SystemLog, 0, batchSize)
	h.mu.Unlock()

	if err := h.db.CreateInBatches(batch, batchSize).Error; err != nil {
		slog.Error("failed to flush system logs to DB", "error", err, "count", len(batch))
	}
}

// Stop ends the background loop after a final flush. Calling it twice is a no-op.
func (h *PGHandler) Stop() {
	h.once.Do(func() {
		h.ticker.Stop()
		close(h.done)
	})
}

// Enabled only handles ERROR and above.
func (h *PGHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelError
}

func (h *PGHandler) Handle(_ context.Context, record slog.Record) error {
	h.push(newEntry(nil, record))
	return nil
}

func (h *PGHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &boundHandler{parent: h, attrs: attrs}
}

func (h *PGHandler) WithGroup(name string) slog.Handler {
	return h
}

func (h *PGHandler) push(entry models.SystemLog) {
	h.mu.Lock()
	h.buffer = append(h.buffer, entry)
	needFlush := len(h.buffer) >= batchSize
	h.mu.Unlock()

	if needFlush {
		go h.flush()
	}
}

// newEntry lifts the well-known keys into columns; everything else lands in Extra.
func newEntry(bound []slog.Attr, record slog.Record) models.SystemLog {
	entry := models.SystemLog{
		ID:        uuid.New(),
		Timestamp: record.Time,
		Level:     record.Level.String(),
		Message:   record.Message,
	}

	extra := make(map[string]interface{})
	lift := func(a slog.Attr) bool {
		switch a.Key {
		case "trace_id", "request_id":
			entry.TraceID = a.Value.String()
		case "user_id":
			s := a.Value.String()
			entry.UserID = &s
		case "report_id":
			s := a.Value.String()
			entry.ReportID = &s
		case "action":
			entry.Action = a.Value.String()
		case "provider":
			entry.Provider = a.Value.String()
		case "error":
			entry.Error = a.Value.String()
		case "latency_ms":
			entry.LatencyMs = latencyMillis(a.Value)
		default:
			extra[a.Key] = a.Value.Any()
		}
		return true
	}
	for _, a := range bound {
		lift(a)
	}
	record.Attrs(lift)

	if len(extra) > 0 {
		if b, err := json.Marshal(extra); err == nil {
			entry.Extra = datatypes.JSON(b)
		}
	}
	return entry
}

func latencyMillis(v slog.Value) int {
	switch v.Kind() {
	case slog.KindFloat64:
		return int(math.Round(v.Float64()))
	case slog.KindInt64:
		return int(v.Int64())
	case slog.KindDuration:
		return int(v.Duration().Milliseconds())
	}
	return 0
}

// boundHandler writes into the parent's buffer with attrs from WithAttrs applied.
type boundHandler struct {
	parent *PGHandler
	attrs  []slog.Attr
}

func (b *boundHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return b.parent.Enabled(ctx, level)
}

func (b *boundHandler) Handle(_ context.Context, record slog.Record) error {
	b.parent.push(newEntry(b.attrs, record))
	return nil
}

func (b *boundHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(b.attrs)+len(attrs))
	merged = append(merged, b.attrs...)
	return &boundHandler{parent: b.parent, attrs: append(merged, attrs...)}
}

func (b *boundHandler) WithGroup(name string) slog.Handler {
	return b
}
