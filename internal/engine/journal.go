package engine

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/talgya/harvest-boost/internal/feedback"
	"github.com/talgya/harvest-boost/internal/persistence"
)

// JournalStore is where flushed records go.
type JournalStore interface {
	AppendFeedback([]persistence.FeedbackRecord) error
	AppendGrowth([]persistence.GrowthRecord) error
}

// Journal buffers boost transitions and boosted growth in memory and
// writes them out in batches. Info refreshes are not journaled.
type Journal struct {
	store JournalStore
	tick  func() uint64

	mu       sync.Mutex
	feedback []persistence.FeedbackRecord
	growth   []persistence.GrowthRecord
}

// NewJournal creates a journal stamping records with the tick from tick.
func NewJournal(store JournalStore, tick func() uint64) *Journal {
	return &Journal{store: store, tick: tick}
}

// Handle implements feedback.Sink.
func (j *Journal) Handle(e feedback.Event) {
	if e.Kind == feedback.KindInfo || e.Kind == feedback.KindNone {
		return
	}
	b := e.Agent.Location.Block()
	rec := persistence.FeedbackRecord{
		Tick:      j.tick(),
		AgentID:   e.Agent.ID.String(),
		AgentName: e.Agent.Name,
		Kind:      e.Kind.String(),
		Count:     e.Count,
		Percent:   e.Percent,
		World:     e.Agent.Location.World,
		X:         b.X,
		Y:         b.Y,
		Z:         b.Z,
	}
	j.mu.Lock()
	j.feedback = append(j.feedback, rec)
	j.mu.Unlock()
}

// RecordGrowth buffers a boosted growth tick. The record's tick is filled in.
func (j *Journal) RecordGrowth(r persistence.GrowthRecord) {
	r.Tick = j.tick()
	j.mu.Lock()
	j.growth = append(j.growth, r)
	j.mu.Unlock()
}

// Pending returns the number of buffered records.
func (j *Journal) Pending() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.feedback) + len(j.growth)
}

// Flush writes buffered records. On failure the unwritten records are put
// back so the next flush retries them.
func (j *Journal) Flush() error {
	j.mu.Lock()
	fb, growth := j.feedback, j.growth
	j.feedback, j.growth = nil, nil
	j.mu.Unlock()

	if err := j.store.AppendFeedback(fb); err != nil {
		j.requeue(fb, growth)
		return fmt.Errorf("flush feedback: %w", err)
	}
	if err := j.store.AppendGrowth(growth); err != nil {
		j.requeue(nil, growth)
		return fmt.Errorf("flush growth: %w", err)
	}
	if n := len(fb) + len(growth); n > 0 {
		slog.Debug("journal flushed", "feedback", len(fb), "growth", len(growth))
	}
	return nil
}

func (j *Journal) requeue(fb []persistence.FeedbackRecord, growth []persistence.GrowthRecord) {
	j.mu.Lock()
	j.feedback = append(fb, j.feedback...)
	j.growth = append(growth, j.growth...)
	j.mu.Unlock()
}

// Register flushes the journal every n ticks.
func (j *Journal) Register(e *Engine, n uint64) {
	e.Every(n, "journal-flush", func(tick uint64) {
		if err := j.Flush(); err != nil {
			slog.Warn("journal flush failed", "tick", tick, "error", err)
		}
	})
}
