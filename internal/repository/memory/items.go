package memory

import (
	"context"
	"sync"

	"debtster_routes/internal/ports"
)

// ItemLog keeps import outcomes in memory.
type ItemLog struct {
	mu       sync.Mutex
	items    []ports.ItemOutcome
	statuses map[string]string
}

func NewItemLog() *ItemLog {
	return &ItemLog{statuses: map[string]string{}}
}

var _ ports.ItemLogger = (*ItemLog)(nil)

func (l *ItemLog) LogItem(_ context.Context, o ports.ItemOutcome) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, o)
}

func (l *ItemLog) MarkDone(_ context.Context, importRecordID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.statuses[importRecordID] = "done"
	return nil
}

func (l *ItemLog) MarkFailed(_ context.Context, importRecordID, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.statuses[importRecordID] = "failed: " + reason
	return nil
}

func (l *ItemLog) Items() []ports.ItemOutcome {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ports.ItemOutcome(nil), l.items...)
}

// ByStatus returns the logged outcomes with the given status.
func (l *ItemLog) ByStatus(status string) []ports.ItemOutcome {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []ports.ItemOutcome
	for _, it := range l.items {
		if it.Status == status {
			out = append(out, it)
		}
	}
	return out
}

func (l *ItemLog) Status(importRecordID string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.statuses[importRecordID]
}
