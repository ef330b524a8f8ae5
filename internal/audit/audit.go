// Package audit journals mutating operator actions. Recording is always
// best-effort; callers log failures and move on.
package audit

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

type Entry struct {
	ID         string    `json:"id"`
	ActorEmail string    `json:"actor_email"`
	ActorName  string    `json:"actor_name"`
	Action     string    `json:"action"`
	EntityKind string    `json:"entity_kind"`
	EntityID   string    `json:"entity_id"`
	Detail     string    `json:"detail"`
	CreatedAt  time.Time `json:"created_at"`
}

type Recorder interface {
	Record(ctx context.Context, entry Entry) error
	List(ctx context.Context, limit int) ([]Entry, error)
}

func newEntryID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("audit-%d", time.Now().UnixNano())
	}
	return fmt.Sprintf("audit-%d-%s", time.Now().UnixNano(), hex.EncodeToString(buf))
}

type Memory struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Record(_ context.Context, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry.ID == "" {
		entry.ID = newEntryID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *Memory) List(_ context.Context, limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit < 1 {
		limit = 100
	}

	out := make([]Entry, 0, limit)
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}
