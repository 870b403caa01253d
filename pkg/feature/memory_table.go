package feature

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"
)

// MemoryTable is an in-process Table.
type MemoryTable struct {
	mu      sync.RWMutex
	records map[RecordKey]Record
}

var _ Table = (*MemoryTable)(nil)

// NewMemoryTable returns an empty table.
func NewMemoryTable() *MemoryTable {
	return &MemoryTable{records: make(map[RecordKey]Record)}
}

func (t *MemoryTable) Find(_ context.Context, keys []RecordKey) ([]Record, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Record, 0, len(keys))
	seen := make(map[RecordKey]struct{}, len(keys))
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if r, ok := t.records[k]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (t *MemoryTable) Insert(_ context.Context, records []Record) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	batch := make(map[RecordKey]struct{}, len(records))
	for _, r := range records {
		k := r.Key()
		if _, ok := t.records[k]; ok {
			return fmt.Errorf("%w: %s for %s", ErrUniqueViolation, k.Name, k.Scope)
		}
		if _, ok := batch[k]; ok {
			return fmt.Errorf("%w: duplicate %s for %s in batch", ErrUniqueViolation, k.Name, k.Scope)
		}
		batch[k] = struct{}{}
	}
	for _, r := range records {
		t.records[r.Key()] = r
	}
	return nil
}

func (t *MemoryTable) Upsert(_ context.Context, record Record) error {
	t.mu.Lock()
	t.records[record.Key()] = record
	t.mu.Unlock()
	return nil
}

func (t *MemoryTable) Delete(_ context.Context, keys []RecordKey) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, k := range keys {
		delete(t.records, k)
	}
	return nil
}

func (t *MemoryTable) DeleteNames(_ context.Context, names []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	maps.DeleteFunc(t.records, func(k RecordKey, _ Record) bool {
		return slices.Contains(names, k.Name)
	})
	return nil
}

func (t *MemoryTable) DeleteAll(_ context.Context) error {
	t.mu.Lock()
	clear(t.records)
	t.mu.Unlock()
	return nil
}

func (t *MemoryTable) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var n int64
	maps.DeleteFunc(t.records, func(_ RecordKey, r Record) bool {
		if r.Expired(now) {
			n++
			return true
		}
		return false
	})
	return n, nil
}

func (t *MemoryTable) Names(_ context.Context, now time.Time) ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	set := make(map[string]struct{})
	for k, r := range t.records {
		if !r.Expired(now) {
			set[k.Name] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(set)), nil
}

// Len returns the number of records, expired ones included.
func (t *MemoryTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}
