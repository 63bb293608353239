package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore implements ResultStore for testing and for runs that should
// not touch disk.
type InMemoryStore struct {
	mu          sync.RWMutex
	runs        []RunRecord
	comparisons []ComparisonRecord
	now         func() time.Time
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{now: time.Now}
}

// SaveRun implements ResultStore.
func (s *InMemoryStore) SaveRun(ctx context.Context, run RunRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run.ComparisonID = ""
	prepareRun(&run, s.now)
	if s.hasRun(run.ID) {
		return "", fmt.Errorf("run %s already exists", run.ID)
	}
	s.runs = append(s.runs, run)
	return run.ID, nil
}

// SaveComparison implements ResultStore.
func (s *InMemoryStore) SaveComparison(ctx context.Context, c ComparisonRecord, runs []RunRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prepareComparison(&c, s.now)
	for _, existing := range s.comparisons {
		if existing.ID == c.ID {
			return "", fmt.Errorf("comparison %s already exists", c.ID)
		}
	}

	c.Summaries = append([]SummaryRecord(nil), c.Summaries...)
	s.comparisons = append(s.comparisons, c)
	for _, run := range runs {
		run.ComparisonID = c.ID
		run.ID = ""
		run.CreatedAt = c.CreatedAt
		prepareRun(&run, s.now)
		s.runs = append(s.runs, run)
	}
	return c.ID, nil
}

// GetComparison implements ResultStore.
func (s *InMemoryStore) GetComparison(ctx context.Context, id string) (*ComparisonRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.comparisons {
		if c.ID == id {
			c.Summaries = append([]SummaryRecord(nil), c.Summaries...)
			return &c, nil
		}
	}
	return nil, fmt.Errorf("comparison %s: %w", id, ErrNotFound)
}

// ListComparisons implements ResultStore.
func (s *InMemoryStore) ListComparisons(ctx context.Context, limit int) ([]ComparisonRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []ComparisonRecord
	for i := len(s.comparisons) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		c := s.comparisons[i]
		c.Summaries = append([]SummaryRecord(nil), c.Summaries...)
		out = append(out, c)
	}
	return out, nil
}

// ListRuns implements ResultStore.
func (s *InMemoryStore) ListRuns(ctx context.Context, filter RunFilter) ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []RunRecord
	for i := len(s.runs) - 1; i >= 0; i-- {
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
		r := s.runs[i]
		if r.ComparisonID != filter.ComparisonID {
			continue
		}
		if filter.Policy != "" && r.Policy != filter.Policy {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// Close is a no-op.
func (s *InMemoryStore) Close() error {
	return nil
}

func (s *InMemoryStore) hasRun(id string) bool {
	for _, r := range s.runs {
		if r.ID == id {
			return true
		}
	}
	return false
}

func prepareRun(r *RunRecord, now func() time.Time) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now().UTC()
	}
}

func prepareComparison(c *ComparisonRecord, now func() time.Time) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now().UTC()
	}
}
