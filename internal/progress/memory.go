package progress

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps the record in process memory.
type MemoryStore struct {
	mu sync.RWMutex
	p  Progress
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Reset(ctx context.Context, p Progress) error {
	s.mu.Lock()
	s.p = p
	s.mu.Unlock()
	return nil
}

// owned runs fn under the lock if jobID owns the record.
func (s *MemoryStore) owned(jobID string, fn func(p *Progress)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.p.JobID != jobID {
		return ErrSuperseded
	}
	fn(&s.p)
	return nil
}

func (s *MemoryStore) SetTotal(ctx context.Context, jobID string, total int) error {
	return s.owned(jobID, func(p *Progress) { p.Total = total })
}

func (s *MemoryStore) Add(ctx context.Context, jobID string, n int) error {
	return s.owned(jobID, func(p *Progress) { p.Completed += n })
}

func (s *MemoryStore) Finish(ctx context.Context, jobID, filename string, at time.Time) error {
	return s.owned(jobID, func(p *Progress) {
		p.Filename = filename
		p.Finished = true
		p.FinishedAt = &at
	})
}

func (s *MemoryStore) Fail(ctx context.Context, jobID, message string, at time.Time) error {
	return s.owned(jobID, func(p *Progress) {
		p.Error = message
		p.FinishedAt = &at
	})
}

func (s *MemoryStore) Get(ctx context.Context) (Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.p, nil
}
