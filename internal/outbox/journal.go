package outbox

import (
	"context"
	"errors"
	"sync"
)

var ErrHeadMoved = errors.New("journal head no longer matches job")

// Journal is a durable FIFO of pending jobs plus a dead-letter list. Only
// the head of the pending list is ever acknowledged, retried or buried.
type Journal interface {
	// Append adds jobs to the tail in order, all or nothing.
	Append(ctx context.Context, jobs ...Job) error
	// Peek returns the head job, or nil when the journal is empty.
	Peek(ctx context.Context) (*Job, error)
	// Ack removes the head if it is job.
	Ack(ctx context.Context, job Job) error
	// Retry replaces the head with job, keeping its position.
	Retry(ctx context.Context, job Job) error
	// Bury moves the head to the dead-letter list.
	Bury(ctx context.Context, job Job) error
	Len(ctx context.Context) (int64, error)
	Dead(ctx context.Context, limit int64) ([]Job, error)
	// Requeue moves every dead job back to the pending tail with its
	// attempt counter reset.
	Requeue(ctx context.Context) (int, error)
}

type MemoryJournal struct {
	mu      sync.Mutex
	pending []Job
	dead    []Job
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{}
}

func (m *MemoryJournal) Append(_ context.Context, jobs ...Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, jobs...)
	return nil
}

func (m *MemoryJournal) Peek(_ context.Context) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.pending) == 0 {
		return nil, nil
	}
	j := m.pending[0]
	return &j, nil
}

func (m *MemoryJournal) headLocked(job Job) error {
	if len(m.pending) == 0 || m.pending[0].ID != job.ID {
		return ErrHeadMoved
	}
	return nil
}

func (m *MemoryJournal) Ack(_ context.Context, job Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.headLocked(job); err != nil {
		return err
	}
	m.pending = m.pending[1:]
	return nil
}

func (m *MemoryJournal) Retry(_ context.Context, job Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.headLocked(job); err != nil {
		return err
	}
	m.pending[0] = job
	return nil
}

func (m *MemoryJournal) Bury(_ context.Context, job Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.headLocked(job); err != nil {
		return err
	}
	m.pending = m.pending[1:]
	m.dead = append(m.dead, job)
	return nil
}

func (m *MemoryJournal) Len(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.pending)), nil
}

func (m *MemoryJournal) Dead(_ context.Context, limit int64) ([]Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.dead))
	if limit > 0 && limit < n {
		n = limit
	}
	return append([]Job(nil), m.dead[:n]...), nil
}

func (m *MemoryJournal) Requeue(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.dead)
	for _, j := range m.dead {
		j.Attempts = 0
		j.LastError = ""
		m.pending = append(m.pending, j)
	}
	m.dead = nil
	return n, nil
}
