package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/timmy/quill/internal/domain"
	"github.com/timmy/quill/internal/repository"
)

// memStore is an in-memory repository.Store with the same transition
// guards as the gorm implementation.
type memStore struct {
	mu       sync.Mutex
	articles map[string]domain.Article
	usage    []domain.UsageRecord

	completeErr error
	scoped      int

	// when set, Complete signals completeEntered and waits for completeGate
	completeEntered chan struct{}
	completeGate    chan struct{}
}

var _ repository.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{articles: make(map[string]domain.Article)}
}

func (m *memStore) Create(_ context.Context, a *domain.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.Status = domain.JobStatusPending
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	m.articles[a.ID] = *a
	return nil
}

func (m *memStore) Get(_ context.Context, id string) (*domain.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.articles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (m *memStore) List(ctx context.Context, offset, limit int) ([]domain.Article, error) {
	return m.ListByStatus(ctx, "", offset, limit)
}

func (m *memStore) ListByStatus(_ context.Context, status domain.JobStatus, offset, limit int) ([]domain.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Article
	for _, a := range m.articles {
		if status == "" || a.Status == status {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) transition(id string, to domain.JobStatus, allowed []domain.JobStatus) (domain.Article, error) {
	a, ok := m.articles[id]
	if !ok {
		return a, repository.ErrNotFound
	}
	for _, s := range allowed {
		if a.Status == s {
			return a, nil
		}
	}
	return a, fmt.Errorf("%w: %s -> %s", repository.ErrInvalidTransition, a.Status, to)
}

func (m *memStore) UpdateStatus(_ context.Context, id string, status domain.JobStatus, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if status == domain.JobStatusCompleted {
		return repository.ErrInvalidTransition
	}
	a, err := m.transition(id, status, domain.Predecessors(status))
	if err != nil {
		return err
	}
	if status != domain.JobStatusFailed {
		errMsg = ""
	}
	a.Status = status
	a.ErrorMessage = errMsg
	a.UpdatedAt = time.Now()
	m.articles[id] = a
	return nil
}

func (m *memStore) UpdateResult(_ context.Context, id string, from domain.JobStatus, r *domain.ArticleResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateResult(id, from, r)
}

func (m *memStore) updateResult(id string, from domain.JobStatus, r *domain.ArticleResult) error {
	a, err := m.transition(id, domain.JobStatusCompleted, []domain.JobStatus{from})
	if err != nil {
		return err
	}
	score := r.Score
	now := time.Now()
	a.Status = domain.JobStatusCompleted
	a.ErrorMessage = ""
	a.Keywords = r.Keywords
	a.Questions = r.Questions
	a.Outline = r.Outline
	a.Content = r.Content
	a.Score = &score
	a.Recommendations = r.Recommendations
	a.Provider = r.Provider
	a.ServedModel = r.ServedModel
	a.Substituted = r.Substituted
	a.CompletedAt = &now
	a.UpdatedAt = now
	m.articles[id] = a
	return nil
}

func (m *memStore) Complete(_ context.Context, id string, from domain.JobStatus, r *domain.ArticleResult, usage []domain.UsageRecord) error {
	if m.completeGate != nil {
		close(m.completeEntered)
		<-m.completeGate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.completeErr != nil {
		return m.completeErr
	}
	for _, u := range usage {
		if !u.Usage().Consistent() {
			return repository.ErrInconsistentUsage
		}
	}
	if err := m.updateResult(id, from, r); err != nil {
		return err
	}
	for _, u := range usage {
		u.ArticleID = id
		u.ID = uuid.NewString()
		u.CreatedAt = time.Now()
		m.usage = append(m.usage, u)
	}
	return nil
}

func (m *memStore) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.articles[id]; !ok {
		return false, nil
	}
	delete(m.articles, id)
	kept := m.usage[:0]
	for _, u := range m.usage {
		if u.ArticleID != id {
			kept = append(kept, u)
		}
	}
	m.usage = kept
	return true, nil
}

func (m *memStore) RecordUsage(_ context.Context, rec *domain.UsageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !rec.Usage().Consistent() {
		return repository.ErrInconsistentUsage
	}
	m.usage = append(m.usage, *rec)
	return nil
}

func (m *memStore) ListUsage(_ context.Context, articleID string) ([]domain.UsageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.UsageRecord
	for _, u := range m.usage {
		if u.ArticleID == articleID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memStore) FailInterrupted(_ context.Context, msg string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, a := range m.articles {
		if a.Status == domain.JobStatusGenerating {
			a.Status = domain.JobStatusFailed
			a.ErrorMessage = msg
			m.articles[id] = a
			n++
		}
	}
	return n, nil
}

func (m *memStore) Scoped(_ context.Context, fn func(repository.Store) error) error {
	m.mu.Lock()
	m.scoped++
	m.mu.Unlock()
	return fn(m)
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.articles)
}

func (m *memStore) setStatus(id string, status domain.JobStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.articles[id]
	a.Status = status
	m.articles[id] = a
}
