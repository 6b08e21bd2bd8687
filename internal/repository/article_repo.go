package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/timmy/quill/internal/domain"
)

var (
	ErrNotFound          = errors.New("repository: record not found")
	ErrInvalidTransition = errors.New("repository: invalid status transition")
	ErrInconsistentUsage = errors.New("repository: total tokens must equal prompt + completion")
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// Store is the persistence contract of the generation pipeline. Every
// status change is guarded by the job state machine at the database level.
type Store interface {
	Create(ctx context.Context, a *domain.Article) error
	Get(ctx context.Context, id string) (*domain.Article, error)
	List(ctx context.Context, offset, limit int) ([]domain.Article, error)
	ListByStatus(ctx context.Context, status domain.JobStatus, offset, limit int) ([]domain.Article, error)
	UpdateStatus(ctx context.Context, id string, status domain.JobStatus, errMsg string) error
	UpdateResult(ctx context.Context, id string, from domain.JobStatus, result *domain.ArticleResult) error
	Complete(ctx context.Context, id string, from domain.JobStatus, result *domain.ArticleResult, usage []domain.UsageRecord) error
	Delete(ctx context.Context, id string) (bool, error)
	RecordUsage(ctx context.Context, rec *domain.UsageRecord) error
	ListUsage(ctx context.Context, articleID string) ([]domain.UsageRecord, error)
	FailInterrupted(ctx context.Context, msg string) (int64, error)
	Scoped(ctx context.Context, fn func(Store) error) error
}

// ArticleRepository implements Store on gorm.
type ArticleRepository struct {
	db *gorm.DB
}

var _ Store = (*ArticleRepository)(nil)

// NewArticleRepository creates a new ArticleRepository.
func NewArticleRepository(db *gorm.DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

// Create inserts a new request in Pending. The ID is generated when empty.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - a: article to persist; its status is forced to pending.
// Returns:
//   - error: non-nil if the insert fails.
func (r *ArticleRepository) Create(ctx context.Context, a *domain.Article) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.Status = domain.JobStatusPending
	a.ErrorMessage = ""
	return r.db.WithContext(ctx).Create(a).Error
}

// Get retrieves an article by ID.
func (r *ArticleRepository) Get(ctx context.Context, id string) (*domain.Article, error) {
	var a domain.Article
	if err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

// List returns articles, most recently updated first.
func (r *ArticleRepository) List(ctx context.Context, offset, limit int) ([]domain.Article, error) {
	return r.list(ctx, "", offset, limit)
}

// ListByStatus returns articles in one status, most recently updated first.
func (r *ArticleRepository) ListByStatus(ctx context.Context, status domain.JobStatus, offset, limit int) ([]domain.Article, error) {
	return r.list(ctx, status, offset, limit)
}

func (r *ArticleRepository) list(ctx context.Context, status domain.JobStatus, offset, limit int) ([]domain.Article, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	q := r.db.WithContext(ctx).Model(&domain.Article{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []domain.Article
	if err := q.Order("updated_at DESC").Offset(offset).Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateStatus moves an article to status. Only transitions allowed by the
// job state machine succeed; the error message is kept only for failed.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: article ID.
//   - status: target status (generating or failed).
//   - errMsg: human-readable cause; required for failed.
// Returns:
//   - error: ErrNotFound, ErrInvalidTransition, or a database error.
func (r *ArticleRepository) UpdateStatus(ctx context.Context, id string, status domain.JobStatus, errMsg string) error {
	switch status {
	case domain.JobStatusCompleted:
		return fmt.Errorf("%w: completed requires a result payload", ErrInvalidTransition)
	case domain.JobStatusFailed:
		if errMsg == "" {
			errMsg = "unknown error"
		}
	default:
		errMsg = ""
	}

	from := domain.Predecessors(status)
	if len(from) == 0 {
		return fmt.Errorf("%w: nothing transitions to %s", ErrInvalidTransition, status)
	}

	res := r.db.WithContext(ctx).Model(&domain.Article{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]interface{}{
			"status":        status,
			"error_message": errMsg,
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.missOrConflict(ctx, id, status)
	}
	return nil
}

// UpdateResult stores the result payload and marks the article completed,
// provided it is currently in from.
func (r *ArticleRepository) UpdateResult(ctx context.Context, id string, from domain.JobStatus, result *domain.ArticleResult) error {
	if !from.CanTransitionTo(domain.JobStatusCompleted) {
		return fmt.Errorf("%w: %s -> completed", ErrInvalidTransition, from)
	}
	now := time.Now()
	score := result.Score

	res := r.db.WithContext(ctx).Model(&domain.Article{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":          domain.JobStatusCompleted,
			"error_message":   "",
			"keywords":        domain.StringArray(result.Keywords),
			"questions":       domain.StringArray(result.Questions),
			"outline":         result.Outline,
			"content":         result.Content,
			"score":           &score,
			"recommendations": domain.StringArray(result.Recommendations),
			"provider":        result.Provider,
			"served_model":    result.ServedModel,
			"substituted":     result.Substituted,
			"completed_at":    &now,
			"updated_at":      now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.missOrConflict(ctx, id, domain.JobStatusCompleted)
	}
	return nil
}

// Complete writes the result payload and the usage records in one
// transaction. Either both are persisted or neither is.
func (r *ArticleRepository) Complete(ctx context.Context, id string, from domain.JobStatus, result *domain.ArticleResult, usage []domain.UsageRecord) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &ArticleRepository{db: tx}
		if err := txRepo.UpdateResult(ctx, id, from, result); err != nil {
			return err
		}
		for i := range usage {
			usage[i].ArticleID = id
			if err := txRepo.RecordUsage(ctx, &usage[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes an article and its usage records.
// Returns:
//   - bool: true if the article existed.
//   - error: non-nil if the delete fails.
func (r *ArticleRepository) Delete(ctx context.Context, id string) (bool, error) {
	var deleted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("article_id = ?", id).Delete(&domain.UsageRecord{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&domain.Article{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	return deleted, err
}

// RecordUsage inserts an immutable usage record.
func (r *ArticleRepository) RecordUsage(ctx context.Context, rec *domain.UsageRecord) error {
	if !rec.Usage().Consistent() {
		return fmt.Errorf("%w: %d != %d + %d", ErrInconsistentUsage, rec.TotalTokens, rec.PromptTokens, rec.CompletionTokens)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(rec).Error
}

// ListUsage returns an article's usage records, oldest first.
func (r *ArticleRepository) ListUsage(ctx context.Context, articleID string) ([]domain.UsageRecord, error) {
	var out []domain.UsageRecord
	err := r.db.WithContext(ctx).
		Where("article_id = ?", articleID).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

// FailInterrupted marks every article left in generating as failed. It is
// meant for process start, before any task runs.
func (r *ArticleRepository) FailInterrupted(ctx context.Context, msg string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.Article{}).
		Where("status = ?", domain.JobStatusGenerating).
		Updates(map[string]interface{}{
			"status":        domain.JobStatusFailed,
			"error_message": msg,
			"updated_at":    time.Now(),
		})
	return res.RowsAffected, res.Error
}

// Scoped runs fn on a repository bound to one dedicated connection, which is
// returned to the pool when fn returns, whatever the outcome.
func (r *ArticleRepository) Scoped(ctx context.Context, fn func(Store) error) error {
	return r.db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		return fn(&ArticleRepository{db: conn})
	})
}

func (r *ArticleRepository) missOrConflict(ctx context.Context, id string, to domain.JobStatus) error {
	var a domain.Article
	if err := r.db.WithContext(ctx).Select("id", "status").First(&a, "id = ?", id).Error; err != nil {
		return translate(err)
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, to)
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
