package portfolio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/apperr"
	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/content"
	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/workflow/model"
)

// errConcurrentWrite marks a lost race on the portfolio row; the write is retried.
var errConcurrentWrite = errors.New("portfolio modified concurrently")

// ContentSource returns the authoritative content record for an approved item.
type ContentSource interface {
	Get(ctx context.Context, contentType model.ContentType, contentID string) (*content.Item, error)
}

// SnapshotPublisher stores a JSON document and returns its URL.
type SnapshotPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) (string, error)
}

// Projector keeps public portfolios in sync with approved requests.
type Projector struct {
	db         *gorm.DB
	content    ContentSource
	snapshots  SnapshotPublisher
	newBackOff func() backoff.BackOff
	now        func() time.Time
}

// NewProjector creates a new Projector.
func NewProjector(db *gorm.DB, content ContentSource) *Projector {
	return &Projector{
		db:      db,
		content: content,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 10 * time.Millisecond
			b.MaxInterval = 500 * time.Millisecond
			return backoff.WithMaxRetries(b, 8)
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

// SetSnapshotPublisher enables publishing a JSON snapshot after every projection.
func (p *Projector) SetSnapshotPublisher(s SnapshotPublisher) {
	p.snapshots = s
}

// OnApproved projects an approved request onto the student's public portfolio.
// Applying the same event twice leaves a single entry for the content.
func (p *Projector) OnApproved(ctx context.Context, event model.ApprovalEvent) error {
	if event.Type != model.EventRequestApproved {
		return apperr.Validation("portfolio projection requires a %s event, got %s", model.EventRequestApproved, event.Type)
	}
	if event.StudentID == "" || event.ContentID == "" {
		return apperr.Validation("approval event is missing student or content")
	}

	record, err := p.content.Get(ctx, event.ContentType, event.ContentID)
	if err != nil {
		return fmt.Errorf("failed to load approved content: %w", err)
	}
	if record.OwnerID != event.StudentID {
		return apperr.Validation("content %s %s is not owned by %s", event.ContentType, event.ContentID, event.StudentID)
	}

	item := Item{
		ContentType: event.ContentType,
		ContentID:   event.ContentID,
		RequestID:   event.RequestID,
		Title:       record.Title,
		Summary:     record.Summary,
		Payload:     record.Payload,
		ApprovedAt:  event.OccurredAt,
	}
	if event.ContentType == model.ContentTypeMarks {
		item.Score = record.Score
	}

	var pf *PublicPortfolio
	attempt := 0
	op := func() error {
		attempt++
		var err error
		pf, err = p.apply(ctx, event.StudentID, item)
		if errors.Is(err, errConcurrentWrite) {
			slog.DebugContext(ctx, "retrying portfolio projection", "studentId", event.StudentID, "attempt", attempt)
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(p.newBackOff(), ctx)); err != nil {
		if errors.Is(err, errConcurrentWrite) {
			return apperr.Conflict("portfolio of %s is being updated concurrently", event.StudentID)
		}
		return err
	}

	slog.InfoContext(ctx, "portfolio updated",
		"studentId", pf.StudentID,
		"contentType", item.ContentType,
		"contentId", item.ContentID,
		"items", len(pf.Items),
		"version", pf.Version)

	p.publishSnapshot(ctx, pf)
	return nil
}

// apply performs one locked read-modify-write of the portfolio row.
func (p *Projector) apply(ctx context.Context, studentID string, item Item) (*PublicPortfolio, error) {
	var result *PublicPortfolio
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pf PublicPortfolio
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&pf, "student_id = ?", studentID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			pf = PublicPortfolio{StudentID: studentID, Version: 1}
			pf.upsertItem(item)
			pf.Stats = datatypes.NewJSONType(computeStats(pf.Items))
			pf.LastUpdated = p.now()

			if err := tx.Create(&pf).Error; err != nil {
				if isDuplicateKey(err) {
					// Another projection created the row first
					return errConcurrentWrite
				}
				return fmt.Errorf("failed to create portfolio: %w", err)
			}
		case err != nil:
			return fmt.Errorf("failed to load portfolio: %w", err)
		default:
			current := pf.Version
			pf.upsertItem(item)
			pf.Stats = datatypes.NewJSONType(computeStats(pf.Items))
			pf.LastUpdated = p.now()
			pf.Version = current + 1

			update := tx.Model(&pf).
				Where("version = ?", current).
				Select("items", "stats", "last_updated", "version").
				Updates(&pf)
			if update.Error != nil {
				return fmt.Errorf("failed to update portfolio: %w", update.Error)
			}
			if update.RowsAffected == 0 {
				return errConcurrentWrite
			}
		}
		result = &pf
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (p *Projector) publishSnapshot(ctx context.Context, pf *PublicPortfolio) {
	if p.snapshots == nil {
		return
	}
	url, err := p.snapshots.PublishJSON(ctx, SnapshotKey(pf.StudentID), pf)
	if err != nil {
		// The database row is authoritative; the next projection republishes.
		slog.WarnContext(ctx, "failed to publish portfolio snapshot", "studentId", pf.StudentID, "error", err)
		return
	}
	slog.DebugContext(ctx, "portfolio snapshot published", "studentId", pf.StudentID, "url", url)
}

// Get returns the public portfolio of a student.
func (p *Projector) Get(ctx context.Context, studentID string) (*PublicPortfolio, error) {
	var pf PublicPortfolio
	if err := p.db.WithContext(ctx).First(&pf, "student_id = ?", studentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("no public portfolio for student %s", studentID)
		}
		return nil, fmt.Errorf("failed to retrieve portfolio: %w", err)
	}
	return &pf, nil
}

// Rebuild re-applies every approved request of the student. It recovers
// projections whose events were lost and is safe to run repeatedly.
func (p *Projector) Rebuild(ctx context.Context, studentID string) (*PublicPortfolio, error) {
	var approved []model.ApprovalRequest
	if err := p.db.WithContext(ctx).
		Where("student_id = ? AND overall_status = ?", studentID, model.RequestStatusApproved).
		Order("completed_at ASC").
		Find(&approved).Error; err != nil {
		return nil, fmt.Errorf("failed to list approved requests: %w", err)
	}
	if len(approved) == 0 {
		return nil, apperr.NotFound("student %s has no approved content", studentID)
	}

	for i := range approved {
		req := &approved[i]
		at := req.UpdatedAt
		if req.CompletedAt != nil {
			at = *req.CompletedAt
		}
		event := model.NewApprovalEvent(model.EventRequestApproved, req, at)
		if err := p.OnApproved(ctx, event); err != nil {
			return nil, fmt.Errorf("failed to rebuild portfolio entry %s %s: %w", req.ContentType, req.ContentID, err)
		}
	}

	slog.InfoContext(ctx, "portfolio rebuilt", "studentId", studentID, "requests", len(approved))
	return p.Get(ctx, studentID)
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}
