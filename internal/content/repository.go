// Package content stores the student-authored items that go through approval
// (projects, achievements, résumés, marks) together with their approval marker.
package content

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/apperr"
	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/workflow/model"
)

// Item is a piece of student content as seen by the approval workflow.
type Item struct {
	ContentType    model.ContentType    `gorm:"type:varchar(50);column:content_type;primaryKey" json:"contentType"`
	ContentID      string               `gorm:"type:varchar(100);column:content_id;primaryKey" json:"contentId"`
	OwnerID        string               `gorm:"type:varchar(100);column:owner_id;not null;index" json:"ownerId"`                         // Student that authored the content
	Title          string               `gorm:"type:varchar(255);column:title;not null" json:"title"`                                    // Display title
	Summary        string               `gorm:"type:text;column:summary" json:"summary,omitempty"`                                       // Short description for the public portfolio
	Score          *float64             `gorm:"column:score" json:"score,omitempty"`                                                     // Numeric score, marks records only
	Payload        datatypes.JSON       `gorm:"column:payload" json:"payload,omitempty"`                                                 // Kind-specific document
	ApprovalMarker model.ApprovalMarker `gorm:"type:varchar(20);column:approval_marker;not null;default:not_requested" json:"approvalMarker"` // Approval state written by the engine
	Visible        bool                 `gorm:"column:visible;not null;default:false" json:"visible"`                                    // Publicly visible once approved
	CreatedAt      time.Time            `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt      time.Time            `gorm:"column:updated_at" json:"updatedAt"`
}

func (i *Item) TableName() string {
	return "content_items"
}

// Repository is the gorm-backed content collaborator.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new content Repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Get returns the authoritative content record.
func (r *Repository) Get(ctx context.Context, contentType model.ContentType, contentID string) (*Item, error) {
	var item Item
	err := r.db.WithContext(ctx).
		Where("content_type = ? AND content_id = ?", contentType, contentID).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("%s %s not found", contentType, contentID)
		}
		return nil, fmt.Errorf("failed to retrieve content: %w", err)
	}
	return &item, nil
}

// GetOwner returns the id of the student owning the content.
func (r *Repository) GetOwner(ctx context.Context, contentType model.ContentType, contentID string) (string, error) {
	item, err := r.Get(ctx, contentType, contentID)
	if err != nil {
		return "", err
	}
	return item.OwnerID, nil
}

// SetApprovalStateInTx updates the approval marker and visibility of the content.
func (r *Repository) SetApprovalStateInTx(ctx context.Context, tx *gorm.DB, contentType model.ContentType, contentID string, state model.ContentApprovalState) error {
	if tx == nil {
		tx = r.db
	}
	result := tx.WithContext(ctx).Model(&Item{}).
		Where("content_type = ? AND content_id = ?", contentType, contentID).
		Updates(map[string]any{
			"approval_marker": state.Marker,
			"visible":         state.Visible,
			"updated_at":      time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update approval state: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("%s %s not found", contentType, contentID)
	}
	return nil
}

// Upsert creates or replaces the editable fields of a content item. The
// approval marker is left untouched on update.
func (r *Repository) Upsert(ctx context.Context, item *Item) error {
	if item == nil || item.ContentID == "" || item.OwnerID == "" {
		return apperr.Validation("content ID and owner are required")
	}
	if !item.ContentType.IsConcrete() {
		return apperr.Validation("unknown content type %q", item.ContentType)
	}
	if item.ApprovalMarker == "" {
		item.ApprovalMarker = model.ApprovalMarkerNotRequested
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "content_type"}, {Name: "content_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "summary", "score", "payload", "updated_at"}),
	}).Create(item).Error
	if err != nil {
		return fmt.Errorf("failed to upsert content: %w", err)
	}
	return nil
}

// ListByOwner returns every content item of a student, optionally restricted to visible ones.
func (r *Repository) ListByOwner(ctx context.Context, ownerID string, visibleOnly bool) ([]Item, error) {
	query := r.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if visibleOnly {
		query = query.Where("visible = ?", true)
	}
	var items []Item
	if err := query.Order("content_type").Order("content_id").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list content: %w", err)
	}
	return items, nil
}
