package service

import (
	"context"

	"gorm.io/gorm"

	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/workflow/model"
)

// ContentProvider is the content collaborator: it knows who owns a content
// item and stores the approval marker shown to readers.
type ContentProvider interface {
	// GetOwner returns the principal id owning the content, or a NotFound error.
	GetOwner(ctx context.Context, contentType model.ContentType, contentID string) (string, error)

	// SetApprovalStateInTx records the approval marker within the caller's transaction,
	// so the marker commits or rolls back together with the request.
	SetApprovalStateInTx(ctx context.Context, tx *gorm.DB, contentType model.ContentType, contentID string, state model.ContentApprovalState) error
}

// DirectoryProvider resolves a department's parent college.
type DirectoryProvider interface {
	CollegeForDepartment(ctx context.Context, departmentID string) (string, error)
}

// EventPublisher delivers terminal approval events to their consumers.
// Delivery is at-least-once; consumers must be idempotent.
type EventPublisher interface {
	Publish(ctx context.Context, event model.ApprovalEvent) error
}
