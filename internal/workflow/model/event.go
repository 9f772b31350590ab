package model

import (
	"time"

	"github.com/google/uuid"
)

type ApprovalEventType string

const (
	EventRequestApproved ApprovalEventType = "request.approved"
	EventRequestRejected ApprovalEventType = "request.rejected"
)

// ApprovalEvent is raised when an approval request reaches a terminal status.
type ApprovalEvent struct {
	Type        ApprovalEventType `json:"type"`
	RequestID   uuid.UUID         `json:"requestId"`
	StudentID   string            `json:"studentId"`
	ContentType ContentType       `json:"contentType"`
	ContentID   string            `json:"contentId"`
	OccurredAt  time.Time         `json:"occurredAt"`
}

// NewApprovalEvent builds the terminal event for a request.
func NewApprovalEvent(eventType ApprovalEventType, req *ApprovalRequest, at time.Time) ApprovalEvent {
	return ApprovalEvent{
		Type:        eventType,
		RequestID:   req.ID,
		StudentID:   req.StudentID,
		ContentType: req.ContentType,
		ContentID:   req.ContentID,
		OccurredAt:  at,
	}
}
