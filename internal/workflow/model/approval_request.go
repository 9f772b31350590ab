package model

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RequestStatus string

const (
	RequestStatusPending    RequestStatus = "pending"     // Submitted, first stage active
	RequestStatusInProgress RequestStatus = "in_progress" // At least one stage approved
	RequestStatusApproved   RequestStatus = "approved"    // Every stage approved (terminal)
	RequestStatusRejected   RequestStatus = "rejected"    // A stage was rejected (terminal)
)

// IsTerminal reports whether no further transition is possible.
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusApproved || s == RequestStatusRejected
}

// ActiveRequestStatuses are the non-terminal statuses covered by the
// one-active-request-per-content constraint.
var ActiveRequestStatuses = []RequestStatus{RequestStatusPending, RequestStatusInProgress}

type StageStatus string

const (
	StageStatusPending  StageStatus = "pending"
	StageStatusApproved StageStatus = "approved"
	StageStatusRejected StageStatus = "rejected"
)

type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// IsValid reports whether d is one of the known decisions.
func (d Decision) IsValid() bool {
	return d == DecisionApproved || d == DecisionRejected
}

// Action is one approver's decision on a stage.
type Action struct {
	ApproverID   string    `json:"approverId"`
	ApproverRole string    `json:"approverRole"`
	Decision     Decision  `json:"decision"`
	Comment      string    `json:"comment,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// StageState is the snapshot of a stage template plus its action history.
type StageState struct {
	Name          string      `json:"name"`
	Order         int         `json:"order"`
	Status        StageStatus `json:"status"`
	RequiredRoles []string    `json:"requiredRoles"`
	RequireAll    bool        `json:"requireAll"`
	Description   string      `json:"description,omitempty"`
	Actions       []Action    `json:"actions"`
	CompletedAt   *time.Time  `json:"completedAt,omitempty"`
}

// Clone returns a deep copy of the stage.
func (s StageState) Clone() StageState {
	out := s
	out.RequiredRoles = slices.Clone(s.RequiredRoles)
	out.Actions = slices.Clone(s.Actions)
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		out.CompletedAt = &t
	}
	return out
}

// AllowsRole reports whether role is one of the stage's required roles.
func (s StageState) AllowsRole(role string) bool {
	return slices.Contains(s.RequiredRoles, role)
}

// HasActed reports whether the approver already recorded an action on the stage.
func (s StageState) HasActed(approverID string) bool {
	for _, a := range s.Actions {
		if a.ApproverID == approverID {
			return true
		}
	}
	return false
}

// ApprovalRequest tracks one submission through a snapshot of a workflow's stages.
type ApprovalRequest struct {
	BaseModel
	StudentID         string         `gorm:"type:varchar(100);column:student_id;not null;index" json:"studentId"`         // Owning student
	ContentType       ContentType    `gorm:"type:varchar(50);column:content_type;not null" json:"contentType"`            // Kind of content under review
	ContentID         string         `gorm:"type:varchar(100);column:content_id;not null" json:"contentId"`               // Content under review
	WorkflowID        uuid.UUID      `gorm:"type:uuid;column:workflow_id;not null" json:"workflowId"`                     // Originating definition, informational only
	WorkflowName      string         `gorm:"type:varchar(255);column:workflow_name" json:"workflowName"`                  // Definition name at submission time
	Stages            []StageState   `gorm:"type:jsonb;column:stages;not null;serializer:json" json:"stages"`             // Stage snapshot with action history
	CurrentStageIndex int            `gorm:"column:current_stage_index;not null;default:0" json:"currentStageIndex"`      // Index of the active stage
	OverallStatus     RequestStatus  `gorm:"type:varchar(20);column:overall_status;not null;index" json:"overallStatus"`  // Request status
	RequestedAt       time.Time      `gorm:"column:requested_at;not null" json:"requestedAt"`                             // Submission time
	CompletedAt       *time.Time     `gorm:"column:completed_at" json:"completedAt,omitempty"`                            // Set when the request becomes terminal
	DepartmentID      *string        `gorm:"type:varchar(100);column:department_id;index" json:"departmentId,omitempty"` // Organizational scope of the student
	CollegeID         *string        `gorm:"type:varchar(100);column:college_id;index" json:"collegeId,omitempty"`       // Organizational scope of the student
	Version           int            `gorm:"column:version;not null;default:1" json:"version"`                            // Optimistic concurrency counter
	DeletedAt         gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`                                            // Set when the student cancels
}

func (ar *ApprovalRequest) TableName() string {
	return "approval_requests"
}

// ActiveStage returns the stage at CurrentStageIndex, or nil when out of range.
func (ar *ApprovalRequest) ActiveStage() *StageState {
	if ar.CurrentStageIndex < 0 || ar.CurrentStageIndex >= len(ar.Stages) {
		return nil
	}
	return &ar.Stages[ar.CurrentStageIndex]
}

// Clone returns a deep copy of the request value.
func (ar ApprovalRequest) Clone() ApprovalRequest {
	out := ar
	out.Stages = make([]StageState, len(ar.Stages))
	for i, s := range ar.Stages {
		out.Stages[i] = s.Clone()
	}
	if ar.CompletedAt != nil {
		t := *ar.CompletedAt
		out.CompletedAt = &t
	}
	return out
}

// SubmitApprovalRequestDTO is the payload for submitApprovalRequest.
type SubmitApprovalRequestDTO struct {
	ContentType ContentType `json:"contentType" binding:"required"`
	ContentID   string      `json:"contentId" binding:"required"`
}

// ActOnApprovalRequestDTO is the payload for actOnApprovalRequest.
type ActOnApprovalRequestDTO struct {
	Decision Decision `json:"decision" binding:"required"`
	Comment  string   `json:"comment"`
}

// ApprovalRequestFilter narrows listApprovalRequests results.
type ApprovalRequestFilter struct {
	Status      *RequestStatus
	ContentType *ContentType
	StudentID   *string
	PendingOnMe bool // Only requests whose active stage awaits the caller's role
	Offset      *int
	Limit       *int
}

// ApprovalRequestListResult is a page of approval requests.
type ApprovalRequestListResult struct {
	TotalCount int64             `json:"totalCount"`
	Items      []ApprovalRequest `json:"items"`
	Offset     int               `json:"offset"`
	Limit      int               `json:"limit"`
}
