package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/apperr"
	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/auth"
	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/workflow/model"
	"github.com/Shyam-vadgama/smart-student-hub-sub000/utils"
)

const defaultMaxActRetries = 3

// errVersionConflict signals that the request row changed between read and write.
var errVersionConflict = errors.New("approval request version changed")

// ApprovalRequestService is the approval request engine: it creates requests
// from workflow snapshots, applies approver actions and raises terminal events.
type ApprovalRequestService struct {
	db            *gorm.DB
	selector      *WorkflowSelector
	content       ContentProvider
	directory     DirectoryProvider
	publisher     EventPublisher
	metrics       *engineMetrics
	maxActRetries int
	now           func() time.Time
}

// NewApprovalRequestService creates a new instance of ApprovalRequestService with the provided dependencies.
func NewApprovalRequestService(db *gorm.DB, selector *WorkflowSelector, content ContentProvider, directory DirectoryProvider) *ApprovalRequestService {
	return &ApprovalRequestService{
		db:            db,
		selector:      selector,
		content:       content,
		directory:     directory,
		metrics:       newEngineMetrics(),
		maxActRetries: defaultMaxActRetries,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// SetEventPublisher sets the publisher that receives terminal events after commit.
func (s *ApprovalRequestService) SetEventPublisher(publisher EventPublisher) {
	s.publisher = publisher
}

// SetMaxActRetries bounds how many times Act re-runs after a concurrent modification.
func (s *ApprovalRequestService) SetMaxActRetries(n int) {
	if n >= 0 {
		s.maxActRetries = n
	}
}

// SetClock overrides the time source. Intended for tests.
func (s *ApprovalRequestService) SetClock(now func() time.Time) {
	s.now = now
}

// Submit creates an approval request for a piece of content owned by the student.
// The workflow's stages are copied into the request, so later edits to the
// definition do not affect it.
func (s *ApprovalRequestService) Submit(ctx context.Context, student *auth.Principal, dto *model.SubmitApprovalRequestDTO) (*model.ApprovalRequest, error) {
	if student == nil {
		return nil, apperr.Authorization("authentication required")
	}
	if dto == nil {
		return nil, apperr.Validation("submit request cannot be nil")
	}
	contentID := strings.TrimSpace(dto.ContentID)
	if contentID == "" {
		return nil, apperr.Validation("content ID is required")
	}
	if !dto.ContentType.IsConcrete() {
		return nil, apperr.Validation("unknown content type %q", dto.ContentType)
	}

	owner, err := s.content.GetOwner(ctx, dto.ContentType, contentID)
	if err != nil {
		return nil, err
	}
	if owner != student.ID {
		return nil, apperr.Authorization("content %s %s is not owned by %s", dto.ContentType, contentID, student.ID)
	}

	if err := s.ensureNoActiveRequest(ctx, s.db.WithContext(ctx), dto.ContentType, contentID); err != nil {
		return nil, err
	}

	departmentID, collegeID := s.resolveScope(ctx, student)

	def, err := s.selector.Resolve(ctx, dto.ContentType, departmentID, collegeID)
	if err != nil {
		return nil, err
	}

	requestedAt := s.now()
	req := &model.ApprovalRequest{
		StudentID:         student.ID,
		ContentType:       dto.ContentType,
		ContentID:         contentID,
		WorkflowID:        def.ID,
		WorkflowName:      def.Name,
		Stages:            SnapshotStages(def.Stages),
		CurrentStageIndex: 0,
		OverallStatus:     model.RequestStatusPending,
		RequestedAt:       requestedAt,
		DepartmentID:      optionalRef(departmentID),
		CollegeID:         optionalRef(collegeID),
		Version:           1,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ensureNoActiveRequest(ctx, tx, dto.ContentType, contentID); err != nil {
			return err
		}

		// The partial unique index decides races that pass the check above.
		if err := tx.Create(req).Error; err != nil {
			if isUniqueViolation(err) {
				return apperr.Wrap(apperr.KindConflict, err, "an active approval request already exists for %s %s", dto.ContentType, contentID)
			}
			return fmt.Errorf("failed to create approval request: %w", err)
		}

		// Mark the content pending within the same transaction
		state := model.ContentApprovalState{Marker: model.ApprovalMarkerPending, Visible: false}
		if err := s.content.SetApprovalStateInTx(ctx, tx, dto.ContentType, contentID, state); err != nil {
			return fmt.Errorf("failed to mark content as pending: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	inc(ctx, s.metrics.submitted, attribute.String("content_type", string(req.ContentType)))
	slog.InfoContext(ctx, "approval request submitted",
		"requestId", req.ID,
		"studentId", req.StudentID,
		"contentType", req.ContentType,
		"contentId", req.ContentID,
		"workflowId", def.ID)
	return req, nil
}

// Act records an approver decision on the active stage of a request.
// The read-evaluate-write runs under a row lock and a version guard; a lost
// race is retried a bounded number of times before surfacing as a Conflict.
func (s *ApprovalRequestService) Act(ctx context.Context, approver *auth.Principal, requestID uuid.UUID, dto *model.ActOnApprovalRequestDTO) (*model.ApprovalRequest, error) {
	if approver == nil {
		return nil, apperr.Authorization("authentication required")
	}
	if dto == nil {
		return nil, apperr.Validation("action request cannot be nil")
	}
	if !dto.Decision.IsValid() {
		return nil, apperr.Validation("decision must be %q or %q", model.DecisionApproved, model.DecisionRejected)
	}

	// resolved outside the transaction; the directory shares the connection pool
	departmentID, collegeID := s.resolveScope(ctx, approver)

	var (
		result *TransitionResult
		err    error
	)
	for attempt := 0; ; attempt++ {
		result, err = s.actInTx(ctx, approver, departmentID, collegeID, requestID, dto)
		if !errors.Is(err, errVersionConflict) {
			break
		}
		if attempt >= s.maxActRetries {
			return nil, apperr.Conflict("approval request %s was modified concurrently, please retry", requestID)
		}
		inc(ctx, s.metrics.retries)
		slog.DebugContext(ctx, "retrying act after concurrent modification", "requestId", requestID, "attempt", attempt+1)
	}
	if err != nil {
		return nil, err
	}

	req := result.Request
	inc(ctx, s.metrics.actions, attribute.String("decision", string(dto.Decision)))
	slog.InfoContext(ctx, "approval action recorded",
		"requestId", req.ID,
		"approverId", approver.ID,
		"role", approver.Role,
		"decision", dto.Decision,
		"stageIndex", req.CurrentStageIndex,
		"overallStatus", req.OverallStatus)

	if result.Event != nil {
		inc(ctx, s.metrics.completed, attribute.String("status", string(req.OverallStatus)))
		s.publish(ctx, *result.Event)
	}
	return &req, nil
}

func (s *ApprovalRequestService) actInTx(ctx context.Context, approver *auth.Principal, departmentID, collegeID string, requestID uuid.UUID, dto *model.ActOnApprovalRequestDTO) (*TransitionResult, error) {
	var result *TransitionResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.getForUpdateInTx(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if err := authorizeScope(approver, departmentID, collegeID, current); err != nil {
			return err
		}

		action := model.Action{
			ApproverID:   approver.ID,
			ApproverRole: approver.Role,
			Decision:     dto.Decision,
			Comment:      strings.TrimSpace(dto.Comment),
			Timestamp:    s.now(),
		}
		result, err = Transition(*current, action)
		if err != nil {
			return err
		}

		next := &result.Request
		next.Version = current.Version + 1
		update := tx.Model(next).
			Where("version = ?", current.Version).
			Select("stages", "current_stage_index", "overall_status", "completed_at", "version", "updated_at").
			Updates(next)
		if update.Error != nil {
			return fmt.Errorf("failed to update approval request: %w", update.Error)
		}
		if update.RowsAffected == 0 {
			return errVersionConflict
		}

		if result.Event == nil {
			return nil
		}
		state := model.ContentApprovalState{Marker: model.ApprovalMarkerApproved, Visible: true}
		if next.OverallStatus == model.RequestStatusRejected {
			state = model.ContentApprovalState{Marker: model.ApprovalMarkerRejected, Visible: false}
		}
		if err := s.content.SetApprovalStateInTx(ctx, tx, next.ContentType, next.ContentID, state); err != nil {
			return fmt.Errorf("failed to update content approval state: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Cancel voids a non-terminal request on behalf of its owning student and
// resets the content's approval marker.
func (s *ApprovalRequestService) Cancel(ctx context.Context, student *auth.Principal, requestID uuid.UUID) error {
	if student == nil {
		return apperr.Authorization("authentication required")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		req, err := s.getForUpdateInTx(ctx, tx, requestID)
		if err != nil {
			return err
		}
		if req.StudentID != student.ID {
			return apperr.Authorization("only the owning student can cancel approval request %s", requestID)
		}
		if req.OverallStatus.IsTerminal() {
			return apperr.State("approval request %s is already %s", requestID, req.OverallStatus)
		}

		del := tx.Where("version = ?", req.Version).Delete(req)
		if del.Error != nil {
			return fmt.Errorf("failed to cancel approval request: %w", del.Error)
		}
		if del.RowsAffected == 0 {
			return apperr.Conflict("approval request %s was modified concurrently, please retry", requestID)
		}

		state := model.ContentApprovalState{Marker: model.ApprovalMarkerNotRequested, Visible: false}
		if err := s.content.SetApprovalStateInTx(ctx, tx, req.ContentType, req.ContentID, state); err != nil {
			return fmt.Errorf("failed to reset content approval state: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "approval request cancelled", "requestId", requestID, "studentId", student.ID)
	return nil
}

// Get returns a request with its full stage and action history.
func (s *ApprovalRequestService) Get(ctx context.Context, viewer *auth.Principal, requestID uuid.UUID) (*model.ApprovalRequest, error) {
	if viewer == nil {
		return nil, apperr.Authorization("authentication required")
	}

	var req model.ApprovalRequest
	if err := s.db.WithContext(ctx).First(&req, "id = ?", requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("approval request %s not found", requestID)
		}
		return nil, fmt.Errorf("failed to retrieve approval request: %w", err)
	}

	if req.StudentID != viewer.ID {
		if viewer.Role == auth.RoleStudent {
			return nil, apperr.Authorization("approval request %s belongs to another student", requestID)
		}
		departmentID, collegeID := s.resolveScope(ctx, viewer)
		if err := authorizeScope(viewer, departmentID, collegeID, &req); err != nil {
			return nil, err
		}
	}
	return &req, nil
}

// List returns requests visible to the viewer. Students only see their own
// requests; staff see requests in their department or college.
func (s *ApprovalRequestService) List(ctx context.Context, viewer *auth.Principal, filter model.ApprovalRequestFilter) (*model.ApprovalRequestListResult, error) {
	if viewer == nil {
		return nil, apperr.Authorization("authentication required")
	}

	query := s.db.WithContext(ctx).Model(&model.ApprovalRequest{})

	switch {
	case viewer.Role == auth.RoleStudent:
		query = query.Where("student_id = ?", viewer.ID)
	case filter.StudentID != nil:
		query = query.Where("student_id = ?", *filter.StudentID)
	}
	if viewer.Role != auth.RoleAdmin && viewer.Role != auth.RoleStudent {
		departmentID, collegeID := s.resolveScope(ctx, viewer)
		query = scopeFilter(query, departmentID, collegeID)
	}
	if filter.Status != nil {
		query = query.Where("overall_status = ?", *filter.Status)
	}
	if filter.ContentType != nil {
		query = query.Where("content_type = ?", *filter.ContentType)
	}

	offset, limit := utils.GetPaginationParams(filter.Offset, filter.Limit)

	if filter.PendingOnMe {
		return s.listPendingOn(viewer, query, offset, limit)
	}

	var totalCount int64
	if err := query.Count(&totalCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count approval requests: %w", err)
	}

	var reqs []model.ApprovalRequest
	if err := query.Order("requested_at DESC").Order("id DESC").Offset(offset).Limit(limit).Find(&reqs).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve approval requests: %w", err)
	}

	return &model.ApprovalRequestListResult{
		TotalCount: totalCount,
		Items:      reqs,
		Offset:     offset,
		Limit:      limit,
	}, nil
}

// listPendingOn filters active requests whose current stage awaits the
// viewer's role and that the viewer has not acted on yet. The stage snapshot
// is a JSON column, so the role match happens in memory.
func (s *ApprovalRequestService) listPendingOn(viewer *auth.Principal, query *gorm.DB, offset, limit int) (*model.ApprovalRequestListResult, error) {
	var candidates []model.ApprovalRequest
	if err := query.Where("overall_status IN ?", model.ActiveRequestStatuses).
		Order("requested_at ASC").Order("id ASC").
		Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve pending approval requests: %w", err)
	}

	pending := make([]model.ApprovalRequest, 0, len(candidates))
	for _, req := range candidates {
		stage := req.ActiveStage()
		if stage == nil || req.StudentID == viewer.ID {
			continue
		}
		if stage.AllowsRole(viewer.Role) && !stage.HasActed(viewer.ID) {
			pending = append(pending, req)
		}
	}

	page, totalCount := utils.Page(pending, offset, limit)

	return &model.ApprovalRequestListResult{
		TotalCount: totalCount,
		Items:      page,
		Offset:     offset,
		Limit:      limit,
	}, nil
}

func (s *ApprovalRequestService) getForUpdateInTx(_ context.Context, tx *gorm.DB, requestID uuid.UUID) (*model.ApprovalRequest, error) {
	var req model.ApprovalRequest
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&req, "id = ?", requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("approval request %s not found", requestID)
		}
		return nil, fmt.Errorf("failed to retrieve approval request: %w", err)
	}
	return &req, nil
}

// ensureNoActiveRequest fails with Conflict when a non-terminal request exists for the content.
func (s *ApprovalRequestService) ensureNoActiveRequest(_ context.Context, tx *gorm.DB, contentType model.ContentType, contentID string) error {
	var count int64
	if err := tx.Model(&model.ApprovalRequest{}).
		Where("content_type = ? AND content_id = ?", contentType, contentID).
		Where("overall_status IN ?", model.ActiveRequestStatuses).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check for active approval requests: %w", err)
	}
	if count > 0 {
		return apperr.Conflict("an active approval request already exists for %s %s", contentType, contentID)
	}
	return nil
}

// resolveScope returns the principal's department and college, looking up the
// college through the directory when only the department is assigned.
func (s *ApprovalRequestService) resolveScope(ctx context.Context, p *auth.Principal) (string, string) {
	departmentID, collegeID := p.Department(), p.College()
	if collegeID != "" || departmentID == "" || s.directory == nil {
		return departmentID, collegeID
	}

	college, err := s.directory.CollegeForDepartment(ctx, departmentID)
	if err != nil {
		slog.WarnContext(ctx, "failed to resolve college for department",
			"departmentId", departmentID,
			"error", err)
		return departmentID, ""
	}
	return departmentID, college
}

func (s *ApprovalRequestService) publish(ctx context.Context, event model.ApprovalEvent) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "no event publisher configured, dropping approval event",
			"type", event.Type,
			"requestId", event.RequestID)
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		// The request is already committed; a portfolio rebuild recovers the projection.
		slog.ErrorContext(ctx, "failed to publish approval event",
			"type", event.Type,
			"requestId", event.RequestID,
			"error", err)
	}
}

// authorizeScope rejects principals acting outside the request's organizational
// scope, given the principal's resolved department and college. Students can
// never act on their own content.
func authorizeScope(p *auth.Principal, departmentID, collegeID string, req *model.ApprovalRequest) error {
	if p.ID == req.StudentID {
		return apperr.Authorization("students cannot review their own submissions")
	}
	if p.Role == auth.RoleAdmin {
		return nil
	}
	if departmentID == "" && collegeID == "" {
		return apperr.Authorization("principal %s has no department or college assigned", p.ID)
	}
	if !scopeCovers(departmentID, collegeID, req) {
		return apperr.Authorization("approval request %s is outside the scope of principal %s", req.ID, p.ID)
	}
	return nil
}

// scopeCovers reports whether a staff member of the given department and
// college may review req. A college-wide member (no department) covers every
// department of the college; a request without any scope is admin-only.
// scopeFilter must stay in step with it.
func scopeCovers(departmentID, collegeID string, req *model.ApprovalRequest) bool {
	switch {
	case req.CollegeID == nil && req.DepartmentID == nil:
		return false
	case req.CollegeID != nil && *req.CollegeID != collegeID:
		return false
	case req.DepartmentID == nil:
		return true
	case departmentID != "":
		return *req.DepartmentID == departmentID
	default:
		return req.CollegeID != nil
	}
}

// scopeFilter restricts query to the requests scopeCovers accepts.
func scopeFilter(query *gorm.DB, departmentID, collegeID string) *gorm.DB {
	switch {
	case departmentID == "" && collegeID == "":
		return query.Where("1 = 0")
	case departmentID == "":
		return query.Where("college_id = ?", collegeID)
	default:
		return query.Where("((college_id = ? AND (department_id IS NULL OR department_id = ?)) OR (college_id IS NULL AND department_id = ?))",
			collegeID, departmentID, departmentID)
	}
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}

func optionalRef(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
