package service

import (
	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/apperr"
	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/workflow/model"
)

// TransitionResult represents the result of applying one action to an approval request.
type TransitionResult struct {
	// Request is the new request value. The input request is left untouched.
	Request model.ApprovalRequest

	// StageResolved indicates the active stage reached a terminal status.
	StageResolved bool

	// Event is set when the request reached a terminal status.
	Event *model.ApprovalEvent
}

// Transition is the approval request state machine. It applies an approver
// action to the active stage and returns the next request value:
//
//	pending -> in_progress -> ... -> approved
//	pending | in_progress -> rejected
//
// Both approved and rejected are terminal. Stages after a rejected stage stay
// pending and are never actionable.
func Transition(req model.ApprovalRequest, action model.Action) (*TransitionResult, error) {
	if req.OverallStatus.IsTerminal() {
		return nil, apperr.State("approval request %s is already %s", req.ID, req.OverallStatus)
	}

	active := req.ActiveStage()
	if active == nil {
		return nil, apperr.State("approval request %s has no active stage", req.ID)
	}
	if !active.AllowsRole(action.ApproverRole) {
		return nil, apperr.Authorization("role %q is not permitted to act on stage %q", action.ApproverRole, active.Name)
	}

	decision, err := EvaluateStage(*active, action)
	if err != nil {
		return nil, err
	}

	next := req.Clone()
	next.Stages[next.CurrentStageIndex] = decision.Stage

	result := &TransitionResult{StageResolved: decision.Done}
	if !decision.Done {
		// Partial require-all approval: only the action list changes
		result.Request = next
		return result, nil
	}

	switch decision.Stage.Status {
	case model.StageStatusRejected:
		next.OverallStatus = model.RequestStatusRejected
		completedAt := action.Timestamp
		next.CompletedAt = &completedAt
		event := model.NewApprovalEvent(model.EventRequestRejected, &next, action.Timestamp)
		result.Event = &event

	case model.StageStatusApproved:
		if canComplete(next) {
			next.OverallStatus = model.RequestStatusApproved
			completedAt := action.Timestamp
			next.CompletedAt = &completedAt
			event := model.NewApprovalEvent(model.EventRequestApproved, &next, action.Timestamp)
			result.Event = &event
		} else {
			next.CurrentStageIndex++
			next.OverallStatus = model.RequestStatusInProgress
		}
	}

	result.Request = next
	return result, nil
}

// canComplete reports whether the active stage is the last one and every stage is approved.
func canComplete(req model.ApprovalRequest) bool {
	if req.CurrentStageIndex != len(req.Stages)-1 {
		return false
	}
	for _, s := range req.Stages {
		if s.Status != model.StageStatusApproved {
			return false
		}
	}
	return true
}

// SnapshotStages converts a definition's stage templates into fresh pending
// stage states. The templates must already be normalized (sorted by order).
func SnapshotStages(templates []model.StageTemplate) []model.StageState {
	stages := make([]model.StageState, 0, len(templates))
	for _, t := range templates {
		roles := make([]string, len(t.RequiredRoles))
		copy(roles, t.RequiredRoles)
		stages = append(stages, model.StageState{
			Name:          t.Name,
			Order:         t.Order,
			Status:        model.StageStatusPending,
			RequiredRoles: roles,
			RequireAll:    t.RequireAll,
			Description:   t.Description,
			Actions:       []model.Action{},
		})
	}
	return stages
}
