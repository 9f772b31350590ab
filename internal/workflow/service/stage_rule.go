package service

import (
	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/apperr"
	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/workflow/model"
)

// StageDecision is the outcome of evaluating one action against a stage.
type StageDecision struct {
	// Stage is the new stage value with the action appended.
	Stage model.StageState

	// Done indicates the stage reached a terminal status (approved or rejected).
	Done bool
}

// EvaluateStage applies an approver action to a stage and decides whether the
// stage is resolved. It never mutates its input.
//
// A single rejection resolves the stage as rejected regardless of policy.
// With RequireAll the stage is approved once every required role has an
// approved action; otherwise the first approval resolves it.
func EvaluateStage(stage model.StageState, action model.Action) (StageDecision, error) {
	if stage.Status != model.StageStatusPending {
		return StageDecision{}, apperr.State("stage %q is already %s", stage.Name, stage.Status)
	}
	if !action.Decision.IsValid() {
		return StageDecision{}, apperr.Validation("unknown decision %q", action.Decision)
	}
	if stage.HasActed(action.ApproverID) {
		return StageDecision{}, apperr.Conflict("approver %s already acted on stage %q", action.ApproverID, stage.Name)
	}

	next := stage.Clone()
	next.Actions = append(next.Actions, action)

	switch {
	case action.Decision == model.DecisionRejected:
		next.Status = model.StageStatusRejected
	case !next.RequireAll:
		next.Status = model.StageStatusApproved
	case coversRequiredRoles(next):
		next.Status = model.StageStatusApproved
	default:
		return StageDecision{Stage: next, Done: false}, nil
	}

	completedAt := action.Timestamp
	next.CompletedAt = &completedAt
	return StageDecision{Stage: next, Done: true}, nil
}

// coversRequiredRoles reports whether the distinct roles with an approved
// action form a superset of the stage's required roles.
func coversRequiredRoles(stage model.StageState) bool {
	approvedRoles := make(map[string]struct{}, len(stage.Actions))
	for _, a := range stage.Actions {
		if a.Decision == model.DecisionApproved {
			approvedRoles[a.ApproverRole] = struct{}{}
		}
	}
	for _, role := range stage.RequiredRoles {
		if _, ok := approvedRoles[role]; !ok {
			return false
		}
	}
	return true
}
