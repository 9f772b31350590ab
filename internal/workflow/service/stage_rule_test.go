package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/apperr"
	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/workflow/model"
)

func pendingStage(requireAll bool, roles ...string) model.StageState {
	return model.StageState{
		Name:          "Review",
		Order:         1,
		Status:        model.StageStatusPending,
		RequiredRoles: roles,
		RequireAll:    requireAll,
		Actions:       []model.Action{},
	}
}

func action(approverID, role string, decision model.Decision) model.Action {
	return model.Action{
		ApproverID:   approverID,
		ApproverRole: role,
		Decision:     decision,
		Timestamp:    time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestEvaluateStage(t *testing.T) {
	t.Run("Require Any First Approval Resolves", func(t *testing.T) {
		stage := pendingStage(false, "faculty", "hod", "principal")

		decision, err := EvaluateStage(stage, action("f1", "faculty", model.DecisionApproved))
		require.NoError(t, err)
		assert.True(t, decision.Done)
		assert.Equal(t, model.StageStatusApproved, decision.Stage.Status)
		assert.NotNil(t, decision.Stage.CompletedAt)
		assert.Len(t, decision.Stage.Actions, 1)
	})

	t.Run("Require All Waits For Every Role", func(t *testing.T) {
		stage := pendingStage(true, "faculty", "hod")

		first, err := EvaluateStage(stage, action("f1", "faculty", model.DecisionApproved))
		require.NoError(t, err)
		assert.False(t, first.Done)
		assert.Equal(t, model.StageStatusPending, first.Stage.Status)
		assert.Nil(t, first.Stage.CompletedAt)

		second, err := EvaluateStage(first.Stage, action("h1", "hod", model.DecisionApproved))
		require.NoError(t, err)
		assert.True(t, second.Done)
		assert.Equal(t, model.StageStatusApproved, second.Stage.Status)
		assert.Len(t, second.Stage.Actions, 2)
	})

	t.Run("Require All Same Role Twice Is Not Enough", func(t *testing.T) {
		stage := pendingStage(true, "faculty", "hod")

		first, err := EvaluateStage(stage, action("f1", "faculty", model.DecisionApproved))
		require.NoError(t, err)
		second, err := EvaluateStage(first.Stage, action("f2", "faculty", model.DecisionApproved))
		require.NoError(t, err)
		assert.False(t, second.Done)
	})

	t.Run("Single Rejection Resolves Regardless Of Policy", func(t *testing.T) {
		for _, requireAll := range []bool{true, false} {
			stage := pendingStage(requireAll, "faculty", "hod")
			decision, err := EvaluateStage(stage, action("h1", "hod", model.DecisionRejected))
			require.NoError(t, err)
			assert.True(t, decision.Done)
			assert.Equal(t, model.StageStatusRejected, decision.Stage.Status)
		}
	})

	t.Run("Duplicate Approver Conflict", func(t *testing.T) {
		stage := pendingStage(true, "faculty", "hod")
		first, err := EvaluateStage(stage, action("f1", "faculty", model.DecisionApproved))
		require.NoError(t, err)

		_, err = EvaluateStage(first.Stage, action("f1", "faculty", model.DecisionApproved))
		assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	})

	t.Run("Resolved Stage Is Frozen", func(t *testing.T) {
		stage := pendingStage(false, "faculty")
		stage.Status = model.StageStatusApproved

		_, err := EvaluateStage(stage, action("f1", "faculty", model.DecisionApproved))
		assert.True(t, apperr.IsKind(err, apperr.KindState))
	})

	t.Run("Unknown Decision", func(t *testing.T) {
		_, err := EvaluateStage(pendingStage(false, "faculty"), action("f1", "faculty", model.Decision("maybe")))
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	})

	t.Run("Input Is Not Mutated", func(t *testing.T) {
		stage := pendingStage(false, "faculty")
		_, err := EvaluateStage(stage, action("f1", "faculty", model.DecisionApproved))
		require.NoError(t, err)
		assert.Empty(t, stage.Actions)
		assert.Equal(t, model.StageStatusPending, stage.Status)
	})
}
