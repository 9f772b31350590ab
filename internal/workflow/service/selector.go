package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/apperr"
	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/workflow/model"
)

// DefinitionCandidateSource returns the active definitions that may apply to a submission.
type DefinitionCandidateSource interface {
	ListCandidates(ctx context.Context, contentType model.ContentType, departmentID, collegeID string) ([]model.WorkflowDefinition, error)
}

// WorkflowSelector picks the single applicable workflow definition for a submission.
type WorkflowSelector struct {
	source DefinitionCandidateSource
}

// NewWorkflowSelector creates a new WorkflowSelector.
func NewWorkflowSelector(source DefinitionCandidateSource) *WorkflowSelector {
	return &WorkflowSelector{source: source}
}

// Resolve returns the best active definition for the content type and scope.
// Priority, highest first:
//
//	department + exact type
//	department + any
//	college + exact type
//	college + any
//	global + exact type
//	global + any
//
// Remaining ties go to the most recently created definition, then to the highest id.
func (s *WorkflowSelector) Resolve(ctx context.Context, contentType model.ContentType, departmentID, collegeID string) (*model.WorkflowDefinition, error) {
	if !contentType.IsConcrete() {
		return nil, apperr.Validation("content type %q cannot be submitted for approval", contentType)
	}

	candidates, err := s.source.ListCandidates(ctx, contentType, departmentID, collegeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow candidates: %w", err)
	}

	best := SelectDefinition(candidates, contentType, departmentID, collegeID)
	if best == nil {
		return nil, apperr.NotFound("no active workflow applies to %s content in department %q / college %q", contentType, departmentID, collegeID)
	}
	return best, nil
}

// SelectDefinition ranks definitions and returns the best applicable one, or nil.
func SelectDefinition(defs []model.WorkflowDefinition, contentType model.ContentType, departmentID, collegeID string) *model.WorkflowDefinition {
	var best *model.WorkflowDefinition
	bestRank := 0
	for i := range defs {
		def := &defs[i]
		rank := selectionRank(def, contentType, departmentID, collegeID)
		if rank == 0 {
			continue
		}
		if best == nil || rank > bestRank || (rank == bestRank && newerThan(def, best)) {
			best = def
			bestRank = rank
		}
	}
	return best
}

// selectionRank scores a definition for a submission; 0 means not applicable.
func selectionRank(def *model.WorkflowDefinition, contentType model.ContentType, departmentID, collegeID string) int {
	if !def.IsActive {
		return 0
	}

	var typeBonus int
	switch def.ContentType {
	case contentType:
		typeBonus = 2
	case model.ContentTypeAny:
		typeBonus = 1
	default:
		return 0
	}

	switch def.Scope() {
	case model.ScopeDepartment:
		if departmentID == "" || *def.DepartmentID != departmentID {
			return 0
		}
		return 4 + typeBonus
	case model.ScopeCollege:
		if collegeID == "" || *def.CollegeID != collegeID {
			return 0
		}
		return 2 + typeBonus
	default:
		return typeBonus
	}
}

func newerThan(a, b *model.WorkflowDefinition) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return bytes.Compare(a.ID[:], b.ID[:]) > 0
}
