package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/apperr"
	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/auth"
	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/workflow/model"
	"github.com/Shyam-vadgama/smart-student-hub-sub000/utils"
)

// WorkflowDefinitionService persists reusable approval templates.
type WorkflowDefinitionService struct {
	db        *gorm.DB
	directory DirectoryProvider
}

// NewWorkflowDefinitionService creates a new instance of WorkflowDefinitionService.
// directory may be nil, in which case department-scoped definitions are only
// manageable by college admins when they carry an explicit college.
func NewWorkflowDefinitionService(db *gorm.DB, directory DirectoryProvider) *WorkflowDefinitionService {
	return &WorkflowDefinitionService{db: db, directory: directory}
}

// Create validates and persists a new workflow definition.
func (s *WorkflowDefinitionService) Create(ctx context.Context, actor *auth.Principal, dto *model.CreateWorkflowDefinitionDTO) (*model.WorkflowDefinition, error) {
	if dto == nil {
		return nil, apperr.Validation("create request cannot be nil")
	}

	stages, err := normalizeStages(dto.Stages)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(dto.Name) == "" {
		return nil, apperr.Validation("workflow name is required")
	}
	if !dto.ContentType.IsValidForDefinition() {
		return nil, apperr.Validation("unknown content type %q", dto.ContentType)
	}

	def := &model.WorkflowDefinition{
		Name:         strings.TrimSpace(dto.Name),
		Description:  dto.Description,
		ContentType:  dto.ContentType,
		Stages:       stages,
		IsActive:     dto.IsActive == nil || *dto.IsActive,
		DepartmentID: normalizeRef(dto.DepartmentID),
		CollegeID:    normalizeRef(dto.CollegeID),
	}
	if actor != nil {
		def.CreatedBy = actor.ID
	}

	if err := s.fillCollege(ctx, def); err != nil {
		return nil, err
	}
	if err := s.authorizeManage(actor, def); err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if def.IsActive {
			if err := s.checkAmbiguity(ctx, tx, def); err != nil {
				return err
			}
		}
		if err := tx.Create(def).Error; err != nil {
			return fmt.Errorf("failed to create workflow definition: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "workflow definition created",
		"workflowId", def.ID,
		"contentType", def.ContentType,
		"stages", len(def.Stages),
		"createdBy", def.CreatedBy)
	return def, nil
}

// List returns definitions matching the filter, newest first.
func (s *WorkflowDefinitionService) List(ctx context.Context, filter model.WorkflowDefinitionFilter) (*model.WorkflowDefinitionListResult, error) {
	query := s.db.WithContext(ctx).Model(&model.WorkflowDefinition{})

	if filter.ContentType != nil {
		query = query.Where("content_type = ?", *filter.ContentType)
	}
	if filter.DepartmentID != nil {
		query = query.Where("department_id = ?", *filter.DepartmentID)
	}
	if filter.CollegeID != nil {
		query = query.Where("college_id = ?", *filter.CollegeID)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}

	var totalCount int64
	if err := query.Count(&totalCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count workflow definitions: %w", err)
	}

	offset, limit := utils.GetPaginationParams(filter.Offset, filter.Limit)

	var defs []model.WorkflowDefinition
	if err := query.Order("created_at DESC").Order("id DESC").Offset(offset).Limit(limit).Find(&defs).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve workflow definitions: %w", err)
	}

	return &model.WorkflowDefinitionListResult{
		TotalCount: totalCount,
		Items:      defs,
		Offset:     offset,
		Limit:      limit,
	}, nil
}

// Get retrieves a workflow definition by its ID.
func (s *WorkflowDefinitionService) Get(ctx context.Context, id uuid.UUID) (*model.WorkflowDefinition, error) {
	return s.getInTx(ctx, s.db.WithContext(ctx), id)
}

func (s *WorkflowDefinitionService) getInTx(_ context.Context, tx *gorm.DB, id uuid.UUID) (*model.WorkflowDefinition, error) {
	var def model.WorkflowDefinition
	if err := tx.First(&def, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("workflow definition %s not found", id)
		}
		return nil, fmt.Errorf("failed to retrieve workflow definition: %w", err)
	}
	return &def, nil
}

// Update replaces the editable fields of a definition. Requests already in
// flight keep the stage snapshot they were created with.
func (s *WorkflowDefinitionService) Update(ctx context.Context, actor *auth.Principal, id uuid.UUID, dto *model.UpdateWorkflowDefinitionDTO) (*model.WorkflowDefinition, error) {
	if dto == nil {
		return nil, apperr.Validation("update request cannot be nil")
	}

	stages, err := normalizeStages(dto.Stages)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(dto.Name) == "" {
		return nil, apperr.Validation("workflow name is required")
	}
	if !dto.ContentType.IsValidForDefinition() {
		return nil, apperr.Validation("unknown content type %q", dto.ContentType)
	}

	var def *model.WorkflowDefinition
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.getInTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := s.authorizeManage(actor, existing); err != nil {
			return err
		}

		existing.Name = strings.TrimSpace(dto.Name)
		existing.Description = dto.Description
		existing.ContentType = dto.ContentType
		existing.Stages = stages
		existing.DepartmentID = normalizeRef(dto.DepartmentID)
		existing.CollegeID = normalizeRef(dto.CollegeID)

		if err := s.fillCollege(ctx, existing); err != nil {
			return err
		}
		// The actor must also be allowed to manage the new scope.
		if err := s.authorizeManage(actor, existing); err != nil {
			return err
		}
		if existing.IsActive {
			if err := s.checkAmbiguity(ctx, tx, existing); err != nil {
				return err
			}
		}

		if err := tx.Save(existing).Error; err != nil {
			return fmt.Errorf("failed to update workflow definition: %w", err)
		}
		def = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "workflow definition updated", "workflowId", def.ID)
	return def, nil
}

// Delete removes a workflow definition.
func (s *WorkflowDefinitionService) Delete(ctx context.Context, actor *auth.Principal, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.getInTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := s.authorizeManage(actor, existing); err != nil {
			return err
		}
		if err := tx.Delete(&model.WorkflowDefinition{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete workflow definition: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "workflow definition deleted", "workflowId", id)
	return nil
}

// ToggleActive switches a definition on or off. Activating re-runs the ambiguity check.
func (s *WorkflowDefinitionService) ToggleActive(ctx context.Context, actor *auth.Principal, id uuid.UUID, active bool) (*model.WorkflowDefinition, error) {
	var def *model.WorkflowDefinition
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.getInTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := s.authorizeManage(actor, existing); err != nil {
			return err
		}
		if existing.IsActive == active {
			def = existing
			return nil
		}

		existing.IsActive = active
		if active {
			if err := s.checkAmbiguity(ctx, tx, existing); err != nil {
				return err
			}
		}
		if err := tx.Model(existing).Update("is_active", active).Error; err != nil {
			return fmt.Errorf("failed to toggle workflow definition: %w", err)
		}
		def = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "workflow definition toggled", "workflowId", def.ID, "isActive", def.IsActive)
	return def, nil
}

// ListCandidates returns active definitions whose content type and scope could
// apply to a submission. Ranking is done by the WorkflowSelector.
func (s *WorkflowDefinitionService) ListCandidates(ctx context.Context, contentType model.ContentType, departmentID, collegeID string) ([]model.WorkflowDefinition, error) {
	query := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("content_type IN ?", []model.ContentType{contentType, model.ContentTypeAny})

	scope := s.db.Where("(department_id IS NULL OR department_id = '') AND (college_id IS NULL OR college_id = '')")
	if departmentID != "" {
		scope = scope.Or("department_id = ?", departmentID)
	}
	if collegeID != "" {
		scope = scope.Or("(department_id IS NULL OR department_id = '') AND college_id = ?", collegeID)
	}

	var defs []model.WorkflowDefinition
	if err := query.Where(scope).Find(&defs).Error; err != nil {
		return nil, fmt.Errorf("failed to query workflow candidates: %w", err)
	}
	return defs, nil
}

// FindApplicable returns the best-matching active definition, or a NotFound error.
func (s *WorkflowDefinitionService) FindApplicable(ctx context.Context, contentType model.ContentType, departmentID, collegeID string) (*model.WorkflowDefinition, error) {
	return NewWorkflowSelector(s).Resolve(ctx, contentType, departmentID, collegeID)
}

// checkAmbiguity rejects a definition that would tie with another active one
// in the selector: same content type and the same scope.
func (s *WorkflowDefinitionService) checkAmbiguity(_ context.Context, tx *gorm.DB, def *model.WorkflowDefinition) error {
	query := tx.Model(&model.WorkflowDefinition{}).
		Where("is_active = ?", true).
		Where("content_type = ?", def.ContentType)
	if def.ID != uuid.Nil {
		query = query.Where("id <> ?", def.ID)
	}

	switch def.Scope() {
	case model.ScopeDepartment:
		query = query.Where("department_id = ?", *def.DepartmentID)
	case model.ScopeCollege:
		query = query.Where("(department_id IS NULL OR department_id = '') AND college_id = ?", *def.CollegeID)
	default:
		query = query.Where("(department_id IS NULL OR department_id = '') AND (college_id IS NULL OR college_id = '')")
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check for overlapping workflows: %w", err)
	}
	if count > 0 {
		return apperr.Conflict("an active %s workflow already exists for this scope", def.ContentType)
	}
	return nil
}

// fillCollege resolves the parent college of a department-scoped definition.
func (s *WorkflowDefinitionService) fillCollege(ctx context.Context, def *model.WorkflowDefinition) error {
	if def.Scope() != model.ScopeDepartment || def.CollegeID != nil || s.directory == nil {
		return nil
	}
	college, err := s.directory.CollegeForDepartment(ctx, *def.DepartmentID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return apperr.Validation("department %s is not registered", *def.DepartmentID)
		}
		return err
	}
	def.CollegeID = &college
	return nil
}

// authorizeManage checks that the actor may author definitions at def's scope.
func (s *WorkflowDefinitionService) authorizeManage(actor *auth.Principal, def *model.WorkflowDefinition) error {
	if actor == nil {
		return apperr.Authorization("authentication required")
	}

	switch actor.Role {
	case auth.RoleAdmin:
		return nil
	case auth.RoleCollegeAdmin:
		if actor.College() != "" && def.Scope() != model.ScopeGlobal &&
			def.CollegeID != nil && *def.CollegeID == actor.College() {
			return nil
		}
	case auth.RoleDepartmentAdmin:
		if actor.Department() != "" && def.Scope() == model.ScopeDepartment &&
			*def.DepartmentID == actor.Department() {
			return nil
		}
	}
	return apperr.Authorization("role %q cannot manage workflows at this scope", actor.Role)
}

// normalizeStages validates stage templates and returns them sorted by order
// with trimmed, de-duplicated role sets.
func normalizeStages(stages []model.StageTemplate) ([]model.StageTemplate, error) {
	if len(stages) == 0 {
		return nil, apperr.Validation("workflow must have at least one stage")
	}

	seenOrders := make(map[int]string, len(stages))
	out := make([]model.StageTemplate, 0, len(stages))
	for i, st := range stages {
		name := strings.TrimSpace(st.Name)
		if name == "" {
			return nil, apperr.Validation("stage %d: name is required", i)
		}
		if other, dup := seenOrders[st.Order]; dup {
			return nil, apperr.Validation("stages %q and %q share order %d", other, name, st.Order)
		}
		seenOrders[st.Order] = name

		roles := make([]string, 0, len(st.RequiredRoles))
		for _, r := range st.RequiredRoles {
			r = strings.TrimSpace(r)
			if r != "" && !slices.Contains(roles, r) {
				roles = append(roles, r)
			}
		}
		if len(roles) == 0 {
			return nil, apperr.Validation("stage %q must require at least one role", name)
		}

		out = append(out, model.StageTemplate{
			Name:          name,
			Order:         st.Order,
			RequiredRoles: roles,
			RequireAll:    st.RequireAll,
			Description:   st.Description,
		})
	}

	slices.SortStableFunc(out, func(a, b model.StageTemplate) int { return a.Order - b.Order })
	return out, nil
}

func normalizeRef(ref *string) *string {
	if ref == nil {
		return nil
	}
	v := strings.TrimSpace(*ref)
	if v == "" {
		return nil
	}
	return &v
}
