package model

// StageTemplate is one ordered step of a workflow definition.
type StageTemplate struct {
	Name          string   `json:"name"`
	Order         int      `json:"order"`
	RequiredRoles []string `json:"requiredRoles"`
	RequireAll    bool     `json:"requireAll"`
	Description   string   `json:"description,omitempty"`
}

// WorkflowDefinition is a reusable approval template for a content kind and organizational scope.
type WorkflowDefinition struct {
	BaseModel
	Name         string          `gorm:"type:varchar(255);column:name;not null" json:"name"`                        // Display name of the workflow
	Description  string          `gorm:"type:text;column:description" json:"description"`                           // Optional description
	ContentType  ContentType     `gorm:"type:varchar(50);column:content_type;not null;index" json:"contentType"`    // Content kind, or "any"
	Stages       []StageTemplate `gorm:"type:jsonb;column:stages;not null;serializer:json" json:"stages"`           // Ordered stage templates
	IsActive     bool            `gorm:"column:is_active;not null" json:"isActive"`                                 // Only active definitions are selectable
	DepartmentID *string         `gorm:"type:varchar(100);column:department_id;index" json:"departmentId,omitempty"` // Department scope; takes precedence over college scope
	CollegeID    *string         `gorm:"type:varchar(100);column:college_id;index" json:"collegeId,omitempty"`       // College scope
	CreatedBy    string          `gorm:"type:varchar(100);column:created_by;not null" json:"createdBy"`             // Principal that authored the definition
}

func (wd *WorkflowDefinition) TableName() string {
	return "workflow_definitions"
}

// ScopeLevel describes how specific a definition's organizational scope is.
type ScopeLevel int

const (
	ScopeGlobal ScopeLevel = iota
	ScopeCollege
	ScopeDepartment
)

// Scope returns the organizational level of the definition.
func (wd *WorkflowDefinition) Scope() ScopeLevel {
	switch {
	case wd.DepartmentID != nil && *wd.DepartmentID != "":
		return ScopeDepartment
	case wd.CollegeID != nil && *wd.CollegeID != "":
		return ScopeCollege
	default:
		return ScopeGlobal
	}
}

// CreateWorkflowDefinitionDTO is the payload for creating a workflow definition.
type CreateWorkflowDefinitionDTO struct {
	Name         string          `json:"name" binding:"required"`
	Description  string          `json:"description"`
	ContentType  ContentType     `json:"contentType" binding:"required"`
	Stages       []StageTemplate `json:"stages" binding:"required"`
	IsActive     *bool           `json:"isActive,omitempty"` // Defaults to true
	DepartmentID *string         `json:"departmentId,omitempty"`
	CollegeID    *string         `json:"collegeId,omitempty"`
}

// UpdateWorkflowDefinitionDTO replaces the editable fields of a workflow definition.
// In-flight requests keep the stages they were created with.
type UpdateWorkflowDefinitionDTO struct {
	Name         string          `json:"name" binding:"required"`
	Description  string          `json:"description"`
	ContentType  ContentType     `json:"contentType" binding:"required"`
	Stages       []StageTemplate `json:"stages" binding:"required"`
	DepartmentID *string         `json:"departmentId,omitempty"`
	CollegeID    *string         `json:"collegeId,omitempty"`
}

// ToggleWorkflowActiveDTO switches a definition on or off.
type ToggleWorkflowActiveDTO struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

// WorkflowDefinitionFilter narrows listWorkflows results.
type WorkflowDefinitionFilter struct {
	ContentType  *ContentType
	DepartmentID *string
	CollegeID    *string
	IsActive     *bool
	Offset       *int
	Limit        *int
}

// WorkflowDefinitionListResult is a page of workflow definitions.
type WorkflowDefinitionListResult struct {
	TotalCount int64                `json:"totalCount"`
	Items      []WorkflowDefinition `json:"items"`
	Offset     int                  `json:"offset"`
	Limit      int                  `json:"limit"`
}
