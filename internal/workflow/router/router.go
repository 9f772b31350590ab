package router

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/auth"
	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/httpx"
	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/workflow/model"
	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/workflow/service"
)

// WorkflowRouter exposes workflow definition management.
type WorkflowRouter struct {
	ds *service.WorkflowDefinitionService
}

func NewWorkflowRouter(ds *service.WorkflowDefinitionService) *WorkflowRouter {
	return &WorkflowRouter{ds: ds}
}

// RegisterRoutes mounts the workflow routes. Reads are open to any
// authenticated principal; writes require an administrative role.
func (wr *WorkflowRouter) RegisterRoutes(rg *gin.RouterGroup) {
	workflows := rg.Group("/workflows", auth.RequireAuth())
	manage := auth.RequireRole(auth.RoleAdmin, auth.RoleCollegeAdmin, auth.RoleDepartmentAdmin)

	workflows.POST("", manage, wr.HandleCreateWorkflow)
	workflows.GET("", wr.HandleListWorkflows)
	workflows.GET("/:id", wr.HandleGetWorkflow)
	workflows.PUT("/:id", manage, wr.HandleUpdateWorkflow)
	workflows.DELETE("/:id", manage, wr.HandleDeleteWorkflow)
	workflows.PATCH("/:id/active", manage, wr.HandleToggleWorkflowActive)
}

// HandleCreateWorkflow handles POST /api/v1/workflows
// Request body: CreateWorkflowDefinitionDTO
func (wr *WorkflowRouter) HandleCreateWorkflow(c *gin.Context) {
	var req model.CreateWorkflowDefinitionDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	def, err := wr.ds.Create(c.Request.Context(), auth.GetPrincipal(c.Request.Context()), &req)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, def)
}

// HandleListWorkflows handles GET /api/v1/workflows
// Optional Query Filters: contentType, departmentId, collegeId, isActive, offset, limit
func (wr *WorkflowRouter) HandleListWorkflows(c *gin.Context) {
	var filter model.WorkflowDefinitionFilter

	if raw := c.Query("contentType"); raw != "" {
		ct, err := model.ParseContentType(raw)
		if err != nil {
			httpx.BadRequest(c, err.Error())
			return
		}
		filter.ContentType = &ct
	}
	if v := c.Query("departmentId"); v != "" {
		filter.DepartmentID = &v
	}
	if v := c.Query("collegeId"); v != "" {
		filter.CollegeID = &v
	}
	if raw := c.Query("isActive"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			httpx.BadRequest(c, "invalid 'isActive' query parameter, must be a boolean")
			return
		}
		filter.IsActive = &active
	}

	offset, limit, err := httpx.Pagination(c)
	if err != nil {
		httpx.BadRequest(c, err.Error())
		return
	}
	filter.Offset, filter.Limit = offset, limit

	result, err := wr.ds.List(c.Request.Context(), filter)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleGetWorkflow handles GET /api/v1/workflows/:id
func (wr *WorkflowRouter) HandleGetWorkflow(c *gin.Context) {
	id, ok := httpx.UUIDParam(c, "id")
	if !ok {
		return
	}

	def, err := wr.ds.Get(c.Request.Context(), id)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, def)
}

// HandleUpdateWorkflow handles PUT /api/v1/workflows/:id
// Request body: UpdateWorkflowDefinitionDTO
func (wr *WorkflowRouter) HandleUpdateWorkflow(c *gin.Context) {
	id, ok := httpx.UUIDParam(c, "id")
	if !ok {
		return
	}

	var req model.UpdateWorkflowDefinitionDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	def, err := wr.ds.Update(c.Request.Context(), auth.GetPrincipal(c.Request.Context()), id, &req)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, def)
}

// HandleDeleteWorkflow handles DELETE /api/v1/workflows/:id
func (wr *WorkflowRouter) HandleDeleteWorkflow(c *gin.Context) {
	id, ok := httpx.UUIDParam(c, "id")
	if !ok {
		return
	}

	if err := wr.ds.Delete(c.Request.Context(), auth.GetPrincipal(c.Request.Context()), id); err != nil {
		httpx.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleToggleWorkflowActive handles PATCH /api/v1/workflows/:id/active
// Request body: {"isActive": bool}
func (wr *WorkflowRouter) HandleToggleWorkflowActive(c *gin.Context) {
	id, ok := httpx.UUIDParam(c, "id")
	if !ok {
		return
	}

	var req model.ToggleWorkflowActiveDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	def, err := wr.ds.ToggleActive(c.Request.Context(), auth.GetPrincipal(c.Request.Context()), id, *req.IsActive)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, def)
}
