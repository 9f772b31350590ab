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

type ApprovalRouter struct {
	as *service.ApprovalRequestService
}

func NewApprovalRouter(as *service.ApprovalRequestService) *ApprovalRouter {
	return &ApprovalRouter{as: as}
}

func (ar *ApprovalRouter) RegisterRoutes(rg *gin.RouterGroup) {
	approvals := rg.Group("/approvals", auth.RequireAuth())

	approvals.POST("", auth.RequireRole(auth.RoleStudent), ar.HandleSubmitApprovalRequest)
	approvals.GET("", ar.HandleListApprovalRequests)
	approvals.GET("/:id", ar.HandleGetApprovalRequest)
	approvals.POST("/:id/actions", ar.HandleActOnApprovalRequest)
	approvals.DELETE("/:id", auth.RequireRole(auth.RoleStudent), ar.HandleCancelApprovalRequest)
}

// HandleSubmitApprovalRequest handles POST /api/v1/approvals
// Request body: SubmitApprovalRequestDTO
// Response: the created ApprovalRequest
func (ar *ApprovalRouter) HandleSubmitApprovalRequest(c *gin.Context) {
	var req model.SubmitApprovalRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	created, err := ar.as.Submit(c.Request.Context(), auth.GetPrincipal(c.Request.Context()), &req)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// HandleListApprovalRequests handles GET /api/v1/approvals
// Optional Query Filters: status, contentType, studentId, pendingOnMe, offset, limit
func (ar *ApprovalRouter) HandleListApprovalRequests(c *gin.Context) {
	var filter model.ApprovalRequestFilter

	if raw := c.Query("status"); raw != "" {
		status := model.RequestStatus(raw)
		switch status {
		case model.RequestStatusPending, model.RequestStatusInProgress, model.RequestStatusApproved, model.RequestStatusRejected:
		default:
			httpx.BadRequest(c, "invalid 'status' query parameter")
			return
		}
		filter.Status = &status
	}
	if raw := c.Query("contentType"); raw != "" {
		ct, err := model.ParseContentType(raw)
		if err != nil || !ct.IsConcrete() {
			httpx.BadRequest(c, "invalid 'contentType' query parameter")
			return
		}
		filter.ContentType = &ct
	}
	if v := c.Query("studentId"); v != "" {
		filter.StudentID = &v
	}
	if raw := c.Query("pendingOnMe"); raw != "" {
		pending, err := strconv.ParseBool(raw)
		if err != nil {
			httpx.BadRequest(c, "invalid 'pendingOnMe' query parameter, must be a boolean")
			return
		}
		filter.PendingOnMe = pending
	}

	offset, limit, err := httpx.Pagination(c)
	if err != nil {
		httpx.BadRequest(c, err.Error())
		return
	}
	filter.Offset, filter.Limit = offset, limit

	result, err := ar.as.List(c.Request.Context(), auth.GetPrincipal(c.Request.Context()), filter)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleGetApprovalRequest handles GET /api/v1/approvals/:id
func (ar *ApprovalRouter) HandleGetApprovalRequest(c *gin.Context) {
	id, ok := httpx.UUIDParam(c, "id")
	if !ok {
		return
	}

	req, err := ar.as.Get(c.Request.Context(), auth.GetPrincipal(c.Request.Context()), id)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// HandleActOnApprovalRequest handles POST /api/v1/approvals/:id/actions
// Request body: ActOnApprovalRequestDTO
// Response: the updated ApprovalRequest
func (ar *ApprovalRouter) HandleActOnApprovalRequest(c *gin.Context) {
	id, ok := httpx.UUIDParam(c, "id")
	if !ok {
		return
	}

	var req model.ActOnApprovalRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	updated, err := ar.as.Act(c.Request.Context(), auth.GetPrincipal(c.Request.Context()), id, &req)
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// HandleCancelApprovalRequest handles DELETE /api/v1/approvals/:id
func (ar *ApprovalRouter) HandleCancelApprovalRequest(c *gin.Context) {
	id, ok := httpx.UUIDParam(c, "id")
	if !ok {
		return
	}

	if err := ar.as.Cancel(c.Request.Context(), auth.GetPrincipal(c.Request.Context()), id); err != nil {
		httpx.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
