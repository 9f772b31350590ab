package portfolio

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/auth"
	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/httpx"
)

type Router struct {
	projector *Projector
}

func NewRouter(projector *Projector) *Router {
	return &Router{projector: projector}
}

// RegisterRoutes mounts the portfolio routes. Reads are public; rebuilds are admin only.
func (r *Router) RegisterRoutes(rg *gin.RouterGroup) {
	portfolios := rg.Group("/portfolios")
	portfolios.GET("/:studentId", r.HandleGetPortfolio)
	portfolios.POST("/:studentId/rebuild", auth.RequireAuth(), auth.RequireRole(auth.RoleAdmin), r.HandleRebuildPortfolio)
}

// HandleGetPortfolio handles GET /api/v1/portfolios/:studentId
func (r *Router) HandleGetPortfolio(c *gin.Context) {
	pf, err := r.projector.Get(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, pf)
}

// HandleRebuildPortfolio handles POST /api/v1/portfolios/:studentId/rebuild
func (r *Router) HandleRebuildPortfolio(c *gin.Context) {
	pf, err := r.projector.Rebuild(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		httpx.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, pf)
}
