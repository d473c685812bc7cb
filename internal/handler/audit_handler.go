package handler

import (
	"net/http"

	"chargedesk/internal/service"
	"chargedesk/pkg/pagination"
	"chargedesk/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/audit-logs")
	{
		group.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs retrieves paginated audit records, newest first
// @Summary      Get audit logs
// @Description  Lists who changed the charge schedule and when
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        entity_id  query     string  false  "Charge range or transaction type ID"
// @Param        action     query     string  false  "Action, e.g. CEO_APPROVE_CHARGE_RANGE"
// @Param        user_id    query     string  false  "Acting user ID"
// @Param        from       query     string  false  "First day, YYYY-MM-DD"
// @Param        to         query     string  false  "Last day, YYYY-MM-DD"
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Number of items per page (default 20)"
// @Success      200        {object}  response.Response{data=pagination.Page}
// @Failure      422        {object}  response.Response  "Malformed filter"
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)
	q := service.AuditQuery{
		EntityID: c.Query("entity_id"),
		Action:   c.Query("action"),
		UserID:   c.Query("user_id"),
		From:     c.Query("from"),
		To:       c.Query("to"),
	}

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), actor, q, p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, pagination.NewPage(logs, total, p)))
}
