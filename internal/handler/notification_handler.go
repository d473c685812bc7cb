package handler

import (
	"net/http"

	"chargedesk/internal/service"
	"chargedesk/pkg/pagination"
	"chargedesk/pkg/response"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notificationService service.NotificationService
}

func NewNotificationHandler(notificationService service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

func (h *NotificationHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/notifications")
	{
		group.GET("", h.List)
		group.PATCH("/:id/read", h.MarkRead)
	}
}

// List returns the caller's inbox
// @Summary      List notifications
// @Tags         notifications
// @Security     BearerAuth
// @Produce      json
// @Param        unread  query     bool  false  "Only unread"
// @Param        page    query     int   false  "Page number (default 1)"
// @Param        limit   query     int   false  "Items per page (default 20)"
// @Success      200     {object}  response.Response{data=pagination.Page}
// @Router       /api/notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)
	unread := c.Query("unread") == "true"

	items, total, err := h.notificationService.List(c.Request.Context(), actor, unread, p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, pagination.NewPage(items, total, p)))
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.notificationService.MarkRead(c.Request.Context(), actor, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"read": id.String()}))
}
