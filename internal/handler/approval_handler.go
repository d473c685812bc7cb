package handler

import (
	"context"
	"net/http"

	"chargedesk/internal/service"
	"chargedesk/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type RejectRequest struct {
	Reason string `json:"rejection_reason" binding:"required"`
}

type ApprovalHandler struct {
	approvalService service.ApprovalService
}

func NewApprovalHandler(approvalService service.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{approvalService: approvalService}
}

func (h *ApprovalHandler) RegisterRoutes(router *gin.RouterGroup) {
	ranges := router.Group("/api/charge-ranges")
	{
		ranges.POST("/:id/submit", h.Submit)
		ranges.POST("/:id/approve-finance", h.ApproveFinance)
		ranges.POST("/:id/approve-ceo", h.ApproveCEO)
		ranges.POST("/:id/reject", h.Reject)
	}
}

type transitionFunc func(ctx context.Context, actor uuid.UUID, id uuid.UUID) (*service.ChargeRangeResponse, error)

func (h *ApprovalHandler) run(c *gin.Context, fn transitionFunc) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	result, err := fn(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// Submit sends a draft range to finance
// @Summary      Submit a charge range for approval
// @Tags         approvals
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Charge range ID"
// @Success      200  {object}  response.Response{data=service.ChargeRangeResponse}
// @Failure      403  {object}  response.Response
// @Failure      409  {object}  response.Response  "Not in draft"
// @Router       /api/charge-ranges/{id}/submit [post]
func (h *ApprovalHandler) Submit(c *gin.Context) {
	h.run(c, h.approvalService.Submit)
}

// ApproveFinance moves a pending_finance range to pending_ceo
// @Summary      Finance approval
// @Tags         approvals
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Charge range ID"
// @Success      200  {object}  response.Response{data=service.ChargeRangeResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/charge-ranges/{id}/approve-finance [post]
func (h *ApprovalHandler) ApproveFinance(c *gin.Context) {
	h.run(c, h.approvalService.ApproveByFinance)
}

// ApproveCEO approves and activates a pending_ceo range
// @Summary      CEO approval
// @Tags         approvals
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Charge range ID"
// @Success      200  {object}  response.Response{data=service.ChargeRangeResponse}
// @Failure      409  {object}  response.Response  "Wrong state or overlapping range"
// @Router       /api/charge-ranges/{id}/approve-ceo [post]
func (h *ApprovalHandler) ApproveCEO(c *gin.Context) {
	h.run(c, h.approvalService.ApproveByCEO)
}

// Reject returns a pending range to its creator with a reason
// @Summary      Reject a charge range
// @Tags         approvals
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id    path      string         true  "Charge range ID"
// @Param        body  body      RejectRequest  true  "Rejection reason"
// @Success      200   {object}  response.Response{data=service.ChargeRangeResponse}
// @Failure      422   {object}  response.Response
// @Router       /api/charge-ranges/{id}/reject [post]
func (h *ApprovalHandler) Reject(c *gin.Context) {
	var req RejectRequest
	if !bindJSON(c, &req) {
		return
	}
	h.run(c, func(ctx context.Context, actor uuid.UUID, id uuid.UUID) (*service.ChargeRangeResponse, error) {
		return h.approvalService.Reject(ctx, actor, id, req.Reason)
	})
}
