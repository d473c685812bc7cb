package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"chargedesk/internal/service"
	"chargedesk/pkg/pagination"
	"chargedesk/pkg/response"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ToggleActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

type ChargeRangeHandler struct {
	chargeRangeService service.ChargeRangeService
	exportService      service.ExportService
}

func NewChargeRangeHandler(chargeRangeService service.ChargeRangeService, exportService service.ExportService) *ChargeRangeHandler {
	return &ChargeRangeHandler{chargeRangeService: chargeRangeService, exportService: exportService}
}

func (h *ChargeRangeHandler) RegisterRoutes(router *gin.RouterGroup) {
	ranges := router.Group("/api/charge-ranges")
	{
		ranges.GET("", h.List)
		ranges.GET("/export", h.Export)
		ranges.GET("/:id", h.Get)
		ranges.POST("", h.Create)
		ranges.PUT("/:id", h.Update)
		ranges.DELETE("/:id", h.Delete)
		ranges.PATCH("/:id/toggle-active", h.ToggleActive)
	}
}

func chargeRangeQuery(c *gin.Context) (service.ChargeRangeQuery, bool) {
	p := pagination.Parse(c)
	q := service.ChargeRangeQuery{
		TransactionTypeID: c.Query("transaction_type_id"),
		ApprovalStatus:    c.Query("approval_status"),
		Page:              p.Page,
		Limit:             p.Limit,
	}
	if raw := c.Query("is_active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "is_active must be true or false"))
			return q, false
		}
		q.IsActive = &active
	}
	return q, true
}

// List returns charge ranges filtered by type, status and active flag
// @Summary      List charge ranges
// @Tags         charge-ranges
// @Security     BearerAuth
// @Produce      json
// @Param        transaction_type_id  query  string  false  "Transaction type ID"
// @Param        approval_status      query  string  false  "draft, pending_finance, pending_ceo, approved, rejected"
// @Param        is_active            query  bool    false  "Active flag"
// @Param        page                 query  int     false  "Page number (default 1)"
// @Param        limit                query  int     false  "Items per page (default 20)"
// @Success      200  {object}  response.Response{data=pagination.Page}
// @Router       /api/charge-ranges [get]
func (h *ChargeRangeHandler) List(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	q, ok := chargeRangeQuery(c)
	if !ok {
		return
	}

	items, total, err := h.chargeRangeService.List(c.Request.Context(), actor, q)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, pagination.NewPage(items, total, pagination.Params{Page: q.Page, Limit: q.Limit})))
}

func (h *ChargeRangeHandler) Get(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	cr, err := h.chargeRangeService.Get(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, cr))
}

// Create adds a draft charge range
// @Summary      Create a charge range
// @Tags         charge-ranges
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body      service.ChargeRangeRequest  true  "Charge range"
// @Success      201   {object}  response.Response{data=service.ChargeRangeResponse}
// @Failure      422   {object}  response.Response
// @Router       /api/charge-ranges [post]
func (h *ChargeRangeHandler) Create(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req service.ChargeRangeRequest
	if !bindJSON(c, &req) {
		return
	}

	cr, err := h.chargeRangeService.Create(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, cr))
}

// Update edits a draft or rejected charge range
// @Summary      Update a charge range
// @Tags         charge-ranges
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id    path      string                      true  "Charge range ID"
// @Param        body  body      service.ChargeRangeRequest  true  "Charge range"
// @Success      200   {object}  response.Response{data=service.ChargeRangeResponse}
// @Failure      409   {object}  response.Response  "Not editable"
// @Router       /api/charge-ranges/{id} [put]
func (h *ChargeRangeHandler) Update(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.ChargeRangeRequest
	if !bindJSON(c, &req) {
		return
	}

	cr, err := h.chargeRangeService.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, cr))
}

func (h *ChargeRangeHandler) Delete(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.chargeRangeService.Delete(c.Request.Context(), actor, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": id.String()}))
}

// ToggleActive switches an approved range on or off
// @Summary      Activate or deactivate an approved charge range
// @Tags         charge-ranges
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id    path      string               true  "Charge range ID"
// @Param        body  body      ToggleActiveRequest  true  "Target state"
// @Success      200   {object}  response.Response{data=service.ChargeRangeResponse}
// @Failure      409   {object}  response.Response  "Not approved or overlapping"
// @Router       /api/charge-ranges/{id}/toggle-active [patch]
func (h *ChargeRangeHandler) ToggleActive(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req ToggleActiveRequest
	if !bindJSON(c, &req) {
		return
	}

	cr, err := h.chargeRangeService.SetActive(c.Request.Context(), actor, id, *req.IsActive)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, cr))
}

// Export streams the filtered schedule as an xlsx workbook
// @Summary      Export charge ranges
// @Tags         charge-ranges
// @Security     BearerAuth
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success      200
// @Router       /api/charge-ranges/export [get]
func (h *ChargeRangeHandler) Export(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	q, ok := chargeRangeQuery(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.exportService.ExportChargeRanges(c.Request.Context(), actor, q, &buf); err != nil {
		respondError(c, err)
		return
	}

	fileName := fmt.Sprintf("charge_ranges_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Header("Content-Disposition", "attachment; filename="+fileName)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
