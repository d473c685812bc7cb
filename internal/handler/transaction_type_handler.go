package handler

import (
	"net/http"

	"chargedesk/internal/service"
	"chargedesk/pkg/pagination"
	"chargedesk/pkg/response"

	"github.com/gin-gonic/gin"
)

type TransactionTypeHandler struct {
	typeService service.TransactionTypeService
}

func NewTransactionTypeHandler(typeService service.TransactionTypeService) *TransactionTypeHandler {
	return &TransactionTypeHandler{typeService: typeService}
}

// RegisterPublicRoutes mounts the unauthenticated v1 catalogue.
func (h *TransactionTypeHandler) RegisterPublicRoutes(router *gin.RouterGroup) {
	v1 := router.Group("/v1/transaction-types")
	{
		v1.GET("", h.ListPublic)
		v1.POST("", h.CreatePublic)
	}
}

func (h *TransactionTypeHandler) RegisterRoutes(router *gin.RouterGroup) {
	types := router.Group("/api/transaction-types")
	{
		types.GET("", h.List)
		types.GET("/:id", h.Get)
		types.POST("", h.Create)
		types.PUT("/:id", h.Update)
		types.DELETE("/:id", h.Delete)
	}
}

// ListPublic returns active types with their active approved ranges
// @Summary      List transaction types with charges
// @Tags         v1
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.TransactionTypeWithRanges}
// @Router       /v1/transaction-types [get]
func (h *TransactionTypeHandler) ListPublic(c *gin.Context) {
	types, err := h.typeService.ListActiveWithRanges(c.Request.Context())
	if err != nil {
		respondPublicError(c, http.StatusInternalServerError, "", err)
		return
	}
	c.JSON(http.StatusOK, response.Public(types))
}

// CreatePublic registers a transaction type
// @Summary      Create a transaction type
// @Tags         v1
// @Accept       json
// @Produce      json
// @Param        body  body      service.CreateTransactionTypeRequest  true  "Transaction type"
// @Success      201   {object}  response.Response{data=service.TransactionTypeResponse}
// @Failure      422   {object}  response.Response  "Missing fields or duplicate code"
// @Router       /v1/transaction-types [post]
func (h *TransactionTypeHandler) CreatePublic(c *gin.Context) {
	var req service.CreateTransactionTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondPublicError(c, http.StatusBadRequest, "", bindError(err))
		return
	}

	tt, err := h.typeService.Create(c.Request.Context(), nil, req)
	if err != nil {
		respondPublicError(c, http.StatusInternalServerError, "", err)
		return
	}
	c.JSON(http.StatusCreated, response.Public(tt))
}

func (h *TransactionTypeHandler) List(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	p := pagination.Parse(c)

	types, total, err := h.typeService.List(c.Request.Context(), actor, p.Page, p.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, pagination.NewPage(types, total, p)))
}

func (h *TransactionTypeHandler) Get(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	tt, err := h.typeService.Get(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tt))
}

// Create is the back-office variant of CreatePublic and checks
// create_transaction_type.
func (h *TransactionTypeHandler) Create(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req service.CreateTransactionTypeRequest
	if !bindJSON(c, &req) {
		return
	}

	tt, err := h.typeService.Create(c.Request.Context(), &actor, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, tt))
}

func (h *TransactionTypeHandler) Update(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req service.UpdateTransactionTypeRequest
	if !bindJSON(c, &req) {
		return
	}

	tt, err := h.typeService.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, tt))
}

// Delete refuses with 409 while the type still has charge ranges
func (h *TransactionTypeHandler) Delete(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.typeService.Delete(c.Request.Context(), actor, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"deleted": id.String()}))
}
