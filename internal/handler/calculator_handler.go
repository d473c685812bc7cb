package handler

import (
	"errors"
	"net/http"

	"chargedesk/internal/apperror"
	"chargedesk/internal/service"
	"chargedesk/pkg/response"

	"github.com/gin-gonic/gin"
)

const calculateFailurePrefix = "Unable to calculate charges. "

type CalculatorHandler struct {
	calculator service.CalculatorService
}

func NewCalculatorHandler(calculator service.CalculatorService) *CalculatorHandler {
	return &CalculatorHandler{calculator: calculator}
}

func (h *CalculatorHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/v1/calculate-charges", h.Calculate)
}

// Calculate returns the service charge and government tax for an amount
// @Summary      Calculate charges
// @Description  Selects the active approved range of the transaction type covering the amount and computes charge and tax
// @Tags         v1
// @Accept       json
// @Produce      json
// @Param        body  body      service.CalculateRequest  true  "Transaction type code and amount"
// @Success      200   {object}  response.Response{data=service.ChargeBreakdown}
// @Failure      400   {object}  response.Response  "Inactive type or no matching range"
// @Failure      422   {object}  response.Response  "Validation failure"
// @Router       /v1/calculate-charges [post]
func (h *CalculatorHandler) Calculate(c *gin.Context) {
	var req service.CalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondPublicError(c, http.StatusBadRequest, "", bindError(err))
		return
	}

	breakdown, err := h.calculator.Calculate(c.Request.Context(), req.TransactionType, *req.Amount)
	if err != nil {
		respondPublicError(c, http.StatusBadRequest, calculateFailurePrefix, err)
		return
	}
	c.JSON(http.StatusOK, response.Public(breakdown))
}

// respondPublicError writes the v1 envelope: 422 with field errors for
// validation failures, otherwise fallback with prefix and the public message.
func respondPublicError(c *gin.Context, fallback int, prefix string, err error) {
	var appErr *apperror.Error
	if errors.As(err, &appErr) && appErr.Kind == apperror.KindValidation {
		c.JSON(http.StatusUnprocessableEntity, response.ValidationError(appErr.Fields))
		return
	}

	c.JSON(fallback, response.PublicError(prefix+apperror.PublicMessage(err)))
}
