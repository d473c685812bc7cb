package handler

import (
	"errors"
	"net/http"

	"chargedesk/internal/apperror"
	"chargedesk/internal/logger"
	"chargedesk/internal/middleware"
	"chargedesk/pkg/response"
	"chargedesk/pkg/validation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// respondError writes err with the status its kind maps to. Validation
// failures carry their per-field messages.
func respondError(c *gin.Context, err error) {
	status := apperror.HTTPStatus(err)

	var appErr *apperror.Error
	if errors.As(err, &appErr) && appErr.Kind == apperror.KindValidation {
		resp := response.ValidationError(appErr.Fields)
		resp.StatusCode = status
		resp.Message = appErr.Message
		c.JSON(status, resp)
		return
	}

	if status >= http.StatusInternalServerError {
		logger.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, response.Error(status, apperror.PublicMessage(err)))
}

// bindJSON decodes the body into req. On failure it writes a 422 and returns false.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, bindError(err))
		return false
	}
	return true
}

func bindError(err error) error {
	fields, ok := validation.Fields(err)
	if !ok {
		fields = map[string][]string{"body": {"The request body is invalid."}}
	}
	return apperror.Validation(fields)
}

func requireActor(c *gin.Context) (uuid.UUID, bool) {
	actor, ok := middleware.ActorID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
		return uuid.Nil, false
	}
	return actor, true
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid id"))
		return uuid.Nil, false
	}
	return id, true
}
