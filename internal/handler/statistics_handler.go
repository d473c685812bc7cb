package handler

import (
	"net/http"

	"chargedesk/internal/service"
	"chargedesk/pkg/response"

	"github.com/gin-gonic/gin"
)

type StatisticsHandler struct {
	statisticsService service.StatisticsService
}

func NewStatisticsHandler(statisticsService service.StatisticsService) *StatisticsHandler {
	return &StatisticsHandler{statisticsService: statisticsService}
}

func (h *StatisticsHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/api/dashboard/stats", h.GetStats)
}

// @Summary      Get Dashboard Statistics
// @Description  Counts of transaction types and charge ranges by approval status
// @Tags         Statistics
// @Produce      json
// @Success      200 {object} response.Response{data=service.DashboardStats}
// @Failure      401 {object} response.Response "Unauthorized"
// @Failure      403 {object} response.Response "Forbidden"
// @Security     BearerAuth
// @Router       /api/dashboard/stats [get]
func (h *StatisticsHandler) GetStats(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	stats, err := h.statisticsService.GetDashboardStats(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}
