package handlers

import (
	"net/http"

	"attempt-service/internal/dto"
	"attempt-service/internal/service"

	"github.com/gin-gonic/gin"
)

type AnalyticsHandler struct {
	analytics *service.AnalyticsService
}

func NewAnalyticsHandler(analytics *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

func (h *AnalyticsHandler) Performance(c *gin.Context) {
	userID := c.GetString("user_id")
	timeframe := c.DefaultQuery("timeframe", service.TimeframeAll)
	subjectID := c.Query("subject_id")

	report, err := h.analytics.Performance(c.Request.Context(), userID, timeframe, subjectID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *AnalyticsHandler) Progress(c *gin.Context) {
	userID := c.GetString("user_id")
	subjectID := c.Query("subject_id")
	if subjectID == "" {
		dto.JsonError(c, http.StatusBadRequest, "subject_id is required")
		return
	}

	progress, err := h.analytics.Progress(c.Request.Context(), userID, subjectID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}

func (h *AnalyticsHandler) WeakAreas(c *gin.Context) {
	userID := c.GetString("user_id")
	subjectID := c.Query("subject_id")

	areas, err := h.analytics.WeakAreas(c.Request.Context(), userID, subjectID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, areas)
}

func (h *AnalyticsHandler) StudyPatterns(c *gin.Context) {
	userID := c.GetString("user_id")
	timeframe := c.DefaultQuery("timeframe", service.TimeframeWeek)

	report, err := h.analytics.StudyPatterns(c.Request.Context(), userID, timeframe)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}
