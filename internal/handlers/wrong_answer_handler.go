package handlers

import (
	"net/http"
	"strconv"

	"attempt-service/internal/service"

	"github.com/gin-gonic/gin"
)

type WrongAnswerHandler struct {
	wrongAnswers *service.WrongAnswerService
}

func NewWrongAnswerHandler(wrongAnswers *service.WrongAnswerService) *WrongAnswerHandler {
	return &WrongAnswerHandler{wrongAnswers: wrongAnswers}
}

func (h *WrongAnswerHandler) List(c *gin.Context) {
	userID := c.GetString("user_id")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	categoryID := c.Query("category_id")
	sort := c.DefaultQuery("sort", service.SortRecent)

	result, err := h.wrongAnswers.List(c.Request.Context(), userID, categoryID, sort, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *WrongAnswerHandler) ByCategory(c *gin.Context) {
	userID := c.GetString("user_id")

	stats, err := h.wrongAnswers.ByCategory(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *WrongAnswerHandler) MostMissed(c *gin.Context) {
	userID := c.GetString("user_id")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	items, err := h.wrongAnswers.MostMissed(c.Request.Context(), userID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, items)
}

func (h *WrongAnswerHandler) Trends(c *gin.Context) {
	userID := c.GetString("user_id")
	timeframe := c.DefaultQuery("timeframe", service.TimeframeWeek)

	trends, err := h.wrongAnswers.Trends(c.Request.Context(), userID, timeframe)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, trends)
}
