package handlers

import (
	"net/http"
	"strconv"

	"attempt-service/internal/dto"
	"attempt-service/internal/service"

	"github.com/gin-gonic/gin"
)

type AttemptHandler struct {
	attempts *service.AttemptService
}

func NewAttemptHandler(attempts *service.AttemptService) *AttemptHandler {
	return &AttemptHandler{attempts: attempts}
}

// Start returns 200 with the existing open attempt or 201 when a new one
// was created. Retrying the request is safe either way.
func (h *AttemptHandler) Start(c *gin.Context) {
	userID := c.GetString("user_id")

	var req dto.StartAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.JsonError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	attempt, created, err := h.attempts.Start(c.Request.Context(), userID, req.QuizID)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	message := "Existing attempt found"
	if created {
		status = http.StatusCreated
		message = "Quiz attempt started successfully"
	}

	c.JSON(status, dto.StartAttemptResponse{
		Attempt: dto.FromAttempt(attempt),
		Message: message,
	})
}

func (h *AttemptHandler) SubmitAnswer(c *gin.Context) {
	userID := c.GetString("user_id")

	var req dto.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.JsonError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	answer, attempt, err := h.attempts.SubmitAnswer(
		c.Request.Context(),
		userID,
		req.AttemptID,
		req.QuestionID,
		req.SelectedChoiceID,
		req.TimeSpent,
	)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SubmitAnswerResponse{
		Answer:  dto.FromAnswer(answer),
		Attempt: dto.FromAttempt(attempt),
	})
}

func (h *AttemptHandler) Complete(c *gin.Context) {
	userID := c.GetString("user_id")
	attemptID := c.Param("id")

	attempt, err := h.attempts.Complete(c.Request.Context(), userID, attemptID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"attempt": dto.FromAttempt(attempt),
		"message": "Quiz attempt completed successfully",
	})
}

func (h *AttemptHandler) History(c *gin.Context) {
	userID := c.GetString("user_id")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	history, err := h.attempts.History(c.Request.Context(), userID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := dto.AttemptHistoryResponse{
		Attempts: []dto.AttemptHistoryItem{},
		Pagination: dto.Pagination{
			Total: history.Total,
			Page:  history.Page,
			Pages: history.Pages,
		},
	}
	for _, item := range history.Attempts {
		resp.Attempts = append(resp.Attempts, dto.AttemptHistoryItem{
			AttemptDTO: dto.FromAttempt(item.Attempt),
			QuizName:   item.QuizName,
		})
	}

	c.JSON(http.StatusOK, resp)
}
