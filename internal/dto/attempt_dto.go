package dto

import (
	"time"

	"attempt-service/internal/models"
)

type StartAttemptRequest struct {
	QuizID string `json:"quiz_id" binding:"required"`
}

type SubmitAnswerRequest struct {
	AttemptID        string `json:"attempt_id" binding:"required"`
	QuestionID       string `json:"question_id" binding:"required"`
	SelectedChoiceID string `json:"selected_choice_id" binding:"required"`
	TimeSpent        int    `json:"time_spent"`
}

type AttemptDTO struct {
	ID               string   `json:"id"`
	UserID           string   `json:"user_id"`
	QuizID           string   `json:"quiz_id"`
	Status           string   `json:"status"`
	QuestionPosition int      `json:"last_question_position"`
	TimeSpent        int      `json:"time_spent"`
	Score            *float64 `json:"score"`
	CreatedAt        string   `json:"createdAt"`
	UpdatedAt        string   `json:"updatedAt"`
}

func FromAttempt(attempt *models.Attempt) AttemptDTO {
	d := AttemptDTO{
		ID:               attempt.ID,
		UserID:           attempt.UserID,
		QuizID:           attempt.QuizID,
		Status:           attempt.Status,
		QuestionPosition: attempt.QuestionPosition,
		TimeSpent:        attempt.TimeSpent,
		CreatedAt:        attempt.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        attempt.UpdatedAt.Format(time.RFC3339),
	}
	if attempt.Score.Valid {
		score := attempt.Score.Float64
		d.Score = &score
	}
	return d
}

type StartAttemptResponse struct {
	Attempt AttemptDTO `json:"attempt"`
	Message string     `json:"message"`
}

type AnswerDTO struct {
	ID               string `json:"id"`
	AttemptID        string `json:"attempt_id"`
	QuestionID       string `json:"question_id"`
	SelectedChoiceID string `json:"selected_choice_id"`
	CreatedAt        string `json:"createdAt"`
}

func FromAnswer(answer *models.Answer) AnswerDTO {
	return AnswerDTO{
		ID:               answer.ID,
		AttemptID:        answer.AttemptID,
		QuestionID:       answer.QuestionID,
		SelectedChoiceID: answer.SelectedChoiceID,
		CreatedAt:        answer.CreatedAt.Format(time.RFC3339),
	}
}

type SubmitAnswerResponse struct {
	Answer  AnswerDTO  `json:"answer"`
	Attempt AttemptDTO `json:"attempt"`
}

type AttemptHistoryItem struct {
	AttemptDTO
	QuizName string `json:"quizName"`
}

type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Pages int `json:"pages"`
}

type AttemptHistoryResponse struct {
	Attempts   []AttemptHistoryItem `json:"attempts"`
	Pagination Pagination           `json:"pagination"`
}
