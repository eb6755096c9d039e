package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"attempt-service/internal/apperrors"
	"attempt-service/internal/models"
	"attempt-service/internal/repository"
)

type AttemptStore interface {
	GetByID(ctx context.Context, attemptID string) (*models.Attempt, error)
	GetOpenAttempt(ctx context.Context, userID, quizID string) (*models.Attempt, error)
	Create(ctx context.Context, attempt *models.Attempt) error
	RecordAnswer(ctx context.Context, attempt *models.Attempt, answer *models.Answer, recordMiss bool, elapsedSeconds int) error
	Complete(ctx context.Context, attemptID string, score float64) (*models.Attempt, error)
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]*repository.AttemptWithQuiz, error)
	CountByUser(ctx context.Context, userID string) (int, error)
}

type AnswerStore interface {
	ListCorrectness(ctx context.Context, attemptID string) ([]bool, error)
}

type QuizLookup interface {
	GetQuizByID(ctx context.Context, quizID string) (*models.Quiz, error)
	GetChoiceByID(ctx context.Context, choiceID string) (*models.Choice, error)
}

type Publisher interface {
	Publish(ctx context.Context, queueName string, body []byte) error
}

type CacheInvalidator interface {
	Delete(ctx context.Context, keys ...string) error
}

// AttemptService drives the attempt state machine:
// not_started -> in_progress -> completed.
type AttemptService struct {
	attempts  AttemptStore
	answers   AnswerStore
	entities  QuizLookup
	publisher Publisher
	cache     CacheInvalidator
}

func NewAttemptService(attempts AttemptStore, answers AnswerStore, entities QuizLookup, publisher Publisher, cache CacheInvalidator) *AttemptService {
	return &AttemptService{
		attempts:  attempts,
		answers:   answers,
		entities:  entities,
		publisher: publisher,
		cache:     cache,
	}
}

// Start returns the user's open attempt for the quiz if one exists, or
// creates a new one. The returned bool reports whether an attempt was
// created. A concurrent Start for the same pair loses the insert race on
// the open-attempt index and picks up the winner's row.
func (s *AttemptService) Start(ctx context.Context, userID, quizID string) (*models.Attempt, bool, error) {
	if quizID == "" {
		return nil, false, fmt.Errorf("quiz id is required: %w", apperrors.ErrInvalidInput)
	}

	existing, err := s.attempts.GetOpenAttempt(ctx, userID, quizID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, false, err
	}

	if _, err := s.entities.GetQuizByID(ctx, quizID); err != nil {
		return nil, false, err
	}

	attempt := &models.Attempt{
		UserID:           userID,
		QuizID:           quizID,
		Status:           models.StatusInProgress,
		QuestionPosition: 1,
		TimeSpent:        0,
	}

	if err := s.attempts.Create(ctx, attempt); err != nil {
		if repository.IsUniqueViolation(err) {
			winner, getErr := s.attempts.GetOpenAttempt(ctx, userID, quizID)
			if getErr != nil {
				return nil, false, getErr
			}
			return winner, false, nil
		}
		return nil, false, err
	}

	return attempt, true, nil
}

// SubmitAnswer records one answer for an in-progress attempt, upserts the
// miss ledger when the choice was wrong, and advances the attempt's
// position and cumulative time. Answering the same question twice within
// one attempt is rejected.
func (s *AttemptService) SubmitAnswer(ctx context.Context, userID, attemptID, questionID, choiceID string, elapsedSeconds int) (*models.Answer, *models.Attempt, error) {
	if attemptID == "" || questionID == "" || choiceID == "" {
		return nil, nil, fmt.Errorf("attempt, question and choice ids are required: %w", apperrors.ErrInvalidInput)
	}
	if elapsedSeconds < 0 {
		return nil, nil, fmt.Errorf("time spent cannot be negative: %w", apperrors.ErrInvalidInput)
	}

	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		return nil, nil, err
	}
	if attempt.UserID != userID {
		// Another user's attempt looks absent, not forbidden.
		return nil, nil, fmt.Errorf("attempt %s: %w", attemptID, apperrors.ErrNotFound)
	}
	if attempt.Status == models.StatusCompleted {
		return nil, nil, fmt.Errorf("attempt %s is completed: %w", attemptID, apperrors.ErrInvalidState)
	}

	choice, err := s.entities.GetChoiceByID(ctx, choiceID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, fmt.Errorf("invalid choice selected: %w", apperrors.ErrInvalidInput)
		}
		return nil, nil, err
	}
	if choice.QuestionID != questionID {
		return nil, nil, fmt.Errorf("choice %s does not belong to question %s: %w", choiceID, questionID, apperrors.ErrInvalidInput)
	}

	answer := &models.Answer{
		AttemptID:        attemptID,
		QuestionID:       questionID,
		SelectedChoiceID: choiceID,
	}

	if err := s.attempts.RecordAnswer(ctx, attempt, answer, !choice.IsCorrect, elapsedSeconds); err != nil {
		return nil, nil, err
	}

	return answer, attempt, nil
}

// Complete scores the attempt from its recorded answers and finalizes it.
// It fails loudly on double completion; a completed attempt's status and
// score never change again.
func (s *AttemptService) Complete(ctx context.Context, userID, attemptID string) (*models.Attempt, error) {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, fmt.Errorf("attempt %s: %w", attemptID, apperrors.ErrNotFound)
	}
	if attempt.Status == models.StatusCompleted {
		return nil, fmt.Errorf("attempt %s already completed: %w", attemptID, apperrors.ErrInvalidState)
	}

	correctness, err := s.answers.ListCorrectness(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	score := ComputeScore(correctness)

	completed, err := s.attempts.Complete(ctx, attemptID, score)
	if err != nil {
		return nil, err
	}

	s.publishAttemptCompleted(ctx, completed)
	s.invalidateDashboard(ctx, userID)

	return completed, nil
}

type AttemptHistoryItem struct {
	Attempt  *models.Attempt
	QuizName string
}

type AttemptHistory struct {
	Attempts []*AttemptHistoryItem
	Total    int
	Page     int
	Pages    int
}

func (s *AttemptService) History(ctx context.Context, userID string, page, limit int) (*AttemptHistory, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	items, err := s.attempts.ListByUser(ctx, userID, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}

	total, err := s.attempts.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	history := &AttemptHistory{
		Total: total,
		Page:  page,
		Pages: (total + limit - 1) / limit,
	}
	for _, item := range items {
		history.Attempts = append(history.Attempts, &AttemptHistoryItem{
			Attempt:  item.Attempt,
			QuizName: item.QuizName,
		})
	}

	return history, nil
}

func (s *AttemptService) publishAttemptCompleted(ctx context.Context, attempt *models.Attempt) {
	if s.publisher == nil {
		return
	}

	type AttemptCompletedEvent struct {
		AttemptID string  `json:"attempt_id"`
		UserID    string  `json:"user_id"`
		QuizID    string  `json:"quiz_id"`
		Score     float64 `json:"score"`
	}

	event := AttemptCompletedEvent{
		AttemptID: attempt.ID,
		UserID:    attempt.UserID,
		QuizID:    attempt.QuizID,
	}
	if attempt.Score.Valid {
		event.Score = attempt.Score.Float64
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal attempt_completed event: %v", err)
		return
	}

	if err := s.publisher.Publish(ctx, "attempt.completed", eventJSON); err != nil {
		log.Printf("Failed to publish attempt_completed event: %v", err)
	}
}

func (s *AttemptService) invalidateDashboard(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, dashboardCacheKey(userID)); err != nil {
		log.Printf("Failed to invalidate dashboard cache for user %s: %v", userID, err)
	}
}
