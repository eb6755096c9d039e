package handlers_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"attempt-service/internal/apperrors"
	"attempt-service/internal/handlers"
	"attempt-service/internal/models"
	"attempt-service/internal/repository"
	"attempt-service/internal/service"

	"github.com/gin-gonic/gin"
)

// handlerStore covers just enough of the attempt stores for routing
// tests; the state machine itself is covered in the service package.
type handlerStore struct {
	attempts map[string]*models.Attempt
}

func (s *handlerStore) GetByID(ctx context.Context, attemptID string) (*models.Attempt, error) {
	attempt, ok := s.attempts[attemptID]
	if !ok {
		return nil, fmt.Errorf("attempt %s: %w", attemptID, apperrors.ErrNotFound)
	}
	return attempt, nil
}

func (s *handlerStore) GetOpenAttempt(ctx context.Context, userID, quizID string) (*models.Attempt, error) {
	for _, attempt := range s.attempts {
		if attempt.UserID == userID && attempt.QuizID == quizID && attempt.Open() {
			return attempt, nil
		}
	}
	return nil, fmt.Errorf("open attempt: %w", apperrors.ErrNotFound)
}

func (s *handlerStore) Create(ctx context.Context, attempt *models.Attempt) error {
	attempt.ID = fmt.Sprintf("attempt-%d", len(s.attempts)+1)
	s.attempts[attempt.ID] = attempt
	return nil
}

func (s *handlerStore) RecordAnswer(ctx context.Context, attempt *models.Attempt, answer *models.Answer, recordMiss bool, elapsedSeconds int) error {
	return nil
}

func (s *handlerStore) Complete(ctx context.Context, attemptID string, score float64) (*models.Attempt, error) {
	attempt := s.attempts[attemptID]
	attempt.Status = models.StatusCompleted
	attempt.Score.Float64 = score
	attempt.Score.Valid = true
	return attempt, nil
}

func (s *handlerStore) ListByUser(ctx context.Context, userID string, offset, limit int) ([]*repository.AttemptWithQuiz, error) {
	return nil, nil
}

func (s *handlerStore) CountByUser(ctx context.Context, userID string) (int, error) {
	return len(s.attempts), nil
}

func (s *handlerStore) ListCorrectness(ctx context.Context, attemptID string) ([]bool, error) {
	return nil, nil
}

type handlerEntities struct {
	quizzes map[string]*models.Quiz
}

func (e *handlerEntities) GetQuizByID(ctx context.Context, quizID string) (*models.Quiz, error) {
	quiz, ok := e.quizzes[quizID]
	if !ok {
		return nil, fmt.Errorf("quiz %s: %w", quizID, apperrors.ErrNotFound)
	}
	return quiz, nil
}

func (e *handlerEntities) GetChoiceByID(ctx context.Context, choiceID string) (*models.Choice, error) {
	return nil, fmt.Errorf("choice %s: %w", choiceID, apperrors.ErrNotFound)
}

func newTestRouter() (*gin.Engine, *handlerStore) {
	gin.SetMode(gin.TestMode)

	store := &handlerStore{attempts: make(map[string]*models.Attempt)}
	entities := &handlerEntities{quizzes: map[string]*models.Quiz{
		"quiz-1": {ID: "quiz-1", Name: "Physics Basics"},
	}}
	svc := service.NewAttemptService(store, store, entities, nil, nil)
	handler := handlers.NewAttemptHandler(svc)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("user_id", "user-1")
	})
	router.POST("/attempts/start", handler.Start)
	router.POST("/attempts/:id/complete", handler.Complete)
	return router, store
}

func TestStartEndpointStatusCodes(t *testing.T) {
	router, _ := newTestRouter()

	body := `{"quiz_id": "quiz-1"}`
	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/attempts/start", strings.NewReader(body)))
	if first.Code != http.StatusCreated {
		t.Fatalf("first start status = %d, want 201", first.Code)
	}

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/attempts/start", strings.NewReader(body)))
	if second.Code != http.StatusOK {
		t.Fatalf("second start status = %d, want 200", second.Code)
	}

	var resp struct {
		Attempt struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"attempt"`
	}
	if err := json.Unmarshal(second.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Attempt.ID == "" || resp.Attempt.Status != models.StatusInProgress {
		t.Errorf("attempt = %+v", resp.Attempt)
	}
}

func TestStartEndpointUnknownQuiz(t *testing.T) {
	router, _ := newTestRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/attempts/start", strings.NewReader(`{"quiz_id": "quiz-missing"}`)))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestStartEndpointBadBody(t *testing.T) {
	router, _ := newTestRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/attempts/start", strings.NewReader(`{}`)))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestCompleteEndpointRejectsCompleted(t *testing.T) {
	router, store := newTestRouter()

	start := httptest.NewRecorder()
	router.ServeHTTP(start, httptest.NewRequest(http.MethodPost, "/attempts/start", strings.NewReader(`{"quiz_id": "quiz-1"}`)))

	var attemptID string
	for id := range store.attempts {
		attemptID = id
	}

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/attempts/"+attemptID+"/complete", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("complete status = %d, want 200", first.Code)
	}

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/attempts/"+attemptID+"/complete", nil))
	if second.Code != http.StatusBadRequest {
		t.Fatalf("double complete status = %d, want 400", second.Code)
	}
}
