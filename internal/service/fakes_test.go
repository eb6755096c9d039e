package service_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"attempt-service/internal/apperrors"
	"attempt-service/internal/models"
	"attempt-service/internal/repository"

	"github.com/lib/pq"
)

// fakeStore is an in-memory stand-in for the attempt and answer
// repositories that mirrors the database constraints: one open attempt
// per (user, quiz), one answer per (attempt, question), one miss-ledger
// row per (user, question).
type fakeStore struct {
	mu       sync.Mutex
	attempts map[string]*models.Attempt
	answers  map[string]*models.Answer
	misses   map[string]*models.WrongAnswer
	choices  map[string]bool // choice id -> is_correct, used for scoring
	byID     map[string][]string
	nextID   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		attempts: make(map[string]*models.Attempt),
		answers:  make(map[string]*models.Answer),
		misses:   make(map[string]*models.WrongAnswer),
		choices:  make(map[string]bool),
		byID:     make(map[string][]string),
	}
}

func (f *fakeStore) newID(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func copyAttempt(a *models.Attempt) *models.Attempt {
	c := *a
	return &c
}

func (f *fakeStore) GetByID(ctx context.Context, attemptID string) (*models.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	attempt, ok := f.attempts[attemptID]
	if !ok {
		return nil, fmt.Errorf("attempt %s: %w", attemptID, apperrors.ErrNotFound)
	}
	return copyAttempt(attempt), nil
}

func (f *fakeStore) GetOpenAttempt(ctx context.Context, userID, quizID string) (*models.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, attempt := range f.attempts {
		if attempt.UserID == userID && attempt.QuizID == quizID && attempt.Open() {
			return copyAttempt(attempt), nil
		}
	}
	return nil, fmt.Errorf("open attempt for quiz %s: %w", quizID, apperrors.ErrNotFound)
}

func (f *fakeStore) Create(ctx context.Context, attempt *models.Attempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.attempts {
		if existing.UserID == attempt.UserID && existing.QuizID == attempt.QuizID && existing.Open() {
			return &pq.Error{Code: "23505"}
		}
	}

	attempt.ID = f.newID("attempt")
	attempt.CreatedAt = time.Now()
	attempt.UpdatedAt = attempt.CreatedAt
	f.attempts[attempt.ID] = copyAttempt(attempt)
	return nil
}

func (f *fakeStore) RecordAnswer(ctx context.Context, attempt *models.Attempt, answer *models.Answer, recordMiss bool, elapsedSeconds int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	answerKey := answer.AttemptID + "/" + answer.QuestionID
	if _, exists := f.answers[answerKey]; exists {
		return fmt.Errorf("question %s already answered: %w", answer.QuestionID, apperrors.ErrInvalidState)
	}

	stored, ok := f.attempts[attempt.ID]
	if !ok || stored.Status == models.StatusCompleted {
		return fmt.Errorf("attempt %s already completed: %w", attempt.ID, apperrors.ErrInvalidState)
	}

	answer.ID = f.newID("answer")
	answer.CreatedAt = time.Now()
	f.answers[answerKey] = answer
	f.byID[attempt.ID] = append(f.byID[attempt.ID], answer.SelectedChoiceID)

	if recordMiss {
		missKey := stored.UserID + "/" + answer.QuestionID
		if miss, exists := f.misses[missKey]; exists {
			miss.UpdatedAt = time.Now()
		} else {
			f.misses[missKey] = &models.WrongAnswer{
				ID:         f.newID("miss"),
				UserID:     stored.UserID,
				QuestionID: answer.QuestionID,
				CreatedAt:  time.Now(),
				UpdatedAt:  time.Now(),
			}
		}
	}

	stored.QuestionPosition++
	stored.TimeSpent += elapsedSeconds
	stored.UpdatedAt = time.Now()

	attempt.QuestionPosition = stored.QuestionPosition
	attempt.TimeSpent = stored.TimeSpent
	attempt.UpdatedAt = stored.UpdatedAt
	return nil
}

func (f *fakeStore) Complete(ctx context.Context, attemptID string, score float64) (*models.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored, ok := f.attempts[attemptID]
	if !ok {
		return nil, fmt.Errorf("attempt %s: %w", attemptID, apperrors.ErrNotFound)
	}
	if stored.Status == models.StatusCompleted {
		return nil, fmt.Errorf("attempt %s already completed: %w", attemptID, apperrors.ErrInvalidState)
	}

	stored.Status = models.StatusCompleted
	stored.Score.Float64 = score
	stored.Score.Valid = true
	stored.UpdatedAt = time.Now()
	return copyAttempt(stored), nil
}

func (f *fakeStore) ListByUser(ctx context.Context, userID string, offset, limit int) ([]*repository.AttemptWithQuiz, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var items []*repository.AttemptWithQuiz
	for _, attempt := range f.attempts {
		if attempt.UserID == userID {
			items = append(items, &repository.AttemptWithQuiz{Attempt: copyAttempt(attempt), QuizName: "quiz"})
		}
	}
	if offset >= len(items) {
		return nil, nil
	}
	items = items[offset:]
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (f *fakeStore) CountByUser(ctx context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	count := 0
	for _, attempt := range f.attempts {
		if attempt.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) ListCorrectness(ctx context.Context, attemptID string) ([]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var correctness []bool
	for _, choiceID := range f.byID[attemptID] {
		correctness = append(correctness, f.choices[choiceID])
	}
	return correctness, nil
}

func (f *fakeStore) miss(userID, questionID string) *models.WrongAnswer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.misses[userID+"/"+questionID]
}

func (f *fakeStore) missCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.misses)
}

// fakeEntities serves quiz and choice lookups.
type fakeEntities struct {
	quizzes map[string]*models.Quiz
	choices map[string]*models.Choice
}

func newFakeEntities() *fakeEntities {
	return &fakeEntities{
		quizzes: make(map[string]*models.Quiz),
		choices: make(map[string]*models.Choice),
	}
}

func (f *fakeEntities) GetQuizByID(ctx context.Context, quizID string) (*models.Quiz, error) {
	quiz, ok := f.quizzes[quizID]
	if !ok {
		return nil, fmt.Errorf("quiz %s: %w", quizID, apperrors.ErrNotFound)
	}
	return quiz, nil
}

func (f *fakeEntities) GetChoiceByID(ctx context.Context, choiceID string) (*models.Choice, error) {
	choice, ok := f.choices[choiceID]
	if !ok {
		return nil, fmt.Errorf("choice %s: %w", choiceID, apperrors.ErrNotFound)
	}
	return choice, nil
}

func (f *fakeEntities) addChoice(store *fakeStore, choiceID, questionID string, correct bool) {
	f.choices[choiceID] = &models.Choice{ID: choiceID, QuestionID: questionID, IsCorrect: correct}
	store.choices[choiceID] = correct
}

type fakePublisher struct {
	mu     sync.Mutex
	queues []string
	bodies [][]byte
}

func (f *fakePublisher) Publish(ctx context.Context, queueName string, body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queues = append(f.queues, queueName)
	f.bodies = append(f.bodies, body)
	return nil
}
