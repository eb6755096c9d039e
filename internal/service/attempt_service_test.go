package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"attempt-service/internal/apperrors"
	"attempt-service/internal/models"
	"attempt-service/internal/service"
)

func newAttemptFixture() (*service.AttemptService, *fakeStore, *fakeEntities, *fakePublisher) {
	store := newFakeStore()
	entities := newFakeEntities()
	entities.quizzes["quiz-1"] = &models.Quiz{ID: "quiz-1", Name: "Physics Basics"}
	entities.addChoice(store, "choice-right", "question-1", true)
	entities.addChoice(store, "choice-wrong", "question-1", false)
	entities.addChoice(store, "choice-right-2", "question-2", true)
	entities.addChoice(store, "choice-wrong-2", "question-2", false)

	publisher := &fakePublisher{}
	svc := service.NewAttemptService(store, store, entities, publisher, nil)
	return svc, store, entities, publisher
}

func TestStartCreatesAttempt(t *testing.T) {
	svc, _, _, _ := newAttemptFixture()

	attempt, created, err := svc.Start(context.Background(), "user-1", "quiz-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !created {
		t.Error("expected a new attempt to be created")
	}
	if attempt.Status != models.StatusInProgress {
		t.Errorf("status = %q, want %q", attempt.Status, models.StatusInProgress)
	}
	if attempt.QuestionPosition != 1 {
		t.Errorf("question position = %d, want 1", attempt.QuestionPosition)
	}
	if attempt.Score.Valid {
		t.Error("new attempt should have no score")
	}
}

func TestStartReturnsExistingOpenAttempt(t *testing.T) {
	svc, _, _, _ := newAttemptFixture()
	ctx := context.Background()

	first, _, err := svc.Start(ctx, "user-1", "quiz-1")
	if err != nil {
		t.Fatalf("first Start: %v", err)
	}

	second, created, err := svc.Start(ctx, "user-1", "quiz-1")
	if err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if created {
		t.Error("second Start must not create a new attempt")
	}
	if second.ID != first.ID {
		t.Errorf("second Start returned attempt %s, want %s", second.ID, first.ID)
	}
}

func TestStartUnknownQuiz(t *testing.T) {
	svc, _, _, _ := newAttemptFixture()

	_, _, err := svc.Start(context.Background(), "user-1", "quiz-missing")
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestStartMissingQuizID(t *testing.T) {
	svc, _, _, _ := newAttemptFixture()

	_, _, err := svc.Start(context.Background(), "user-1", "")
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

// raceStore makes Create seed a competing attempt before reporting the
// unique violation, simulating a concurrent Start winning the insert.
type raceStore struct {
	*fakeStore
}

func (r *raceStore) Create(ctx context.Context, attempt *models.Attempt) error {
	winner := &models.Attempt{
		UserID:           attempt.UserID,
		QuizID:           attempt.QuizID,
		Status:           models.StatusInProgress,
		QuestionPosition: 1,
	}
	if err := r.fakeStore.Create(ctx, winner); err != nil {
		return err
	}
	return r.fakeStore.Create(ctx, attempt)
}

func TestStartLosesInsertRace(t *testing.T) {
	store := newFakeStore()
	entities := newFakeEntities()
	entities.quizzes["quiz-1"] = &models.Quiz{ID: "quiz-1"}
	svc := service.NewAttemptService(&raceStore{store}, store, entities, nil, nil)

	attempt, created, err := svc.Start(context.Background(), "user-1", "quiz-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if created {
		t.Error("loser of the insert race must not report a created attempt")
	}
	if attempt == nil || attempt.ID == "" {
		t.Fatal("expected the winner's attempt")
	}
	if n, _ := store.CountByUser(context.Background(), "user-1"); n != 1 {
		t.Errorf("attempt count = %d, want 1", n)
	}
}

func TestSubmitAnswerAdvancesAttempt(t *testing.T) {
	svc, _, _, _ := newAttemptFixture()
	ctx := context.Background()

	attempt, _, err := svc.Start(ctx, "user-1", "quiz-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	answer, updated, err := svc.SubmitAnswer(ctx, "user-1", attempt.ID, "question-1", "choice-right", 30)
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if answer.SelectedChoiceID != "choice-right" {
		t.Errorf("selected choice = %q, want %q", answer.SelectedChoiceID, "choice-right")
	}
	if updated.QuestionPosition != 2 {
		t.Errorf("question position = %d, want 2", updated.QuestionPosition)
	}
	if updated.TimeSpent != 30 {
		t.Errorf("time spent = %d, want 30", updated.TimeSpent)
	}

	_, updated, err = svc.SubmitAnswer(ctx, "user-1", attempt.ID, "question-2", "choice-wrong-2", 45)
	if err != nil {
		t.Fatalf("second SubmitAnswer: %v", err)
	}
	if updated.QuestionPosition != 3 {
		t.Errorf("question position = %d, want 3", updated.QuestionPosition)
	}
	if updated.TimeSpent != 75 {
		t.Errorf("time spent = %d, want 75", updated.TimeSpent)
	}
}

func TestSubmitAnswerRecordsMissOnce(t *testing.T) {
	svc, store, _, _ := newAttemptFixture()
	ctx := context.Background()

	first, _, err := svc.Start(ctx, "user-1", "quiz-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, _, err := svc.SubmitAnswer(ctx, "user-1", first.ID, "question-1", "choice-wrong", 10); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}

	miss := store.miss("user-1", "question-1")
	if miss == nil {
		t.Fatal("wrong answer should be recorded in the miss ledger")
	}
	firstSeen := miss.UpdatedAt

	// Miss the same question again in a fresh attempt: the ledger row is
	// touched, not duplicated.
	if _, err := svc.Complete(ctx, "user-1", first.ID); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	second, _, err := svc.Start(ctx, "user-1", "quiz-1")
	if err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if _, _, err := svc.SubmitAnswer(ctx, "user-1", second.ID, "question-1", "choice-wrong", 10); err != nil {
		t.Fatalf("second SubmitAnswer: %v", err)
	}

	if store.missCount() != 1 {
		t.Errorf("miss ledger rows = %d, want 1", store.missCount())
	}
	if got := store.miss("user-1", "question-1"); !got.UpdatedAt.After(firstSeen) {
		t.Error("repeat miss should bump the ledger row's updated_at")
	}
}

func TestSubmitAnswerCorrectChoiceLeavesLedgerEmpty(t *testing.T) {
	svc, store, _, _ := newAttemptFixture()
	ctx := context.Background()

	attempt, _, _ := svc.Start(ctx, "user-1", "quiz-1")
	if _, _, err := svc.SubmitAnswer(ctx, "user-1", attempt.ID, "question-1", "choice-right", 5); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if store.missCount() != 0 {
		t.Errorf("miss ledger rows = %d, want 0", store.missCount())
	}
}

func TestSubmitAnswerDuplicateQuestion(t *testing.T) {
	svc, _, _, _ := newAttemptFixture()
	ctx := context.Background()

	attempt, _, _ := svc.Start(ctx, "user-1", "quiz-1")
	if _, _, err := svc.SubmitAnswer(ctx, "user-1", attempt.ID, "question-1", "choice-right", 5); err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}

	_, _, err := svc.SubmitAnswer(ctx, "user-1", attempt.ID, "question-1", "choice-wrong", 5)
	if !errors.Is(err, apperrors.ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}
}

func TestSubmitAnswerRejectsCompletedAttempt(t *testing.T) {
	svc, _, _, _ := newAttemptFixture()
	ctx := context.Background()

	attempt, _, _ := svc.Start(ctx, "user-1", "quiz-1")
	if _, err := svc.Complete(ctx, "user-1", attempt.ID); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	_, _, err := svc.SubmitAnswer(ctx, "user-1", attempt.ID, "question-1", "choice-right", 5)
	if !errors.Is(err, apperrors.ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}
}

func TestSubmitAnswerValidation(t *testing.T) {
	svc, _, _, _ := newAttemptFixture()
	ctx := context.Background()

	attempt, _, _ := svc.Start(ctx, "user-1", "quiz-1")

	tests := []struct {
		name       string
		userID     string
		attemptID  string
		questionID string
		choiceID   string
		elapsed    int
		want       error
	}{
		{"missing question id", "user-1", attempt.ID, "", "choice-right", 5, apperrors.ErrInvalidInput},
		{"negative time", "user-1", attempt.ID, "question-1", "choice-right", -1, apperrors.ErrInvalidInput},
		{"unknown choice", "user-1", attempt.ID, "question-1", "choice-missing", 5, apperrors.ErrInvalidInput},
		{"choice from another question", "user-1", attempt.ID, "question-1", "choice-right-2", 5, apperrors.ErrInvalidInput},
		{"unknown attempt", "user-1", "attempt-missing", "question-1", "choice-right", 5, apperrors.ErrNotFound},
		{"another user's attempt", "user-2", attempt.ID, "question-1", "choice-right", 5, apperrors.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.SubmitAnswer(ctx, tt.userID, tt.attemptID, tt.questionID, tt.choiceID, tt.elapsed)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCompleteScoresAttempt(t *testing.T) {
	svc, _, _, _ := newAttemptFixture()
	ctx := context.Background()

	attempt, _, _ := svc.Start(ctx, "user-1", "quiz-1")
	svc.SubmitAnswer(ctx, "user-1", attempt.ID, "question-1", "choice-right", 10)
	svc.SubmitAnswer(ctx, "user-1", attempt.ID, "question-2", "choice-wrong-2", 10)

	completed, err := svc.Complete(ctx, "user-1", attempt.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if completed.Status != models.StatusCompleted {
		t.Errorf("status = %q, want %q", completed.Status, models.StatusCompleted)
	}
	if !completed.Score.Valid || completed.Score.Float64 != 50 {
		t.Errorf("score = %+v, want 50", completed.Score)
	}
}

func TestCompleteWithoutAnswersScoresZero(t *testing.T) {
	svc, _, _, _ := newAttemptFixture()
	ctx := context.Background()

	attempt, _, _ := svc.Start(ctx, "user-1", "quiz-1")
	completed, err := svc.Complete(ctx, "user-1", attempt.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !completed.Score.Valid || completed.Score.Float64 != 0 {
		t.Errorf("score = %+v, want 0", completed.Score)
	}
}

func TestCompleteTwiceFails(t *testing.T) {
	svc, _, _, _ := newAttemptFixture()
	ctx := context.Background()

	attempt, _, _ := svc.Start(ctx, "user-1", "quiz-1")
	if _, err := svc.Complete(ctx, "user-1", attempt.ID); err != nil {
		t.Fatalf("first Complete: %v", err)
	}
	_, err := svc.Complete(ctx, "user-1", attempt.ID)
	if !errors.Is(err, apperrors.ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}
}

func TestCompletePublishesEvent(t *testing.T) {
	svc, _, _, publisher := newAttemptFixture()
	ctx := context.Background()

	attempt, _, _ := svc.Start(ctx, "user-1", "quiz-1")
	svc.SubmitAnswer(ctx, "user-1", attempt.ID, "question-1", "choice-right", 10)
	if _, err := svc.Complete(ctx, "user-1", attempt.ID); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if len(publisher.queues) != 1 || publisher.queues[0] != "attempt.completed" {
		t.Fatalf("published queues = %v, want [attempt.completed]", publisher.queues)
	}

	var event struct {
		AttemptID string  `json:"attempt_id"`
		UserID    string  `json:"user_id"`
		QuizID    string  `json:"quiz_id"`
		Score     float64 `json:"score"`
	}
	if err := json.Unmarshal(publisher.bodies[0], &event); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if event.AttemptID != attempt.ID || event.UserID != "user-1" || event.QuizID != "quiz-1" {
		t.Errorf("event = %+v", event)
	}
	if event.Score != 100 {
		t.Errorf("event score = %v, want 100", event.Score)
	}
}

func TestHistoryPagination(t *testing.T) {
	svc, store, _, _ := newAttemptFixture()
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		attempt, _, err := svc.Start(ctx, "user-1", "quiz-1")
		if err != nil {
			t.Fatalf("Start %d: %v", i, err)
		}
		if _, err := svc.Complete(ctx, "user-1", attempt.ID); err != nil {
			t.Fatalf("Complete %d: %v", i, err)
		}
	}
	if n, _ := store.CountByUser(ctx, "user-1"); n != 7 {
		t.Fatalf("attempt count = %d, want 7", n)
	}

	history, err := svc.History(ctx, "user-1", 2, 3)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if history.Total != 7 {
		t.Errorf("total = %d, want 7", history.Total)
	}
	if history.Pages != 3 {
		t.Errorf("pages = %d, want 3", history.Pages)
	}
	if len(history.Attempts) != 3 {
		t.Errorf("page size = %d, want 3", len(history.Attempts))
	}

	// Out-of-range page and zero limit fall back to defaults.
	history, err = svc.History(ctx, "user-1", 0, 0)
	if err != nil {
		t.Fatalf("History with defaults: %v", err)
	}
	if history.Page != 1 {
		t.Errorf("page = %d, want 1", history.Page)
	}
	if history.Pages != 1 {
		t.Errorf("pages = %d, want 1", history.Pages)
	}
}
