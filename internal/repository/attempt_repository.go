package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"attempt-service/internal/apperrors"
	"attempt-service/internal/models"

	"github.com/google/uuid"
)

type AttemptRepository struct {
	db *sql.DB
}

func NewAttemptRepository(db *sql.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

const attemptColumns = `id, user_id, quiz_id, status, question_position, time_spent, score, created_at, updated_at`

func scanAttempt(row interface{ Scan(...any) error }) (*models.Attempt, error) {
	attempt := &models.Attempt{}
	err := row.Scan(
		&attempt.ID,
		&attempt.UserID,
		&attempt.QuizID,
		&attempt.Status,
		&attempt.QuestionPosition,
		&attempt.TimeSpent,
		&attempt.Score,
		&attempt.CreatedAt,
		&attempt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return attempt, nil
}

func (r *AttemptRepository) GetByID(ctx context.Context, attemptID string) (*models.Attempt, error) {
	query := `
		SELECT ` + attemptColumns + `
		FROM user_attempts
		WHERE id = $1
	`

	attempt, err := scanAttempt(r.db.QueryRowContext(ctx, query, attemptID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("attempt %s: %w", attemptID, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	return attempt, nil
}

// GetOpenAttempt returns the single not-yet-completed attempt for a
// (user, quiz) pair, or ErrNotFound when none exists. The partial unique
// index guarantees there is at most one.
func (r *AttemptRepository) GetOpenAttempt(ctx context.Context, userID, quizID string) (*models.Attempt, error) {
	query := `
		SELECT ` + attemptColumns + `
		FROM user_attempts
		WHERE user_id = $1 AND quiz_id = $2 AND status IN ('not_started', 'in_progress')
	`

	attempt, err := scanAttempt(r.db.QueryRowContext(ctx, query, userID, quizID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("open attempt for quiz %s: %w", quizID, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get open attempt: %w", err)
	}

	return attempt, nil
}

func (r *AttemptRepository) Create(ctx context.Context, attempt *models.Attempt) error {
	attempt.ID = uuid.New().String()
	attempt.CreatedAt = time.Now()
	attempt.UpdatedAt = attempt.CreatedAt

	query := `
		INSERT INTO user_attempts (id, user_id, quiz_id, status, question_position, time_spent, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		attempt.ID,
		attempt.UserID,
		attempt.QuizID,
		attempt.Status,
		attempt.QuestionPosition,
		attempt.TimeSpent,
		attempt.CreatedAt,
		attempt.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create attempt: %w", err)
	}

	return nil
}

// RecordAnswer performs the three SubmitAnswer writes as one unit of work:
// insert the answer, upsert the miss ledger when the choice was wrong,
// and advance the attempt's position and cumulative time. On success the
// passed attempt is updated in place with the advanced values.
func (r *AttemptRepository) RecordAnswer(ctx context.Context, attempt *models.Attempt, answer *models.Answer, recordMiss bool, elapsedSeconds int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	answer.ID = uuid.New().String()
	answer.CreatedAt = time.Now()

	insertAnswer := `
		INSERT INTO user_answers (id, attempt_id, question_id, selected_choice_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := tx.ExecContext(ctx, insertAnswer,
		answer.ID,
		answer.AttemptID,
		answer.QuestionID,
		answer.SelectedChoiceID,
		answer.CreatedAt,
	); err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("question %s already answered in attempt %s: %w",
				answer.QuestionID, answer.AttemptID, apperrors.ErrInvalidState)
		}
		return fmt.Errorf("failed to record answer: %w", err)
	}

	if recordMiss {
		upsertMiss := `
			INSERT INTO wrong_answers (id, user_id, question_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $4)
			ON CONFLICT (user_id, question_id)
			DO UPDATE SET updated_at = EXCLUDED.updated_at
		`
		if _, err := tx.ExecContext(ctx, upsertMiss,
			uuid.New().String(),
			attempt.UserID,
			answer.QuestionID,
			time.Now(),
		); err != nil {
			return fmt.Errorf("failed to upsert wrong answer: %w", err)
		}
	}

	advance := `
		UPDATE user_attempts
		SET question_position = question_position + 1,
		    time_spent = time_spent + $2,
		    updated_at = $3
		WHERE id = $1 AND status <> 'completed'
		RETURNING question_position, time_spent, updated_at
	`
	err = tx.QueryRowContext(ctx, advance, attempt.ID, elapsedSeconds, time.Now()).Scan(
		&attempt.QuestionPosition,
		&attempt.TimeSpent,
		&attempt.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return fmt.Errorf("attempt %s already completed: %w", attempt.ID, apperrors.ErrInvalidState)
	}
	if err != nil {
		return fmt.Errorf("failed to advance attempt: %w", err)
	}

	return tx.Commit()
}

// Complete marks the attempt completed with its final score. The guard on
// status makes double completion lose the race and surface InvalidState.
func (r *AttemptRepository) Complete(ctx context.Context, attemptID string, score float64) (*models.Attempt, error) {
	query := `
		UPDATE user_attempts
		SET status = 'completed', score = $2, updated_at = $3
		WHERE id = $1 AND status <> 'completed'
		RETURNING ` + attemptColumns + `
	`

	attempt, err := scanAttempt(r.db.QueryRowContext(ctx, query, attemptID, score, time.Now()))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("attempt %s already completed: %w", attemptID, apperrors.ErrInvalidState)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to complete attempt: %w", err)
	}

	return attempt, nil
}

type AttemptWithQuiz struct {
	Attempt  *models.Attempt
	QuizName string
}

func (r *AttemptRepository) ListByUser(ctx context.Context, userID string, offset, limit int) ([]*AttemptWithQuiz, error) {
	query := `
		SELECT a.id, a.user_id, a.quiz_id, a.status, a.question_position, a.time_spent, a.score, a.created_at, a.updated_at, q.name
		FROM user_attempts a
		JOIN quizzes q ON a.quiz_id = q.id
		WHERE a.user_id = $1
		ORDER BY a.created_at DESC
		OFFSET $2 LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, query, userID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*AttemptWithQuiz
	for rows.Next() {
		attempt := &models.Attempt{}
		item := &AttemptWithQuiz{Attempt: attempt}
		err := rows.Scan(
			&attempt.ID,
			&attempt.UserID,
			&attempt.QuizID,
			&attempt.Status,
			&attempt.QuestionPosition,
			&attempt.TimeSpent,
			&attempt.Score,
			&attempt.CreatedAt,
			&attempt.UpdatedAt,
			&item.QuizName,
		)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, item)
	}

	return attempts, rows.Err()
}

func (r *AttemptRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var total int
	query := `SELECT COUNT(*) FROM user_attempts WHERE user_id = $1`
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count attempts: %w", err)
	}
	return total, nil
}

type AttemptSummary struct {
	TotalAttempts  int
	AverageScore   float64
	TotalTimeSpent int
	CompletedCount int
}

// Summary aggregates lifetime attempt totals for one user. AVG(score)
// only sees completed attempts since score is NULL until completion.
func (r *AttemptRepository) Summary(ctx context.Context, userID string) (*AttemptSummary, error) {
	query := `
		SELECT COUNT(*),
		       COALESCE(AVG(score), 0),
		       COALESCE(SUM(time_spent), 0),
		       COUNT(*) FILTER (WHERE status = 'completed')
		FROM user_attempts
		WHERE user_id = $1
	`

	summary := &AttemptSummary{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&summary.TotalAttempts,
		&summary.AverageScore,
		&summary.TotalTimeSpent,
		&summary.CompletedCount,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get attempt summary: %w", err)
	}

	return summary, nil
}
