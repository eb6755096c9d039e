package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// WrongAnswerRepository serves the review surface over the miss ledger.
// Ledger rows say whether and when a question was last missed; how often
// comes from tallying incorrect submissions in user_answers.
type WrongAnswerRepository struct {
	db *sql.DB
}

func NewWrongAnswerRepository(db *sql.DB) *WrongAnswerRepository {
	return &WrongAnswerRepository{db: db}
}

const missCountSubquery = `(
	SELECT COUNT(*)
	FROM user_answers ua
	JOIN user_attempts a ON ua.attempt_id = a.id
	JOIN choices c ON ua.selected_choice_id = c.id
	WHERE a.user_id = wa.user_id
	  AND ua.question_id = wa.question_id
	  AND NOT c.is_correct
)`

type ReviewItem struct {
	QuestionID   string
	QuestionText string
	CategoryID   string
	CategoryName string
	MissCount    int
	LastMissed   time.Time
}

func (r *WrongAnswerRepository) ListForReview(ctx context.Context, userID, categoryID, sort string, offset, limit int) ([]*ReviewItem, error) {
	query := `
		SELECT wa.question_id, q.text, cat.id, cat.name, wa.updated_at, ` + missCountSubquery + ` AS miss_count
		FROM wrong_answers wa
		JOIN questions q ON wa.question_id = q.id
		JOIN categories cat ON q.category_id = cat.id
		WHERE wa.user_id = $1
		  AND ($2::text IS NULL OR q.category_id = $2)
	`

	if sort == "frequent" {
		query += " ORDER BY miss_count DESC, wa.updated_at DESC"
	} else {
		query += " ORDER BY wa.updated_at DESC"
	}
	query += " OFFSET $3 LIMIT $4"

	rows, err := r.db.QueryContext(ctx, query, userID, nullString(categoryID), offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list wrong answers: %w", err)
	}
	defer rows.Close()

	var items []*ReviewItem
	for rows.Next() {
		item := &ReviewItem{}
		err := rows.Scan(
			&item.QuestionID,
			&item.QuestionText,
			&item.CategoryID,
			&item.CategoryName,
			&item.LastMissed,
			&item.MissCount,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

func (r *WrongAnswerRepository) CountForReview(ctx context.Context, userID, categoryID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM wrong_answers wa
		JOIN questions q ON wa.question_id = q.id
		WHERE wa.user_id = $1
		  AND ($2::text IS NULL OR q.category_id = $2)
	`

	var total int
	if err := r.db.QueryRowContext(ctx, query, userID, nullString(categoryID)).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count wrong answers: %w", err)
	}

	return total, nil
}

type CategoryStats struct {
	CategoryID      string
	CategoryName    string
	TotalWrong      int
	UniqueQuestions int
}

func (r *WrongAnswerRepository) CategoryStats(ctx context.Context, userID string) ([]*CategoryStats, error) {
	query := `
		SELECT cat.id, cat.name,
		       COUNT(*),
		       COUNT(DISTINCT ua.question_id)
		FROM user_answers ua
		JOIN user_attempts a ON ua.attempt_id = a.id
		JOIN choices c ON ua.selected_choice_id = c.id
		JOIN questions q ON ua.question_id = q.id
		JOIN categories cat ON q.category_id = cat.id
		WHERE a.user_id = $1 AND NOT c.is_correct
		GROUP BY cat.id, cat.name
		ORDER BY COUNT(*) DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get category stats: %w", err)
	}
	defer rows.Close()

	var stats []*CategoryStats
	for rows.Next() {
		stat := &CategoryStats{}
		if err := rows.Scan(&stat.CategoryID, &stat.CategoryName, &stat.TotalWrong, &stat.UniqueQuestions); err != nil {
			return nil, err
		}
		stats = append(stats, stat)
	}

	return stats, rows.Err()
}

func (r *WrongAnswerRepository) MostMissed(ctx context.Context, userID string, limit int) ([]*ReviewItem, error) {
	query := `
		SELECT wa.question_id, q.text, cat.id, cat.name, wa.updated_at, ` + missCountSubquery + ` AS miss_count
		FROM wrong_answers wa
		JOIN questions q ON wa.question_id = q.id
		JOIN categories cat ON q.category_id = cat.id
		WHERE wa.user_id = $1
		ORDER BY miss_count DESC, wa.updated_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get most missed questions: %w", err)
	}
	defer rows.Close()

	var items []*ReviewItem
	for rows.Next() {
		item := &ReviewItem{}
		err := rows.Scan(
			&item.QuestionID,
			&item.QuestionText,
			&item.CategoryID,
			&item.CategoryName,
			&item.LastMissed,
			&item.MissCount,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

type MissTrend struct {
	Day   string
	Count int
}

func (r *WrongAnswerRepository) Trends(ctx context.Context, userID string, since time.Time) ([]*MissTrend, error) {
	query := `
		SELECT to_char(updated_at, 'YYYY-MM-DD'), COUNT(*)
		FROM wrong_answers
		WHERE user_id = $1
		  AND ($2::timestamp IS NULL OR updated_at >= $2)
		GROUP BY to_char(updated_at, 'YYYY-MM-DD')
		ORDER BY to_char(updated_at, 'YYYY-MM-DD') ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID, nullSince(since))
	if err != nil {
		return nil, fmt.Errorf("failed to get wrong answer trends: %w", err)
	}
	defer rows.Close()

	var trends []*MissTrend
	for rows.Next() {
		trend := &MissTrend{}
		if err := rows.Scan(&trend.Day, &trend.Count); err != nil {
			return nil, err
		}
		trends = append(trends, trend)
	}

	return trends, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
