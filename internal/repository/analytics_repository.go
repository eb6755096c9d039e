package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// AnalyticsRepository holds the read-only aggregation queries over the
// attempt, answer and miss-ledger tables. Optional filters are pushed in
// as NULLable parameters: a NULL timestamp or NULL id array disables the
// corresponding predicate, an empty array matches nothing.
type AnalyticsRepository struct {
	db *sql.DB
}

func NewAnalyticsRepository(db *sql.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

func nullSince(since time.Time) sql.NullTime {
	return sql.NullTime{Time: since, Valid: !since.IsZero()}
}

type OverallPerformance struct {
	TotalAnswers   int
	CorrectAnswers int
}

func (r *AnalyticsRepository) OverallPerformance(ctx context.Context, userID string, since time.Time, questionIDs []string) (*OverallPerformance, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE c.is_correct)
		FROM user_answers ua
		JOIN user_attempts a ON ua.attempt_id = a.id
		JOIN choices c ON ua.selected_choice_id = c.id
		WHERE a.user_id = $1
		  AND ($2::timestamp IS NULL OR ua.created_at >= $2)
		  AND ($3::text[] IS NULL OR ua.question_id = ANY($3))
	`

	perf := &OverallPerformance{}
	err := r.db.QueryRowContext(ctx, query, userID, nullSince(since), pq.Array(questionIDs)).Scan(
		&perf.TotalAnswers,
		&perf.CorrectAnswers,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get overall performance: %w", err)
	}

	return perf, nil
}

type CategoryPerformance struct {
	CategoryID     string
	CategoryName   string
	TotalAnswers   int
	CorrectAnswers int
}

func (r *AnalyticsRepository) CategoryPerformance(ctx context.Context, userID string, since time.Time, questionIDs []string) ([]*CategoryPerformance, error) {
	query := `
		SELECT cat.id, cat.name,
		       COUNT(*),
		       COUNT(*) FILTER (WHERE c.is_correct)
		FROM user_answers ua
		JOIN user_attempts a ON ua.attempt_id = a.id
		JOIN choices c ON ua.selected_choice_id = c.id
		JOIN questions q ON ua.question_id = q.id
		JOIN categories cat ON q.category_id = cat.id
		WHERE a.user_id = $1
		  AND ($2::timestamp IS NULL OR ua.created_at >= $2)
		  AND ($3::text[] IS NULL OR ua.question_id = ANY($3))
		GROUP BY cat.id, cat.name
		ORDER BY cat.name ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID, nullSince(since), pq.Array(questionIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to get category performance: %w", err)
	}
	defer rows.Close()

	var results []*CategoryPerformance
	for rows.Next() {
		perf := &CategoryPerformance{}
		if err := rows.Scan(&perf.CategoryID, &perf.CategoryName, &perf.TotalAnswers, &perf.CorrectAnswers); err != nil {
			return nil, err
		}
		results = append(results, perf)
	}

	return results, rows.Err()
}

// AttemptedCountByCategory counts the distinct questions a user has ever
// answered per category. Repeat answers to the same question count once.
func (r *AnalyticsRepository) AttemptedCountByCategory(ctx context.Context, userID string, categoryIDs []string) (map[string]int, error) {
	if len(categoryIDs) == 0 {
		return map[string]int{}, nil
	}

	query := `
		SELECT q.category_id, COUNT(DISTINCT ua.question_id)
		FROM user_answers ua
		JOIN user_attempts a ON ua.attempt_id = a.id
		JOIN questions q ON ua.question_id = q.id
		WHERE a.user_id = $1 AND q.category_id = ANY($2)
		GROUP BY q.category_id
	`

	rows, err := r.db.QueryContext(ctx, query, userID, pq.Array(categoryIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to count attempted questions: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var categoryID string
		var attempted int
		if err := rows.Scan(&categoryID, &attempted); err != nil {
			return nil, err
		}
		counts[categoryID] = attempted
	}

	return counts, rows.Err()
}

type WeakAreaCount struct {
	CategoryID   string
	CategoryName string
	TotalWrong   int
}

// WeakAreaCounts ranks categories by the user's volume of incorrect
// submissions. The tally comes from answers joined against incorrect
// choices, not from miss-ledger rows, so repeat misses count every time.
func (r *AnalyticsRepository) WeakAreaCounts(ctx context.Context, userID string, categoryIDs []string, limit int) ([]*WeakAreaCount, error) {
	query := `
		SELECT cat.id, cat.name, COUNT(*)
		FROM user_answers ua
		JOIN user_attempts a ON ua.attempt_id = a.id
		JOIN choices c ON ua.selected_choice_id = c.id
		JOIN questions q ON ua.question_id = q.id
		JOIN categories cat ON q.category_id = cat.id
		WHERE a.user_id = $1
		  AND NOT c.is_correct
		  AND ($2::text[] IS NULL OR q.category_id = ANY($2))
		GROUP BY cat.id, cat.name
		ORDER BY COUNT(*) DESC
	`

	args := []any{userID, pq.Array(categoryIDs)}
	if limit > 0 {
		query += " LIMIT $3"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get weak area counts: %w", err)
	}
	defer rows.Close()

	var results []*WeakAreaCount
	for rows.Next() {
		area := &WeakAreaCount{}
		if err := rows.Scan(&area.CategoryID, &area.CategoryName, &area.TotalWrong); err != nil {
			return nil, err
		}
		results = append(results, area)
	}

	return results, rows.Err()
}

type MissedQuestion struct {
	QuestionID string
	Text       string
}

// WeakAreaSamples picks up to perCategory representative missed questions
// per category from the miss ledger, most recent miss first.
func (r *AnalyticsRepository) WeakAreaSamples(ctx context.Context, userID string, categoryIDs []string, perCategory int) (map[string][]*MissedQuestion, error) {
	query := `
		SELECT category_id, question_id, text
		FROM (
			SELECT q.category_id, wa.question_id, q.text,
			       ROW_NUMBER() OVER (PARTITION BY q.category_id ORDER BY wa.updated_at DESC) AS rank
			FROM wrong_answers wa
			JOIN questions q ON wa.question_id = q.id
			WHERE wa.user_id = $1
			  AND ($2::text[] IS NULL OR q.category_id = ANY($2))
		) ranked
		WHERE rank <= $3
	`

	rows, err := r.db.QueryContext(ctx, query, userID, pq.Array(categoryIDs), perCategory)
	if err != nil {
		return nil, fmt.Errorf("failed to get weak area samples: %w", err)
	}
	defer rows.Close()

	samples := make(map[string][]*MissedQuestion)
	for rows.Next() {
		var categoryID string
		question := &MissedQuestion{}
		if err := rows.Scan(&categoryID, &question.QuestionID, &question.Text); err != nil {
			return nil, err
		}
		samples[categoryID] = append(samples[categoryID], question)
	}

	return samples, rows.Err()
}

type DailyPattern struct {
	Day          string
	TotalTime    int
	Attempts     int
	AverageScore float64
}

func (r *AnalyticsRepository) DailyPatterns(ctx context.Context, userID string, since time.Time) ([]*DailyPattern, error) {
	query := `
		SELECT to_char(created_at, 'YYYY-MM-DD'),
		       COALESCE(SUM(time_spent), 0),
		       COUNT(*),
		       COALESCE(AVG(score), 0)
		FROM user_attempts
		WHERE user_id = $1
		  AND ($2::timestamp IS NULL OR created_at >= $2)
		GROUP BY to_char(created_at, 'YYYY-MM-DD')
		ORDER BY to_char(created_at, 'YYYY-MM-DD') ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID, nullSince(since))
	if err != nil {
		return nil, fmt.Errorf("failed to get daily patterns: %w", err)
	}
	defer rows.Close()

	var patterns []*DailyPattern
	for rows.Next() {
		pattern := &DailyPattern{}
		if err := rows.Scan(&pattern.Day, &pattern.TotalTime, &pattern.Attempts, &pattern.AverageScore); err != nil {
			return nil, err
		}
		patterns = append(patterns, pattern)
	}

	return patterns, rows.Err()
}

type PeakHour struct {
	Hour         int
	Attempts     int
	AverageScore float64
}

func (r *AnalyticsRepository) PeakHours(ctx context.Context, userID string, since time.Time) ([]*PeakHour, error) {
	query := `
		SELECT EXTRACT(HOUR FROM created_at)::int,
		       COUNT(*),
		       COALESCE(AVG(score), 0)
		FROM user_attempts
		WHERE user_id = $1
		  AND ($2::timestamp IS NULL OR created_at >= $2)
		GROUP BY EXTRACT(HOUR FROM created_at)
		ORDER BY COUNT(*) DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID, nullSince(since))
	if err != nil {
		return nil, fmt.Errorf("failed to get peak hours: %w", err)
	}
	defer rows.Close()

	var hours []*PeakHour
	for rows.Next() {
		hour := &PeakHour{}
		if err := rows.Scan(&hour.Hour, &hour.Attempts, &hour.AverageScore); err != nil {
			return nil, err
		}
		hours = append(hours, hour)
	}

	return hours, rows.Err()
}
