package repository

import (
	"context"
	"database/sql"
	"fmt"
)

type AnswerRepository struct {
	db *sql.DB
}

func NewAnswerRepository(db *sql.DB) *AnswerRepository {
	return &AnswerRepository{db: db}
}

// ListCorrectness resolves every answer of an attempt to its selected
// choice's correctness flag, in submission order.
func (r *AnswerRepository) ListCorrectness(ctx context.Context, attemptID string) ([]bool, error) {
	query := `
		SELECT c.is_correct
		FROM user_answers ua
		JOIN choices c ON ua.selected_choice_id = c.id
		WHERE ua.attempt_id = $1
		ORDER BY ua.created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, attemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to list answer correctness: %w", err)
	}
	defer rows.Close()

	var results []bool
	for rows.Next() {
		var correct bool
		if err := rows.Scan(&correct); err != nil {
			return nil, err
		}
		results = append(results, correct)
	}

	return results, rows.Err()
}
