package repository

import (
	"context"
	"database/sql"
	"fmt"

	"attempt-service/internal/apperrors"
	"attempt-service/internal/models"

	"github.com/lib/pq"
)

// EntityRepository reads quiz/question/choice/category/subject records.
// Ownership of these tables lies with the authoring subsystem; nothing
// here mutates them.
type EntityRepository struct {
	db *sql.DB
}

func NewEntityRepository(db *sql.DB) *EntityRepository {
	return &EntityRepository{db: db}
}

func (r *EntityRepository) GetQuizByID(ctx context.Context, quizID string) (*models.Quiz, error) {
	query := `SELECT id, name FROM quizzes WHERE id = $1`

	quiz := &models.Quiz{}
	err := r.db.QueryRowContext(ctx, query, quizID).Scan(&quiz.ID, &quiz.Name)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("quiz %s: %w", quizID, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	return quiz, nil
}

func (r *EntityRepository) GetChoiceByID(ctx context.Context, choiceID string) (*models.Choice, error) {
	query := `SELECT id, question_id, text, is_correct, explanation FROM choices WHERE id = $1`

	choice := &models.Choice{}
	err := r.db.QueryRowContext(ctx, query, choiceID).Scan(
		&choice.ID,
		&choice.QuestionID,
		&choice.Text,
		&choice.IsCorrect,
		&choice.Explanation,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("choice %s: %w", choiceID, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get choice: %w", err)
	}

	return choice, nil
}

func (r *EntityRepository) GetCategoriesBySubject(ctx context.Context, subjectID string) ([]*models.Category, error) {
	query := `SELECT id, subject_id, name FROM categories WHERE subject_id = $1 ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, query, subjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		category := &models.Category{}
		if err := rows.Scan(&category.ID, &category.SubjectID, &category.Name); err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}

	return categories, rows.Err()
}

// GetQuestionIDsByCategories expands a category id set into the ids of
// every question under those categories. Subject-scoped analytics resolve
// their filter through this before touching the fact tables.
func (r *EntityRepository) GetQuestionIDsByCategories(ctx context.Context, categoryIDs []string) ([]string, error) {
	if len(categoryIDs) == 0 {
		return nil, nil
	}

	query := `SELECT id FROM questions WHERE category_id = ANY($1)`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(categoryIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to get question ids: %w", err)
	}
	defer rows.Close()

	var questionIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		questionIDs = append(questionIDs, id)
	}

	return questionIDs, rows.Err()
}

func (r *EntityRepository) CountQuestionsByCategory(ctx context.Context, categoryIDs []string) (map[string]int, error) {
	if len(categoryIDs) == 0 {
		return map[string]int{}, nil
	}

	query := `
		SELECT category_id, COUNT(*)
		FROM questions
		WHERE category_id = ANY($1)
		GROUP BY category_id
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(categoryIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to count questions by category: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]int)
	for rows.Next() {
		var categoryID string
		var total int
		if err := rows.Scan(&categoryID, &total); err != nil {
			return nil, err
		}
		totals[categoryID] = total
	}

	return totals, rows.Err()
}

func (r *EntityRepository) GetChoicesByQuestionIDs(ctx context.Context, questionIDs []string) (map[string][]*models.Choice, error) {
	if len(questionIDs) == 0 {
		return map[string][]*models.Choice{}, nil
	}

	query := `
		SELECT id, question_id, text, is_correct, explanation
		FROM choices
		WHERE question_id = ANY($1)
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(questionIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to get choices: %w", err)
	}
	defer rows.Close()

	choices := make(map[string][]*models.Choice)
	for rows.Next() {
		choice := &models.Choice{}
		err := rows.Scan(
			&choice.ID,
			&choice.QuestionID,
			&choice.Text,
			&choice.IsCorrect,
			&choice.Explanation,
		)
		if err != nil {
			return nil, err
		}
		choices[choice.QuestionID] = append(choices[choice.QuestionID], choice)
	}

	return choices, rows.Err()
}
