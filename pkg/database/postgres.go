package database

import (
	"context"
	"database/sql"
	"fmt"

	"attempt-service/config"

	_ "github.com/lib/pq"
)

type PostgresClient struct {
	db     *sql.DB
	config *config.DBConfig
}

func NewPostgresClient(cfg *config.DBConfig) (*PostgresClient, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresClient{
		db:     db,
		config: cfg,
	}, nil
}

func (c *PostgresClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func (c *PostgresClient) GetDB() *sql.DB {
	return c.db
}

func (c *PostgresClient) InitSchema(ctx context.Context) error {
	createEntityTables := `
		CREATE TABLE IF NOT EXISTS subjects (
			id VARCHAR(255) PRIMARY KEY,
			name VARCHAR(255) NOT NULL
		);

		CREATE TABLE IF NOT EXISTS categories (
			id VARCHAR(255) PRIMARY KEY,
			subject_id VARCHAR(255) NOT NULL,
			name VARCHAR(255) NOT NULL,
			FOREIGN KEY (subject_id) REFERENCES subjects(id) ON DELETE CASCADE
		);
		CREATE INDEX IF NOT EXISTS idx_categories_subject_id ON categories(subject_id);

		CREATE TABLE IF NOT EXISTS questions (
			id VARCHAR(255) PRIMARY KEY,
			category_id VARCHAR(255) NOT NULL,
			text TEXT NOT NULL,
			FOREIGN KEY (category_id) REFERENCES categories(id) ON DELETE CASCADE
		);
		CREATE INDEX IF NOT EXISTS idx_questions_category_id ON questions(category_id);

		CREATE TABLE IF NOT EXISTS choices (
			id VARCHAR(255) PRIMARY KEY,
			question_id VARCHAR(255) NOT NULL,
			text TEXT NOT NULL,
			is_correct BOOLEAN NOT NULL DEFAULT FALSE,
			explanation TEXT,
			FOREIGN KEY (question_id) REFERENCES questions(id) ON DELETE CASCADE
		);
		CREATE INDEX IF NOT EXISTS idx_choices_question_id ON choices(question_id);

		CREATE TABLE IF NOT EXISTS quizzes (
			id VARCHAR(255) PRIMARY KEY,
			name VARCHAR(255) NOT NULL
		);

		CREATE TABLE IF NOT EXISTS quiz_questions (
			quiz_id VARCHAR(255) NOT NULL,
			question_id VARCHAR(255) NOT NULL,
			position INTEGER NOT NULL,
			PRIMARY KEY (quiz_id, question_id),
			FOREIGN KEY (quiz_id) REFERENCES quizzes(id) ON DELETE CASCADE,
			FOREIGN KEY (question_id) REFERENCES questions(id) ON DELETE CASCADE
		);
		CREATE INDEX IF NOT EXISTS idx_quiz_questions_quiz_id ON quiz_questions(quiz_id);
	`

	createAttemptTables := `
		CREATE TABLE IF NOT EXISTS user_attempts (
			id VARCHAR(255) PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			quiz_id VARCHAR(255) NOT NULL,
			status VARCHAR(50) NOT NULL DEFAULT 'not_started',
			question_position INTEGER NOT NULL DEFAULT 1,
			time_spent INTEGER NOT NULL DEFAULT 0,
			score DOUBLE PRECISION,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (quiz_id) REFERENCES quizzes(id) ON DELETE CASCADE
		);
		CREATE INDEX IF NOT EXISTS idx_user_attempts_user_id ON user_attempts(user_id);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_user_attempts_open
			ON user_attempts(user_id, quiz_id)
			WHERE status IN ('not_started', 'in_progress');

		CREATE TABLE IF NOT EXISTS user_answers (
			id VARCHAR(255) PRIMARY KEY,
			attempt_id VARCHAR(255) NOT NULL,
			question_id VARCHAR(255) NOT NULL,
			selected_choice_id VARCHAR(255) NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (attempt_id, question_id),
			FOREIGN KEY (attempt_id) REFERENCES user_attempts(id) ON DELETE CASCADE,
			FOREIGN KEY (question_id) REFERENCES questions(id) ON DELETE CASCADE,
			FOREIGN KEY (selected_choice_id) REFERENCES choices(id) ON DELETE CASCADE
		);
		CREATE INDEX IF NOT EXISTS idx_user_answers_attempt_id ON user_answers(attempt_id);
		CREATE INDEX IF NOT EXISTS idx_user_answers_question_id ON user_answers(question_id);

		CREATE TABLE IF NOT EXISTS wrong_answers (
			id VARCHAR(255) PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			question_id VARCHAR(255) NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (user_id, question_id),
			FOREIGN KEY (question_id) REFERENCES questions(id) ON DELETE CASCADE
		);
		CREATE INDEX IF NOT EXISTS idx_wrong_answers_user_id ON wrong_answers(user_id);
	`

	createCollaboratorTables := `
		CREATE TABLE IF NOT EXISTS subscriptions (
			id VARCHAR(255) PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			subject_id VARCHAR(255) NOT NULL,
			end_date TIMESTAMP NOT NULL,
			FOREIGN KEY (subject_id) REFERENCES subjects(id) ON DELETE CASCADE
		);
		CREATE INDEX IF NOT EXISTS idx_subscriptions_user_id ON subscriptions(user_id);

		CREATE TABLE IF NOT EXISTS notifications (
			id VARCHAR(255) PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			read BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_notifications_user_id ON notifications(user_id);

		CREATE TABLE IF NOT EXISTS bookmarked_questions (
			id VARCHAR(255) PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			question_id VARCHAR(255) NOT NULL,
			UNIQUE (user_id, question_id),
			FOREIGN KEY (question_id) REFERENCES questions(id) ON DELETE CASCADE
		);
		CREATE INDEX IF NOT EXISTS idx_bookmarked_questions_user_id ON bookmarked_questions(user_id);
	`

	if _, err := c.db.ExecContext(ctx, createEntityTables); err != nil {
		return fmt.Errorf("failed to create entity tables: %w", err)
	}

	if _, err := c.db.ExecContext(ctx, createAttemptTables); err != nil {
		return fmt.Errorf("failed to create attempt tables: %w", err)
	}

	if _, err := c.db.ExecContext(ctx, createCollaboratorTables); err != nil {
		return fmt.Errorf("failed to create collaborator tables: %w", err)
	}

	return nil
}
