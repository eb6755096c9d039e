package models

import (
	"database/sql"
	"time"
)

const (
	StatusNotStarted = "not_started"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

type Attempt struct {
	ID               string
	UserID           string
	QuizID           string
	Status           string
	QuestionPosition int
	TimeSpent        int
	Score            sql.NullFloat64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Open reports whether the attempt still accepts answers.
func (a *Attempt) Open() bool {
	return a.Status == StatusNotStarted || a.Status == StatusInProgress
}

type Answer struct {
	ID               string
	AttemptID        string
	QuestionID       string
	SelectedChoiceID string
	CreatedAt        time.Time
}

// WrongAnswer is the per-(user, question) miss ledger row. Repeat misses
// bump UpdatedAt instead of inserting a second row.
type WrongAnswer struct {
	ID         string
	UserID     string
	QuestionID string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Quiz struct {
	ID   string
	Name string
}

type Question struct {
	ID         string
	CategoryID string
	Text       string
}

type Choice struct {
	ID          string
	QuestionID  string
	Text        string
	IsCorrect   bool
	Explanation sql.NullString
}

type Category struct {
	ID        string
	SubjectID string
	Name      string
}

type Subject struct {
	ID   string
	Name string
}

type Subscription struct {
	ID          string
	UserID      string
	SubjectID   string
	SubjectName string
	EndDate     time.Time
}
