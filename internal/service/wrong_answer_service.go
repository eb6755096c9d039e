package service

import (
	"context"
	"fmt"
	"time"

	"attempt-service/internal/apperrors"
	"attempt-service/internal/models"
	"attempt-service/internal/repository"
)

type WrongAnswerStore interface {
	ListForReview(ctx context.Context, userID, categoryID, sort string, offset, limit int) ([]*repository.ReviewItem, error)
	CountForReview(ctx context.Context, userID, categoryID string) (int, error)
	CategoryStats(ctx context.Context, userID string) ([]*repository.CategoryStats, error)
	MostMissed(ctx context.Context, userID string, limit int) ([]*repository.ReviewItem, error)
	Trends(ctx context.Context, userID string, since time.Time) ([]*repository.MissTrend, error)
}

type ChoiceLookup interface {
	GetChoicesByQuestionIDs(ctx context.Context, questionIDs []string) (map[string][]*models.Choice, error)
}

const (
	SortRecent   = "recent"
	SortFrequent = "frequent"
)

// WrongAnswerService is the review surface over the miss ledger: which
// questions a user keeps getting wrong, how often, and when.
type WrongAnswerService struct {
	wrongAnswers WrongAnswerStore
	choices      ChoiceLookup
	now          func() time.Time
}

func NewWrongAnswerService(wrongAnswers WrongAnswerStore, choices ChoiceLookup) *WrongAnswerService {
	return &WrongAnswerService{
		wrongAnswers: wrongAnswers,
		choices:      choices,
		now:          time.Now,
	}
}

type ChoiceView struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	IsCorrect   bool   `json:"is_correct"`
	Explanation string `json:"explanation,omitempty"`
}

type WrongAnswerItem struct {
	QuestionID    string        `json:"question_id"`
	QuestionText  string        `json:"questionText"`
	CategoryID    string        `json:"category_id"`
	CategoryName  string        `json:"categoryName"`
	Choices       []*ChoiceView `json:"choices"`
	CorrectChoice *ChoiceView   `json:"correctAnswer"`
	MissCount     int           `json:"count"`
	LastMissed    string        `json:"lastIncorrect"`
}

type WrongAnswerPage struct {
	WrongAnswers []*WrongAnswerItem `json:"wrongAnswers"`
	Total        int                `json:"total"`
	Page         int                `json:"page"`
	Pages        int                `json:"pages"`
}

// List pages through the user's missed questions. Sorting by "recent"
// orders by last miss time; "frequent" orders by how many incorrect
// submissions the user has made for the question.
func (s *WrongAnswerService) List(ctx context.Context, userID, categoryID, sort string, page, limit int) (*WrongAnswerPage, error) {
	switch sort {
	case "", SortRecent:
		sort = SortRecent
	case SortFrequent:
	default:
		return nil, fmt.Errorf("unknown sort %q: %w", sort, apperrors.ErrInvalidInput)
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	items, err := s.wrongAnswers.ListForReview(ctx, userID, categoryID, sort, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}

	total, err := s.wrongAnswers.CountForReview(ctx, userID, categoryID)
	if err != nil {
		return nil, err
	}

	questionIDs := make([]string, 0, len(items))
	for _, item := range items {
		questionIDs = append(questionIDs, item.QuestionID)
	}

	choicesByQuestion, err := s.choices.GetChoicesByQuestionIDs(ctx, questionIDs)
	if err != nil {
		return nil, err
	}

	result := &WrongAnswerPage{
		WrongAnswers: []*WrongAnswerItem{},
		Total:        total,
		Page:         page,
		Pages:        (total + limit - 1) / limit,
	}
	for _, item := range items {
		result.WrongAnswers = append(result.WrongAnswers, s.buildItem(item, choicesByQuestion[item.QuestionID]))
	}

	return result, nil
}

func (s *WrongAnswerService) buildItem(item *repository.ReviewItem, choices []*models.Choice) *WrongAnswerItem {
	view := &WrongAnswerItem{
		QuestionID:   item.QuestionID,
		QuestionText: item.QuestionText,
		CategoryID:   item.CategoryID,
		CategoryName: item.CategoryName,
		Choices:      []*ChoiceView{},
		MissCount:    item.MissCount,
		LastMissed:   item.LastMissed.Format(time.RFC3339),
	}

	for _, choice := range choices {
		choiceView := &ChoiceView{
			ID:        choice.ID,
			Text:      choice.Text,
			IsCorrect: choice.IsCorrect,
		}
		if choice.Explanation.Valid {
			choiceView.Explanation = choice.Explanation.String
		}
		view.Choices = append(view.Choices, choiceView)
		if choice.IsCorrect {
			view.CorrectChoice = choiceView
		}
	}

	return view
}

type WrongAnswerCategoryStats struct {
	CategoryID        string `json:"category_id"`
	CategoryName      string `json:"categoryName"`
	TotalWrongAnswers int    `json:"totalWrongAnswers"`
	UniqueQuestions   int    `json:"uniqueQuestionsCount"`
}

func (s *WrongAnswerService) ByCategory(ctx context.Context, userID string) ([]*WrongAnswerCategoryStats, error) {
	stats, err := s.wrongAnswers.CategoryStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	results := make([]*WrongAnswerCategoryStats, 0, len(stats))
	for _, stat := range stats {
		results = append(results, &WrongAnswerCategoryStats{
			CategoryID:        stat.CategoryID,
			CategoryName:      stat.CategoryName,
			TotalWrongAnswers: stat.TotalWrong,
			UniqueQuestions:   stat.UniqueQuestions,
		})
	}

	return results, nil
}

func (s *WrongAnswerService) MostMissed(ctx context.Context, userID string, limit int) ([]*WrongAnswerItem, error) {
	if limit < 1 {
		limit = 10
	}

	items, err := s.wrongAnswers.MostMissed(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	questionIDs := make([]string, 0, len(items))
	for _, item := range items {
		questionIDs = append(questionIDs, item.QuestionID)
	}

	choicesByQuestion, err := s.choices.GetChoicesByQuestionIDs(ctx, questionIDs)
	if err != nil {
		return nil, err
	}

	results := make([]*WrongAnswerItem, 0, len(items))
	for _, item := range items {
		results = append(results, s.buildItem(item, choicesByQuestion[item.QuestionID]))
	}

	return results, nil
}

type MissTrendPoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

func (s *WrongAnswerService) Trends(ctx context.Context, userID, timeframe string) ([]*MissTrendPoint, error) {
	since, err := windowStart(timeframe, s.now())
	if err != nil {
		return nil, err
	}

	trends, err := s.wrongAnswers.Trends(ctx, userID, since)
	if err != nil {
		return nil, err
	}

	points := make([]*MissTrendPoint, 0, len(trends))
	for _, trend := range trends {
		points = append(points, &MissTrendPoint{
			Date:  trend.Day,
			Count: trend.Count,
		})
	}

	return points, nil
}
