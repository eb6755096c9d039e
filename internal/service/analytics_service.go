package service

import (
	"context"
	"time"

	"attempt-service/internal/models"
	"attempt-service/internal/repository"
)

type AnalyticsStore interface {
	OverallPerformance(ctx context.Context, userID string, since time.Time, questionIDs []string) (*repository.OverallPerformance, error)
	CategoryPerformance(ctx context.Context, userID string, since time.Time, questionIDs []string) ([]*repository.CategoryPerformance, error)
	AttemptedCountByCategory(ctx context.Context, userID string, categoryIDs []string) (map[string]int, error)
	WeakAreaCounts(ctx context.Context, userID string, categoryIDs []string, limit int) ([]*repository.WeakAreaCount, error)
	WeakAreaSamples(ctx context.Context, userID string, categoryIDs []string, perCategory int) (map[string][]*repository.MissedQuestion, error)
	DailyPatterns(ctx context.Context, userID string, since time.Time) ([]*repository.DailyPattern, error)
	PeakHours(ctx context.Context, userID string, since time.Time) ([]*repository.PeakHour, error)
}

type CatalogStore interface {
	GetCategoriesBySubject(ctx context.Context, subjectID string) ([]*models.Category, error)
	GetQuestionIDsByCategories(ctx context.Context, categoryIDs []string) ([]string, error)
	CountQuestionsByCategory(ctx context.Context, categoryIDs []string) (map[string]int, error)
}

const weakAreaSampleSize = 5

// AnalyticsService is the read side: every operation joins attempt,
// answer and miss data without mutating any of it, scoped to one user.
type AnalyticsService struct {
	analytics AnalyticsStore
	catalog   CatalogStore
	now       func() time.Time
}

func NewAnalyticsService(analytics AnalyticsStore, catalog CatalogStore) *AnalyticsService {
	return &AnalyticsService{
		analytics: analytics,
		catalog:   catalog,
		now:       time.Now,
	}
}

// questionScope expands a subject filter into the ids of its questions,
// top-down through categories. nil means no filter; an empty (non-nil)
// slice means the subject has no questions and nothing should match.
func (s *AnalyticsService) questionScope(ctx context.Context, subjectID string) ([]string, error) {
	if subjectID == "" {
		return nil, nil
	}

	categories, err := s.catalog.GetCategoriesBySubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	categoryIDs := make([]string, 0, len(categories))
	for _, category := range categories {
		categoryIDs = append(categoryIDs, category.ID)
	}

	questionIDs, err := s.catalog.GetQuestionIDsByCategories(ctx, categoryIDs)
	if err != nil {
		return nil, err
	}
	if questionIDs == nil {
		questionIDs = []string{}
	}

	return questionIDs, nil
}

func (s *AnalyticsService) categoryScope(ctx context.Context, subjectID string) ([]string, error) {
	if subjectID == "" {
		return nil, nil
	}

	categories, err := s.catalog.GetCategoriesBySubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	categoryIDs := make([]string, 0, len(categories))
	for _, category := range categories {
		categoryIDs = append(categoryIDs, category.ID)
	}

	return categoryIDs, nil
}

type OverallStats struct {
	TotalAnswers   int     `json:"totalAnswers"`
	CorrectAnswers int     `json:"correctAnswers"`
	AverageScore   float64 `json:"averageScore"`
}

type CategoryAccuracy struct {
	CategoryID     string  `json:"category_id"`
	CategoryName   string  `json:"categoryName"`
	TotalQuestions int     `json:"totalQuestions"`
	CorrectAnswers int     `json:"correctAnswers"`
	Accuracy       float64 `json:"accuracy"`
}

type PerformanceReport struct {
	Overall             OverallStats        `json:"overall"`
	CategoryPerformance []*CategoryAccuracy `json:"categoryPerformance"`
}

// Performance computes overall answer totals plus a per-category accuracy
// breakdown. Categories with no matching answers are omitted.
func (s *AnalyticsService) Performance(ctx context.Context, userID, timeframe, subjectID string) (*PerformanceReport, error) {
	since, err := windowStart(timeframe, s.now())
	if err != nil {
		return nil, err
	}

	questionIDs, err := s.questionScope(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	overall, err := s.analytics.OverallPerformance(ctx, userID, since, questionIDs)
	if err != nil {
		return nil, err
	}

	byCategory, err := s.analytics.CategoryPerformance(ctx, userID, since, questionIDs)
	if err != nil {
		return nil, err
	}

	report := &PerformanceReport{
		Overall: OverallStats{
			TotalAnswers:   overall.TotalAnswers,
			CorrectAnswers: overall.CorrectAnswers,
		},
		CategoryPerformance: []*CategoryAccuracy{},
	}
	if overall.TotalAnswers > 0 {
		report.Overall.AverageScore = float64(overall.CorrectAnswers) / float64(overall.TotalAnswers)
	}

	for _, row := range byCategory {
		accuracy := &CategoryAccuracy{
			CategoryID:     row.CategoryID,
			CategoryName:   row.CategoryName,
			TotalQuestions: row.TotalAnswers,
			CorrectAnswers: row.CorrectAnswers,
		}
		if row.TotalAnswers > 0 {
			accuracy.Accuracy = float64(row.CorrectAnswers) / float64(row.TotalAnswers) * 100
		}
		report.CategoryPerformance = append(report.CategoryPerformance, accuracy)
	}

	return report, nil
}

type CategoryProgress struct {
	CategoryID         string  `json:"category_id"`
	CategoryName       string  `json:"categoryName"`
	TotalQuestions     int     `json:"totalQuestions"`
	AttemptedQuestions int     `json:"attemptedQuestions"`
	ProgressPercentage float64 `json:"progressPercentage"`
}

// Progress reports, for every category of a subject, how many of its
// questions the user has answered at least once.
func (s *AnalyticsService) Progress(ctx context.Context, userID, subjectID string) ([]*CategoryProgress, error) {
	categories, err := s.catalog.GetCategoriesBySubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	categoryIDs := make([]string, 0, len(categories))
	for _, category := range categories {
		categoryIDs = append(categoryIDs, category.ID)
	}

	totals, err := s.catalog.CountQuestionsByCategory(ctx, categoryIDs)
	if err != nil {
		return nil, err
	}

	attempted, err := s.analytics.AttemptedCountByCategory(ctx, userID, categoryIDs)
	if err != nil {
		return nil, err
	}

	progress := make([]*CategoryProgress, 0, len(categories))
	for _, category := range categories {
		entry := &CategoryProgress{
			CategoryID:         category.ID,
			CategoryName:       category.Name,
			TotalQuestions:     totals[category.ID],
			AttemptedQuestions: attempted[category.ID],
		}
		if entry.TotalQuestions > 0 {
			entry.ProgressPercentage = float64(entry.AttemptedQuestions) / float64(entry.TotalQuestions) * 100
		}
		progress = append(progress, entry)
	}

	return progress, nil
}

type WeakAreaQuestion struct {
	QuestionID string `json:"question_id"`
	Text       string `json:"text"`
}

type WeakArea struct {
	CategoryID          string              `json:"category_id"`
	CategoryName        string              `json:"categoryName"`
	TotalWrongAnswers   int                 `json:"totalWrongAnswers"`
	MostMissedQuestions []*WeakAreaQuestion `json:"mostMissedQuestions"`
}

// WeakAreas ranks categories by the user's incorrect-submission volume
// and attaches up to five representative missed questions each.
func (s *AnalyticsService) WeakAreas(ctx context.Context, userID, subjectID string) ([]*WeakArea, error) {
	return s.weakAreas(ctx, userID, subjectID, 0)
}

func (s *AnalyticsService) weakAreas(ctx context.Context, userID, subjectID string, limit int) ([]*WeakArea, error) {
	categoryIDs, err := s.categoryScope(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	counts, err := s.analytics.WeakAreaCounts(ctx, userID, categoryIDs, limit)
	if err != nil {
		return nil, err
	}

	samples, err := s.analytics.WeakAreaSamples(ctx, userID, categoryIDs, weakAreaSampleSize)
	if err != nil {
		return nil, err
	}

	areas := make([]*WeakArea, 0, len(counts))
	for _, count := range counts {
		area := &WeakArea{
			CategoryID:          count.CategoryID,
			CategoryName:        count.CategoryName,
			TotalWrongAnswers:   count.TotalWrong,
			MostMissedQuestions: []*WeakAreaQuestion{},
		}
		for _, question := range samples[count.CategoryID] {
			area.MostMissedQuestions = append(area.MostMissedQuestions, &WeakAreaQuestion{
				QuestionID: question.QuestionID,
				Text:       question.Text,
			})
		}
		areas = append(areas, area)
	}

	return areas, nil
}

type DailyPattern struct {
	Date         string  `json:"date"`
	TotalTime    int     `json:"totalTime"`
	Attempts     int     `json:"attempts"`
	AverageScore float64 `json:"averageScore"`
}

type PeakStudyTime struct {
	Hour         int     `json:"hour"`
	Attempts     int     `json:"attempts"`
	AverageScore float64 `json:"averageScore"`
}

type StudyPatternsReport struct {
	DailyPatterns  []*DailyPattern  `json:"dailyPatterns"`
	PeakStudyTimes []*PeakStudyTime `json:"peakStudyTimes"`
}

// StudyPatterns buckets the user's attempts by calendar day (ascending)
// and by hour of day (busiest first) over the timeframe window. Days with
// no activity produce no point.
func (s *AnalyticsService) StudyPatterns(ctx context.Context, userID, timeframe string) (*StudyPatternsReport, error) {
	since, err := windowStart(timeframe, s.now())
	if err != nil {
		return nil, err
	}

	daily, err := s.analytics.DailyPatterns(ctx, userID, since)
	if err != nil {
		return nil, err
	}

	hours, err := s.analytics.PeakHours(ctx, userID, since)
	if err != nil {
		return nil, err
	}

	report := &StudyPatternsReport{
		DailyPatterns:  []*DailyPattern{},
		PeakStudyTimes: []*PeakStudyTime{},
	}
	for _, day := range daily {
		report.DailyPatterns = append(report.DailyPatterns, &DailyPattern{
			Date:         day.Day,
			TotalTime:    day.TotalTime,
			Attempts:     day.Attempts,
			AverageScore: day.AverageScore,
		})
	}
	for _, hour := range hours {
		report.PeakStudyTimes = append(report.PeakStudyTimes, &PeakStudyTime{
			Hour:         hour.Hour,
			Attempts:     hour.Attempts,
			AverageScore: hour.AverageScore,
		})
	}

	return report, nil
}
