package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"attempt-service/internal/models"
	"attempt-service/internal/repository"
)

type DashboardAttemptStore interface {
	ListByUser(ctx context.Context, userID string, offset, limit int) ([]*repository.AttemptWithQuiz, error)
	Summary(ctx context.Context, userID string) (*repository.AttemptSummary, error)
}

type SubscriptionStore interface {
	GetActiveByUser(ctx context.Context, userID string, now time.Time) ([]*models.Subscription, error)
}

type NotificationStore interface {
	CountUnread(ctx context.Context, userID string) (int, error)
}

type BookmarkStore interface {
	CountByUser(ctx context.Context, userID string) (int, error)
}

type WeakAreaCounter interface {
	WeakAreaCounts(ctx context.Context, userID string, categoryIDs []string, limit int) ([]*repository.WeakAreaCount, error)
}

type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

const (
	dashboardRecentLimit   = 5
	dashboardWeakAreaLimit = 3
	dashboardCacheTTL      = time.Minute
)

func dashboardCacheKey(userID string) string {
	return "dashboard:stats:" + userID
}

// DashboardService fans out to the attempt stores and the external
// collaborators (subscriptions, notifications, bookmarks) to build one
// summary view. The queries need not observe a single snapshot.
type DashboardService struct {
	attempts      DashboardAttemptStore
	weakAreas     WeakAreaCounter
	subscriptions SubscriptionStore
	notifications NotificationStore
	bookmarks     BookmarkStore
	cache         Cache
	now           func() time.Time
}

func NewDashboardService(
	attempts DashboardAttemptStore,
	weakAreas WeakAreaCounter,
	subscriptions SubscriptionStore,
	notifications NotificationStore,
	bookmarks BookmarkStore,
	cache Cache,
) *DashboardService {
	return &DashboardService{
		attempts:      attempts,
		weakAreas:     weakAreas,
		subscriptions: subscriptions,
		notifications: notifications,
		bookmarks:     bookmarks,
		cache:         cache,
		now:           time.Now,
	}
}

type RecentAttempt struct {
	ID               string   `json:"id"`
	QuizID           string   `json:"quiz_id"`
	QuizName         string   `json:"quizName"`
	Status           string   `json:"status"`
	Score            *float64 `json:"score"`
	TimeSpent        int      `json:"timeSpent"`
	QuestionPosition int      `json:"questionPosition"`
	CreatedAt        string   `json:"createdAt"`
}

type ActiveSubscription struct {
	ID          string `json:"id"`
	SubjectID   string `json:"subject_id"`
	SubjectName string `json:"subjectName"`
	EndDate     string `json:"endDate"`
}

type PerformanceSummary struct {
	TotalAttempts    int     `json:"totalAttempts"`
	AverageScore     float64 `json:"averageScore"`
	TotalTimeSpent   int     `json:"totalTimeSpent"`
	CompletedQuizzes int     `json:"completedQuizzes"`
}

type DashboardWeakArea struct {
	CategoryID   string `json:"category_id"`
	CategoryName string `json:"categoryName"`
	Count        int    `json:"count"`
}

type DashboardStats struct {
	RecentActivity      []*RecentAttempt      `json:"recentActivity"`
	ActiveSubscriptions []*ActiveSubscription `json:"activeSubscriptions"`
	PerformanceSummary  PerformanceSummary    `json:"performanceSummary"`
	UnreadNotifications int                   `json:"unreadNotifications"`
	WeakAreas           []*DashboardWeakArea  `json:"weakAreas"`
	BookmarkedCount     int                   `json:"bookmarkedCount"`
}

func (s *DashboardService) Stats(ctx context.Context, userID string) (*DashboardStats, error) {
	if cached := s.readCache(ctx, userID); cached != nil {
		return cached, nil
	}

	recent, err := s.attempts.ListByUser(ctx, userID, 0, dashboardRecentLimit)
	if err != nil {
		return nil, err
	}

	summary, err := s.attempts.Summary(ctx, userID)
	if err != nil {
		return nil, err
	}

	subscriptions, err := s.subscriptions.GetActiveByUser(ctx, userID, s.now())
	if err != nil {
		return nil, err
	}

	unread, err := s.notifications.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}

	weakCounts, err := s.weakAreas.WeakAreaCounts(ctx, userID, nil, dashboardWeakAreaLimit)
	if err != nil {
		return nil, err
	}

	bookmarked, err := s.bookmarks.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{
		RecentActivity:      []*RecentAttempt{},
		ActiveSubscriptions: []*ActiveSubscription{},
		PerformanceSummary: PerformanceSummary{
			TotalAttempts:    summary.TotalAttempts,
			AverageScore:     summary.AverageScore,
			TotalTimeSpent:   summary.TotalTimeSpent,
			CompletedQuizzes: summary.CompletedCount,
		},
		UnreadNotifications: unread,
		WeakAreas:           []*DashboardWeakArea{},
		BookmarkedCount:     bookmarked,
	}

	for _, item := range recent {
		attempt := item.Attempt
		view := &RecentAttempt{
			ID:               attempt.ID,
			QuizID:           attempt.QuizID,
			QuizName:         item.QuizName,
			Status:           attempt.Status,
			TimeSpent:        attempt.TimeSpent,
			QuestionPosition: attempt.QuestionPosition,
			CreatedAt:        attempt.CreatedAt.Format(time.RFC3339),
		}
		if attempt.Score.Valid {
			score := attempt.Score.Float64
			view.Score = &score
		}
		stats.RecentActivity = append(stats.RecentActivity, view)
	}

	for _, subscription := range subscriptions {
		stats.ActiveSubscriptions = append(stats.ActiveSubscriptions, &ActiveSubscription{
			ID:          subscription.ID,
			SubjectID:   subscription.SubjectID,
			SubjectName: subscription.SubjectName,
			EndDate:     subscription.EndDate.Format(time.RFC3339),
		})
	}

	for _, count := range weakCounts {
		stats.WeakAreas = append(stats.WeakAreas, &DashboardWeakArea{
			CategoryID:   count.CategoryID,
			CategoryName: count.CategoryName,
			Count:        count.TotalWrong,
		})
	}

	s.writeCache(ctx, userID, stats)

	return stats, nil
}

func (s *DashboardService) readCache(ctx context.Context, userID string) *DashboardStats {
	if s.cache == nil {
		return nil
	}

	cached, err := s.cache.Get(ctx, dashboardCacheKey(userID))
	if err != nil {
		return nil
	}

	stats := &DashboardStats{}
	if err := json.Unmarshal([]byte(cached), stats); err != nil {
		log.Printf("Failed to decode cached dashboard stats for user %s: %v", userID, err)
		return nil
	}

	return stats
}

func (s *DashboardService) writeCache(ctx context.Context, userID string, stats *DashboardStats) {
	if s.cache == nil {
		return
	}

	encoded, err := json.Marshal(stats)
	if err != nil {
		log.Printf("Failed to encode dashboard stats for user %s: %v", userID, err)
		return
	}

	if err := s.cache.Set(ctx, dashboardCacheKey(userID), encoded, dashboardCacheTTL); err != nil {
		log.Printf("Failed to cache dashboard stats for user %s: %v", userID, err)
	}
}
