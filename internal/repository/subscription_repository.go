package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"attempt-service/internal/models"
)

// SubscriptionRepository is a read-only view of the subscription
// collaborator, consumed by the dashboard only.
type SubscriptionRepository struct {
	db *sql.DB
}

func NewSubscriptionRepository(db *sql.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) GetActiveByUser(ctx context.Context, userID string, now time.Time) ([]*models.Subscription, error) {
	query := `
		SELECT s.id, s.user_id, s.subject_id, sub.name, s.end_date
		FROM subscriptions s
		JOIN subjects sub ON s.subject_id = sub.id
		WHERE s.user_id = $1 AND s.end_date > $2
		ORDER BY s.end_date ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get active subscriptions: %w", err)
	}
	defer rows.Close()

	var subscriptions []*models.Subscription
	for rows.Next() {
		subscription := &models.Subscription{}
		err := rows.Scan(
			&subscription.ID,
			&subscription.UserID,
			&subscription.SubjectID,
			&subscription.SubjectName,
			&subscription.EndDate,
		)
		if err != nil {
			return nil, err
		}
		subscriptions = append(subscriptions, subscription)
	}

	return subscriptions, rows.Err()
}
