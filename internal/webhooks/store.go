package webhooks

import (
	"context"

	"gorm.io/gorm"

	"github.com/facehub/backend/internal/models"
)

// SubscriptionStore is the dispatcher's view of subscription state. It only
// ever reads active subscriptions and writes the active flag and the
// consecutive-failure counter.
type SubscriptionStore interface {
	// ListActive returns the active subscriptions owned by ownerID whose
	// event set contains event.
	ListActive(ctx context.Context, ownerID int, event EventType) ([]models.WebhookSubscription, error)

	// Disable flips a subscription inactive without touching its failure
	// count. Used for endpoints that fail the egress policy.
	Disable(ctx context.Context, id int) error

	// RecordFailure increments the consecutive-failure counter and
	// deactivates the subscription once the counter reaches threshold.
	RecordFailure(ctx context.Context, id int, threshold int) error

	// ResetFailures zeroes the counter after a successful delivery.
	ResetFailures(ctx context.Context, id int) error
}

// GormSubscriptionStore backs SubscriptionStore with the webhook_subscriptions table.
type GormSubscriptionStore struct {
	DB *gorm.DB
}

func (s *GormSubscriptionStore) ListActive(ctx context.Context, ownerID int, event EventType) ([]models.WebhookSubscription, error) {
	var all []models.WebhookSubscription
	err := s.DB.WithContext(ctx).
		Where("owner_id = ? AND active = ?", ownerID, true).
		Find(&all).Error
	if err != nil {
		return nil, err
	}

	// Event sets are small comma-separated lists; filter in memory rather
	// than matching substrings in SQL.
	var matched []models.WebhookSubscription
	for _, sub := range all {
		for _, name := range sub.EventList() {
			if EventType(name) == event {
				matched = append(matched, sub)
				break
			}
		}
	}
	return matched, nil
}

func (s *GormSubscriptionStore) Disable(ctx context.Context, id int) error {
	return s.DB.WithContext(ctx).
		Model(&models.WebhookSubscription{}).
		Where("id = ?", id).
		Update("active", false).Error
}

func (s *GormSubscriptionStore) RecordFailure(ctx context.Context, id int, threshold int) error {
	return s.DB.WithContext(ctx).
		Model(&models.WebhookSubscription{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"failure_count": gorm.Expr("failure_count + 1"),
			"active":        gorm.Expr("failure_count + 1 < ?", threshold),
		}).Error
}

func (s *GormSubscriptionStore) ResetFailures(ctx context.Context, id int) error {
	return s.DB.WithContext(ctx).
		Model(&models.WebhookSubscription{}).
		Where("id = ?", id).
		Update("failure_count", 0).Error
}
