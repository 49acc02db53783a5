package repository

import (
	"time"

	"propdesk/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WebhookEventRepository struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

// InsertIfNew returns false when the event id was already recorded, which
// means the delivery is a duplicate and must be skipped.
func (r *WebhookEventRepository) InsertIfNew(eventID, eventType string) (bool, error) {
	res := r.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.WebhookEvent{StripeEventID: eventID, EventType: eventType})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *WebhookEventRepository) MarkProcessed(eventID string, procErr error) error {
	now := time.Now()
	updates := map[string]interface{}{"processed_at": &now}
	if procErr != nil {
		updates["error"] = procErr.Error()
	}
	return r.db.Model(&models.WebhookEvent{}).Where("stripe_event_id = ?", eventID).Updates(updates).Error
}
