package models

import (
	"strings"
	"time"
)

// WebhookSubscription is a user-registered callback endpoint plus the event
// types it wants. The dispatcher is the only writer of Active and
// FailureCount; once Active goes false the subscription stays dead until the
// owner re-registers.
type WebhookSubscription struct {
	ID      int    `gorm:"primaryKey" json:"id"`
	OwnerID int    `gorm:"not null;index" json:"owner_id"`
	URL     string `gorm:"size:2000;not null" json:"url"`
	Secret  string `gorm:"not null" json:"-"`
	// Comma-separated event names, e.g. "mention,vote.on_my_post".
	Events       string    `gorm:"not null" json:"events"`
	Active       bool      `gorm:"default:true" json:"active"`
	FailureCount int       `gorm:"default:0" json:"failure_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// EventList splits the stored Events string, dropping empty entries.
func (w *WebhookSubscription) EventList() []string {
	var out []string
	for _, e := range strings.Split(w.Events, ",") {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}
	return out
}

type CreateWebhookRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
}
