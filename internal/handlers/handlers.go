package handlers

import (
	"gorm.io/gorm"

	"github.com/facehub/backend/internal/votes"
	"github.com/facehub/backend/internal/webhooks"
)

// Handler combines all handler types
type Handler struct {
	Auth    *AuthHandler
	Post    *PostHandler
	Comment *CommentHandler
	User    *UserHandler
	Webhook *WebhookHandler
	Admin   *AdminHandler
}

// NewHandler creates a unified handler with all sub-handlers
func NewHandler(db *gorm.DB, ledger *votes.Ledger, events *webhooks.Dispatcher) *Handler {
	return &Handler{
		Auth:    NewAuthHandler(db),
		Post:    NewPostHandler(db, ledger, events),
		Comment: NewCommentHandler(db, ledger, events),
		User:    NewUserHandler(db, events),
		Webhook: NewWebhookHandler(db, &webhooks.EgressPolicy{}),
		Admin:   NewAdminHandler(ledger),
	}
}
