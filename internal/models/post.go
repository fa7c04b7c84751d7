package models

import "time"

type Post struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"not null" json:"title"`
	Body      string    `json:"body,omitempty"`
	AuthorID  int       `json:"author_id"`
	User      User      `gorm:"foreignKey:AuthorID" json:"user"`
	Upvotes   int       `gorm:"default:0" json:"upvotes"`
	Downvotes int       `gorm:"default:0" json:"downvotes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Score is the derived vote total; never stored.
func (p *Post) Score() int {
	return p.Upvotes - p.Downvotes
}

type CreatePostRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}
