package models

import "time"

// Vote records one user's vote on a single post or comment. Exactly one of
// PostID/CommentID is set; the partial unique indexes enforce at most one
// vote per (user, target). A vote is created on first cast, flipped in place
// on direction change, and deleted on toggle-off.
type Vote struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	UserID    int       `gorm:"not null;uniqueIndex:uq_vote_user_post;uniqueIndex:uq_vote_user_comment" json:"user_id"`
	PostID    *int      `gorm:"uniqueIndex:uq_vote_user_post" json:"post_id,omitempty"`
	CommentID *int      `gorm:"uniqueIndex:uq_vote_user_comment" json:"comment_id,omitempty"`
	VoteType  int       `gorm:"not null" json:"vote_type"` // 1 = upvote, -1 = downvote
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
