package votes

import "gorm.io/gorm"

// ReconcileStats reports how many rows each reconciliation step touched.
type ReconcileStats struct {
	Posts    int64 `json:"posts"`
	Comments int64 `json:"comments"`
	Users    int64 `json:"users"`
}

// Reconcile recomputes every post's and comment's vote counters and every
// user's karma from the authoritative vote set. Karma is maintained
// incrementally on the request path and can drift if anything bypasses the
// ledger; this full recompute is the only repair. Idempotent — running it
// twice in a row yields identical state.
func (l *Ledger) Reconcile() (ReconcileStats, error) {
	var stats ReconcileStats

	err := l.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(`
			UPDATE posts SET
				upvotes = (SELECT COUNT(*) FROM votes WHERE votes.post_id = posts.id AND votes.vote_type = 1),
				downvotes = (SELECT COUNT(*) FROM votes WHERE votes.post_id = posts.id AND votes.vote_type = -1)`)
		if res.Error != nil {
			return res.Error
		}
		stats.Posts = res.RowsAffected

		res = tx.Exec(`
			UPDATE comments SET
				upvotes = (SELECT COUNT(*) FROM votes WHERE votes.comment_id = comments.id AND votes.vote_type = 1),
				downvotes = (SELECT COUNT(*) FROM votes WHERE votes.comment_id = comments.id AND votes.vote_type = -1)`)
		if res.Error != nil {
			return res.Error
		}
		stats.Comments = res.RowsAffected

		res = tx.Exec(`
			UPDATE users SET karma = COALESCE((
				SELECT SUM(v.vote_type) FROM votes v
				LEFT JOIN posts p ON v.post_id = p.id
				LEFT JOIN comments c ON v.comment_id = c.id
				WHERE p.author_id = users.id OR c.author_id = users.id
			), 0)`)
		if res.Error != nil {
			return res.Error
		}
		stats.Users = res.RowsAffected

		return nil
	})
	if err != nil {
		return ReconcileStats{}, err
	}
	return stats, nil
}
