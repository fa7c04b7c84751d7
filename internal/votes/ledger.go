package votes

import (
	"errors"

	"gorm.io/gorm"

	"github.com/facehub/backend/internal/models"
)

// Result is the outcome of a CastVote call, used by handlers for the
// response message only.
type Result string

const (
	ResultCast    Result = "cast"
	ResultUpdated Result = "updated"
	ResultRemoved Result = "removed"
)

var (
	// ErrTargetNotFound means the voted post or comment does not exist.
	ErrTargetNotFound = errors.New("vote target not found")

	// ErrInvalidTarget means the caller supplied both a post and a
	// comment target, or neither.
	ErrInvalidTarget = errors.New("vote must target exactly one post or comment")
)

// Ledger owns the per-(user, target) vote records and the three derived
// counters they drive: target upvotes, target downvotes, and target-author
// karma. All three are mutated together inside one transaction per vote
// transition; the counters are never recomputed from a scan on the request
// path (Reconcile is the administrative repair for drift).
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// CastVote applies one vote action by userID on a post or comment.
// Exactly one of postID/commentID must be non-nil and voteType must be 1 or
// -1. The three outcomes:
//
//   - no prior vote: insert it, bump the matching counter, author karma
//     +voteType — ResultCast
//   - prior vote, same direction: delete it, drop the counter, author karma
//     -voteType — ResultRemoved
//   - prior vote, opposite direction: flip it, move one counter to the
//     other, author karma +2*voteType — ResultUpdated
//
// Voting on one's own content is allowed.
func (l *Ledger) CastVote(userID int, postID, commentID *int, voteType int) (Result, error) {
	if (postID == nil) == (commentID == nil) {
		return "", ErrInvalidTarget
	}
	if voteType != 1 && voteType != -1 {
		return "", ErrInvalidTarget
	}

	var result Result
	err := l.db.Transaction(func(tx *gorm.DB) error {
		var err error
		if postID != nil {
			result, err = castOn(tx, userID, *postID, voteType, &postTarget{})
		} else {
			result, err = castOn(tx, userID, *commentID, voteType, &commentTarget{})
		}
		return err
	})
	if err != nil {
		return "", err
	}
	return result, nil
}

// target abstracts over the two votable kinds so the transition logic is
// written once.
type target interface {
	// load fetches the target row and returns its author.
	load(tx *gorm.DB, id int) (authorID int, err error)
	// existing finds the user's current vote on the target, if any.
	existing(tx *gorm.DB, userID, id int) (*models.Vote, error)
	// newVote builds a vote row pointing at the target.
	newVote(userID, id, voteType int) models.Vote
	// adjustCounters applies deltas to the target's upvote/downvote columns.
	adjustCounters(tx *gorm.DB, id, upDelta, downDelta int) error
}

func castOn(tx *gorm.DB, userID, targetID, voteType int, t target) (Result, error) {
	authorID, err := t.load(tx, targetID)
	if err != nil {
		return "", err
	}

	up, down := 0, 1
	if voteType == 1 {
		up, down = 1, 0
	}

	existing, err := t.existing(tx, userID, targetID)
	if err != nil {
		return "", err
	}

	switch {
	case existing == nil:
		vote := t.newVote(userID, targetID, voteType)
		if err := tx.Create(&vote).Error; err != nil {
			return "", err
		}
		if err := t.adjustCounters(tx, targetID, up, down); err != nil {
			return "", err
		}
		if err := adjustKarma(tx, authorID, voteType); err != nil {
			return "", err
		}
		return ResultCast, nil

	case existing.VoteType == voteType:
		if err := tx.Delete(existing).Error; err != nil {
			return "", err
		}
		if err := t.adjustCounters(tx, targetID, -up, -down); err != nil {
			return "", err
		}
		if err := adjustKarma(tx, authorID, -voteType); err != nil {
			return "", err
		}
		return ResultRemoved, nil

	default:
		existing.VoteType = voteType
		if err := tx.Save(existing).Error; err != nil {
			return "", err
		}
		// Old direction's counter down, new direction's up.
		if err := t.adjustCounters(tx, targetID, up-down, down-up); err != nil {
			return "", err
		}
		if err := adjustKarma(tx, authorID, 2*voteType); err != nil {
			return "", err
		}
		return ResultUpdated, nil
	}
}

func adjustKarma(tx *gorm.DB, authorID, delta int) error {
	return tx.Model(&models.User{}).
		Where("id = ?", authorID).
		Update("karma", gorm.Expr("karma + ?", delta)).Error
}

type postTarget struct{}

func (postTarget) load(tx *gorm.DB, id int) (int, error) {
	var post models.Post
	if err := tx.First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrTargetNotFound
		}
		return 0, err
	}
	return post.AuthorID, nil
}

func (postTarget) existing(tx *gorm.DB, userID, id int) (*models.Vote, error) {
	return findVote(tx, "user_id = ? AND post_id = ?", userID, id)
}

func (postTarget) newVote(userID, id, voteType int) models.Vote {
	return models.Vote{UserID: userID, PostID: &id, VoteType: voteType}
}

func (postTarget) adjustCounters(tx *gorm.DB, id, upDelta, downDelta int) error {
	return tx.Model(&models.Post{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"upvotes":   gorm.Expr("upvotes + ?", upDelta),
			"downvotes": gorm.Expr("downvotes + ?", downDelta),
		}).Error
}

type commentTarget struct{}

func (commentTarget) load(tx *gorm.DB, id int) (int, error) {
	var comment models.Comment
	if err := tx.First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrTargetNotFound
		}
		return 0, err
	}
	return comment.AuthorID, nil
}

func (commentTarget) existing(tx *gorm.DB, userID, id int) (*models.Vote, error) {
	return findVote(tx, "user_id = ? AND comment_id = ?", userID, id)
}

func (commentTarget) newVote(userID, id, voteType int) models.Vote {
	return models.Vote{UserID: userID, CommentID: &id, VoteType: voteType}
}

func (commentTarget) adjustCounters(tx *gorm.DB, id, upDelta, downDelta int) error {
	return tx.Model(&models.Comment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"upvotes":   gorm.Expr("upvotes + ?", upDelta),
			"downvotes": gorm.Expr("downvotes + ?", downDelta),
		}).Error
}

func findVote(tx *gorm.DB, query string, args ...interface{}) (*models.Vote, error) {
	var vote models.Vote
	err := tx.Where(query, args...).First(&vote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &vote, nil
}
