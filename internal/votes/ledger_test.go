package votes_test

import (
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/facehub/backend/internal/models"
	"github.com/facehub/backend/internal/testdb"
	"github.com/facehub/backend/internal/votes"
)

type fixture struct {
	db      *gorm.DB
	ledger  *votes.Ledger
	voter   models.User
	author  models.User
	post    models.Post
	comment models.Comment
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testdb.New(t)

	f := &fixture{
		db:     db,
		ledger: votes.NewLedger(db),
		voter:  models.User{Username: "alice", Email: "alice@example.com", Password: "x"},
		author: models.User{Username: "bob", Email: "bob@example.com", Password: "x"},
	}
	for _, u := range []*models.User{&f.voter, &f.author} {
		if err := db.Create(u).Error; err != nil {
			t.Fatalf("seeding user: %v", err)
		}
	}

	f.post = models.Post{Title: "hello", Body: "first post", AuthorID: f.author.ID}
	if err := db.Create(&f.post).Error; err != nil {
		t.Fatalf("seeding post: %v", err)
	}
	f.comment = models.Comment{Body: "nice", AuthorID: f.author.ID, PostID: f.post.ID}
	if err := db.Create(&f.comment).Error; err != nil {
		t.Fatalf("seeding comment: %v", err)
	}

	return f
}

func (f *fixture) reloadPost(t *testing.T) models.Post {
	t.Helper()
	var p models.Post
	if err := f.db.First(&p, f.post.ID).Error; err != nil {
		t.Fatalf("reloading post: %v", err)
	}
	return p
}

func (f *fixture) reloadComment(t *testing.T) models.Comment {
	t.Helper()
	var c models.Comment
	if err := f.db.First(&c, f.comment.ID).Error; err != nil {
		t.Fatalf("reloading comment: %v", err)
	}
	return c
}

func (f *fixture) karma(t *testing.T, userID int) int {
	t.Helper()
	var u models.User
	if err := f.db.First(&u, userID).Error; err != nil {
		t.Fatalf("reloading user: %v", err)
	}
	return u.Karma
}

func (f *fixture) voteCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	f.db.Model(&models.Vote{}).Count(&n)
	return n
}

func (f *fixture) cast(t *testing.T, postID, commentID *int, direction int) votes.Result {
	t.Helper()
	result, err := f.ledger.CastVote(f.voter.ID, postID, commentID, direction)
	if err != nil {
		t.Fatalf("CastVote: %v", err)
	}
	return result
}

func TestCastVote_ToggleIdempotence(t *testing.T) {
	f := newFixture(t)

	if got := f.cast(t, &f.post.ID, nil, 1); got != votes.ResultCast {
		t.Errorf("first cast = %q, want %q", got, votes.ResultCast)
	}
	p := f.reloadPost(t)
	if p.Upvotes != 1 || p.Downvotes != 0 {
		t.Errorf("counters after cast = %d/%d, want 1/0", p.Upvotes, p.Downvotes)
	}
	if got := f.karma(t, f.author.ID); got != 1 {
		t.Errorf("author karma after cast = %d, want 1", got)
	}

	if got := f.cast(t, &f.post.ID, nil, 1); got != votes.ResultRemoved {
		t.Errorf("second cast = %q, want %q", got, votes.ResultRemoved)
	}
	p = f.reloadPost(t)
	if p.Upvotes != 0 || p.Downvotes != 0 {
		t.Errorf("counters after toggle-off = %d/%d, want 0/0", p.Upvotes, p.Downvotes)
	}
	if got := f.karma(t, f.author.ID); got != 0 {
		t.Errorf("author karma after toggle-off = %d, want 0", got)
	}
	if n := f.voteCount(t); n != 0 {
		t.Errorf("vote rows after toggle-off = %d, want 0", n)
	}
}

func TestCastVote_FlipCorrectness(t *testing.T) {
	f := newFixture(t)

	f.cast(t, &f.post.ID, nil, 1)
	if got := f.cast(t, &f.post.ID, nil, -1); got != votes.ResultUpdated {
		t.Errorf("flip = %q, want %q", got, votes.ResultUpdated)
	}

	p := f.reloadPost(t)
	if p.Upvotes != 0 || p.Downvotes != 1 {
		t.Errorf("counters after flip = %d/%d, want 0/1", p.Upvotes, p.Downvotes)
	}
	// Equivalent to a single downvote.
	if got := f.karma(t, f.author.ID); got != -1 {
		t.Errorf("author karma after flip = %d, want -1", got)
	}
	if n := f.voteCount(t); n != 1 {
		t.Errorf("vote rows after flip = %d, want 1", n)
	}
}

func TestCastVote_FullScenario(t *testing.T) {
	f := newFixture(t)

	// Start the author with non-zero karma so deltas are visible.
	f.db.Model(&models.User{}).Where("id = ?", f.author.ID).Update("karma", 5)

	// A upvotes post P (author B).
	f.cast(t, &f.post.ID, nil, 1)
	p := f.reloadPost(t)
	if p.Upvotes != 1 {
		t.Errorf("upvotes = %d, want 1", p.Upvotes)
	}
	if got := f.karma(t, f.author.ID); got != 6 {
		t.Errorf("karma = %d, want 6", got)
	}

	// A flips to downvote.
	f.cast(t, &f.post.ID, nil, -1)
	p = f.reloadPost(t)
	if p.Upvotes != 0 || p.Downvotes != 1 {
		t.Errorf("counters = %d/%d, want 0/1", p.Upvotes, p.Downvotes)
	}
	if got := f.karma(t, f.author.ID); got != 4 {
		t.Errorf("karma = %d, want 4", got)
	}

	// A removes the downvote.
	f.cast(t, &f.post.ID, nil, -1)
	p = f.reloadPost(t)
	if p.Upvotes != 0 || p.Downvotes != 0 {
		t.Errorf("counters = %d/%d, want 0/0", p.Upvotes, p.Downvotes)
	}
	if got := f.karma(t, f.author.ID); got != 5 {
		t.Errorf("karma = %d, want baseline 5", got)
	}
}

func TestCastVote_CommentTarget(t *testing.T) {
	f := newFixture(t)

	if got := f.cast(t, nil, &f.comment.ID, -1); got != votes.ResultCast {
		t.Errorf("cast = %q, want %q", got, votes.ResultCast)
	}
	c := f.reloadComment(t)
	if c.Upvotes != 0 || c.Downvotes != 1 {
		t.Errorf("counters = %d/%d, want 0/1", c.Upvotes, c.Downvotes)
	}
	if got := f.karma(t, f.author.ID); got != -1 {
		t.Errorf("karma = %d, want -1", got)
	}

	// Comment votes are independent of post votes by the same user.
	f.cast(t, &f.post.ID, nil, 1)
	if n := f.voteCount(t); n != 2 {
		t.Errorf("vote rows = %d, want 2", n)
	}
}

func TestCastVote_SelfVoteAllowed(t *testing.T) {
	f := newFixture(t)

	result, err := f.ledger.CastVote(f.author.ID, &f.post.ID, nil, 1)
	if err != nil {
		t.Fatalf("self-vote returned error: %v", err)
	}
	if result != votes.ResultCast {
		t.Errorf("self-vote = %q, want %q", result, votes.ResultCast)
	}
	if got := f.karma(t, f.author.ID); got != 1 {
		t.Errorf("self-vote karma = %d, want 1", got)
	}
}

func TestCastVote_UniquenessUnderRepeatedCasts(t *testing.T) {
	f := newFixture(t)

	// cast, flip, flip back: never more than one row for (voter, post).
	for _, dir := range []int{1, -1, 1} {
		f.cast(t, &f.post.ID, nil, dir)
		var n int64
		f.db.Model(&models.Vote{}).
			Where("user_id = ? AND post_id = ?", f.voter.ID, f.post.ID).
			Count(&n)
		if n != 1 {
			t.Fatalf("vote rows for (voter, post) = %d, want 1", n)
		}
	}
}

func TestCastVote_Errors(t *testing.T) {
	f := newFixture(t)
	missing := f.post.ID + 1000

	tests := []struct {
		name      string
		postID    *int
		commentID *int
		direction int
		wantErr   error
	}{
		{"NeitherTarget", nil, nil, 1, votes.ErrInvalidTarget},
		{"BothTargets", &f.post.ID, &f.comment.ID, 1, votes.ErrInvalidTarget},
		{"ZeroDirection", &f.post.ID, nil, 0, votes.ErrInvalidTarget},
		{"MissingPost", &missing, nil, 1, votes.ErrTargetNotFound},
		{"MissingComment", nil, &missing, 1, votes.ErrTargetNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.CastVote(f.voter.ID, tt.postID, tt.commentID, tt.direction)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CastVote error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	// Failed casts leave no partial state behind.
	p := f.reloadPost(t)
	if p.Upvotes != 0 || p.Downvotes != 0 {
		t.Errorf("counters after failed casts = %d/%d, want 0/0", p.Upvotes, p.Downvotes)
	}
	if got := f.karma(t, f.author.ID); got != 0 {
		t.Errorf("karma after failed casts = %d, want 0", got)
	}
}

func TestReconcile_RepairsDriftAndIsFixedPoint(t *testing.T) {
	f := newFixture(t)

	f.cast(t, &f.post.ID, nil, 1)
	f.cast(t, nil, &f.comment.ID, -1)

	// Simulate out-of-band drift in all three derived fields.
	f.db.Exec("UPDATE posts SET upvotes = 99, downvotes = 7")
	f.db.Exec("UPDATE comments SET upvotes = 3")
	f.db.Exec("UPDATE users SET karma = -42")

	first, err := f.ledger.Reconcile()
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	p := f.reloadPost(t)
	if p.Upvotes != 1 || p.Downvotes != 0 {
		t.Errorf("post counters = %d/%d, want 1/0", p.Upvotes, p.Downvotes)
	}
	c := f.reloadComment(t)
	if c.Upvotes != 0 || c.Downvotes != 1 {
		t.Errorf("comment counters = %d/%d, want 0/1", c.Upvotes, c.Downvotes)
	}
	if got := f.karma(t, f.author.ID); got != 0 {
		t.Errorf("author karma = %d, want 0 (one up, one down)", got)
	}
	if got := f.karma(t, f.voter.ID); got != 0 {
		t.Errorf("voter karma = %d, want 0 (received no votes)", got)
	}

	// Running it again changes nothing.
	second, err := f.ledger.Reconcile()
	if err != nil {
		t.Fatalf("second Reconcile: %v", err)
	}
	if first != second {
		t.Errorf("reconcile stats changed between runs: %+v then %+v", first, second)
	}

	p2 := f.reloadPost(t)
	if p2.Upvotes != p.Upvotes || p2.Downvotes != p.Downvotes {
		t.Errorf("post counters changed on second run: %d/%d", p2.Upvotes, p2.Downvotes)
	}
	if got := f.karma(t, f.author.ID); got != 0 {
		t.Errorf("author karma changed on second run: %d", got)
	}
}
