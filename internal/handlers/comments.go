package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/facehub/backend/internal/models"
	"github.com/facehub/backend/internal/votes"
	"github.com/facehub/backend/internal/webhooks"
)

type CommentHandler struct {
	db     *gorm.DB
	ledger *votes.Ledger
	events *webhooks.Dispatcher
}

func NewCommentHandler(db *gorm.DB, ledger *votes.Ledger, events *webhooks.Dispatcher) *CommentHandler {
	return &CommentHandler{db: db, ledger: ledger, events: events}
}

func extractUserID(c *gin.Context) (int, bool) {
	raw, exists := c.Get("user_id")
	if !exists {
		return 0, false
	}
	switch v := raw.(type) {
	case int:
		return v, true
	case uint:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// GetComments returns all comments for a post
func (h *CommentHandler) GetComments(c *gin.Context) {
	postID := c.Param("id")
	var comments []models.Comment

	if err := h.db.Where("post_id = ?", postID).Preload("User").Order("created_at desc").Find(&comments).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch comments"})
		return
	}

	var responses []gin.H
	for _, comment := range comments {
		responses = append(responses, gin.H{
			"id":         comment.ID,
			"body":       comment.Body,
			"author_id":  comment.AuthorID,
			"post_id":    comment.PostID,
			"user":       comment.User,
			"upvotes":    comment.Upvotes,
			"downvotes":  comment.Downvotes,
			"created_at": comment.CreatedAt,
			"updated_at": comment.UpdatedAt,
		})
	}

	if responses == nil {
		responses = []gin.H{}
	}

	c.JSON(http.StatusOK, responses)
}

// CreateComment creates a new comment on a post
func (h *CommentHandler) CreateComment(c *gin.Context) {
	var input struct {
		Body            string `json:"body" binding:"required"`
		ParentCommentID *int   `json:"parent_comment_id"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	authorID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	// Verify post exists
	var post models.Post
	if err := h.db.First(&post, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	comment := models.Comment{
		Body:            input.Body,
		PostID:          post.ID,
		AuthorID:        authorID,
		ParentCommentID: input.ParentCommentID,
	}

	if err := h.db.Create(&comment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create comment"})
		return
	}

	h.db.Preload("User").First(&comment, comment.ID)

	payload := gin.H{
		"comment_id": comment.ID,
		"post_id":    post.ID,
		"post_title": post.Title,
		"author_id":  comment.AuthorID,
		"author":     comment.User.Username,
		"body":       comment.Body,
	}

	if post.AuthorID != authorID {
		h.events.Emit(webhooks.EventCommentOnPost, post.AuthorID, payload)
	}
	emitMentions(h.db, h.events, authorID, input.Body, payload)

	c.JSON(http.StatusCreated, comment)
}

// UpdateComment updates a comment (owner only)
func (h *CommentHandler) UpdateComment(c *gin.Context) {
	commentID := c.Param("commentId")

	authorID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var input struct {
		Body string `json:"body" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var comment models.Comment
	if err := h.db.First(&comment, commentID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		return
	}

	if comment.AuthorID != authorID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only edit your own comments"})
		return
	}

	comment.Body = input.Body
	h.db.Save(&comment)
	h.db.Preload("User").First(&comment, comment.ID)

	c.JSON(http.StatusOK, gin.H{
		"id":         comment.ID,
		"body":       comment.Body,
		"author_id":  comment.AuthorID,
		"post_id":    comment.PostID,
		"user":       comment.User,
		"upvotes":    comment.Upvotes,
		"downvotes":  comment.Downvotes,
		"created_at": comment.CreatedAt,
		"updated_at": comment.UpdatedAt,
	})
}

// DeleteComment deletes a comment and its votes (owner only)
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	commentID := c.Param("commentId")

	authorID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var comment models.Comment
	if err := h.db.First(&comment, commentID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		return
	}

	if comment.AuthorID != authorID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only delete your own comments"})
		return
	}

	// Clean up votes on this comment too
	h.db.Where("comment_id = ?", comment.ID).Delete(&models.Vote{})

	if err := h.db.Delete(&comment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete comment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully"})
}

// UpvoteComment — one vote per user, toggles off if same, switches if opposite
func (h *CommentHandler) UpvoteComment(c *gin.Context) {
	h.voteComment(c, 1)
}

// DownvoteComment — one vote per user, toggles off if same, switches if opposite
func (h *CommentHandler) DownvoteComment(c *gin.Context) {
	h.voteComment(c, -1)
}

func (h *CommentHandler) voteComment(c *gin.Context, voteType int) {
	voterID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var comment models.Comment
	if err := h.db.First(&comment, c.Param("commentId")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
		return
	}

	result, err := h.ledger.CastVote(voterID, nil, &comment.ID, voteType)
	if err != nil {
		if errors.Is(err, votes.ErrTargetNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Comment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to vote"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": voteMessage(result)})
}
