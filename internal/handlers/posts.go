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

type PostHandler struct {
	db     *gorm.DB
	ledger *votes.Ledger
	events *webhooks.Dispatcher
}

func NewPostHandler(db *gorm.DB, ledger *votes.Ledger, events *webhooks.Dispatcher) *PostHandler {
	return &PostHandler{db: db, ledger: ledger, events: events}
}

// emitMentions notifies every @mentioned user in text. Self-mentions and
// unknown usernames are ignored.
func emitMentions(db *gorm.DB, events *webhooks.Dispatcher, actorID int, text string, payload gin.H) {
	for _, username := range webhooks.ExtractMentions(text) {
		var mentioned models.User
		if err := db.Where("username = ?", username).First(&mentioned).Error; err != nil {
			continue
		}
		if mentioned.ID == actorID {
			continue
		}
		events.Emit(webhooks.EventMention, mentioned.ID, payload)
	}
}

func (h *PostHandler) GetPosts(c *gin.Context) {
	var posts []models.Post

	if err := h.db.Preload("User").Order("created_at desc").Find(&posts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}

	var responses []gin.H
	for _, post := range posts {
		responses = append(responses, gin.H{
			"id":         post.ID,
			"title":      post.Title,
			"body":       post.Body,
			"author_id":  post.AuthorID,
			"user":       post.User,
			"upvotes":    post.Upvotes,
			"downvotes":  post.Downvotes,
			"score":      post.Score(),
			"created_at": post.CreatedAt,
			"updated_at": post.UpdatedAt,
		})
	}

	// If no posts, return empty array not null
	if responses == nil {
		responses = []gin.H{}
	}

	c.JSON(http.StatusOK, responses)
}

// GetPost returns a single post by ID
func (h *PostHandler) GetPost(c *gin.Context) {
	postID := c.Param("id")
	var post models.Post

	if err := h.db.Preload("User").First(&post, postID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         post.ID,
		"title":      post.Title,
		"body":       post.Body,
		"author_id":  post.AuthorID,
		"user":       post.User,
		"upvotes":    post.Upvotes,
		"downvotes":  post.Downvotes,
		"score":      post.Score(),
		"created_at": post.CreatedAt,
		"updated_at": post.UpdatedAt,
	})
}

// CreatePost creates a new post (PROTECTED - requires authentication)
func (h *PostHandler) CreatePost(c *gin.Context) {
	var input struct {
		Title string `json:"title" binding:"required"`
		Body  string `json:"body"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title is required"})
		return
	}

	authorID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	post := models.Post{
		Title:    input.Title,
		Body:     input.Body,
		AuthorID: authorID,
	}

	if err := h.db.Create(&post).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create post"})
		return
	}

	// Reload with user information
	h.db.Preload("User").First(&post, post.ID)

	// Notify after commit: one post.created per follower, plus mentions.
	payload := gin.H{
		"post_id":   post.ID,
		"title":     post.Title,
		"author_id": post.AuthorID,
		"author":    post.User.Username,
	}

	var followers []models.Follow
	h.db.Where("following_id = ?", authorID).Find(&followers)
	for _, f := range followers {
		h.events.Emit(webhooks.EventPostCreated, f.FollowerID, payload)
	}

	emitMentions(h.db, h.events, authorID, input.Title+" "+input.Body, payload)

	c.JSON(http.StatusCreated, post)
}

// UpdatePost updates an existing post (PROTECTED - requires ownership)
func (h *PostHandler) UpdatePost(c *gin.Context) {
	postID := c.Param("id")

	currentUserID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var input struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var post models.Post
	if err := h.db.First(&post, postID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	// Check ownership
	if post.AuthorID != currentUserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only edit your own posts"})
		return
	}

	if input.Title != "" {
		post.Title = input.Title
	}
	if input.Body != "" {
		post.Body = input.Body
	}

	h.db.Save(&post)
	h.db.Preload("User").First(&post, post.ID)

	c.JSON(http.StatusOK, post)
}

// DeletePost deletes a post and its votes and comments (PROTECTED - requires ownership)
func (h *PostHandler) DeletePost(c *gin.Context) {
	postID := c.Param("id")

	currentUserID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var post models.Post
	if err := h.db.First(&post, postID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	// Check ownership
	if post.AuthorID != currentUserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only delete your own posts"})
		return
	}

	// Votes on deleted content vanish with it; the karma they contributed
	// lingers until the next admin reconciliation.
	h.db.Where("post_id = ?", post.ID).Delete(&models.Vote{})
	h.db.Where("post_id = ?", post.ID).Delete(&models.Comment{})

	if err := h.db.Delete(&post).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete post"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Post deleted successfully"})
}

// VotePost handles upvoting/downvoting a post (PROTECTED - requires authentication)
func (h *PostHandler) VotePost(c *gin.Context) {
	voterID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var input struct {
		VoteType int `json:"vote_type" binding:"required,oneof=-1 1"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Vote type must be -1 or 1"})
		return
	}

	var post models.Post
	if err := h.db.Preload("User").First(&post, c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	result, err := h.ledger.CastVote(voterID, &post.ID, nil, input.VoteType)
	if err != nil {
		if errors.Is(err, votes.ErrTargetNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to vote"})
		return
	}

	if result == votes.ResultCast {
		h.events.Emit(webhooks.EventVoteOnPost, post.AuthorID, gin.H{
			"post_id":   post.ID,
			"title":     post.Title,
			"vote_type": input.VoteType,
			"voter_id":  voterID,
		})
	}

	c.JSON(http.StatusOK, gin.H{"message": voteMessage(result)})
}

func voteMessage(result votes.Result) string {
	switch result {
	case votes.ResultCast:
		return "Vote recorded"
	case votes.ResultUpdated:
		return "Vote updated"
	default:
		return "Vote removed"
	}
}

// GetUserPosts returns all posts by a specific user
func (h *PostHandler) GetUserPosts(c *gin.Context) {
	userID := c.Param("id")
	var posts []models.Post

	if err := h.db.Preload("User").Where("author_id = ?", userID).Order("created_at desc").Find(&posts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user posts"})
		return
	}

	c.JSON(http.StatusOK, posts)
}
