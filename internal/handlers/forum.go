package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/reelclub/moviehub/backend/internal/forum"
	"github.com/reelclub/moviehub/backend/internal/models"
)

type ForumHandler struct {
	hub *forum.Hub
}

func NewForumHandler(hub *forum.Hub) *ForumHandler {
	return &ForumHandler{hub: hub}
}

// commandContext carries the authenticated user (when present) into forum
// commands, which validate identity themselves.
func commandContext(c *gin.Context) context.Context {
	ctx := c.Request.Context()
	if uid, ok := extractUserID(c); ok {
		ctx = forum.WithUser(ctx, uid)
	}
	return ctx
}

func forumError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, forum.ErrEmptyContent):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Content is required"})
	case errors.Is(err, forum.ErrNotAuthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
	case errors.Is(err, forum.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Forum operation failed"})
	}
}

// GetPosts returns the live post list for a movie, newest first
func (h *ForumHandler) GetPosts(c *gin.Context) {
	m := h.hub.Forum(c.Request.Context(), c.Param("id"))
	posts := m.Posts()
	if posts == nil {
		posts = []models.Post{}
	}
	c.JSON(http.StatusOK, posts)
}

// CreatePost submits a new review post (PROTECTED - requires authentication)
func (h *ForumHandler) CreatePost(c *gin.Context) {
	var input models.CreatePostRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Content is required"})
		return
	}

	ctx := commandContext(c)
	m := h.hub.Forum(ctx, c.Param("id"))

	postID, err := m.SubmitPost(ctx, input.Content, input.Rating)
	if err != nil {
		forumError(c, err)
		return
	}

	post, err := m.Post(ctx, postID)
	if err != nil {
		forumError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

// UpdatePost edits a post's content/rating (PROTECTED - requires ownership)
func (h *ForumHandler) UpdatePost(c *gin.Context) {
	var input models.UpdatePostRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Content is required"})
		return
	}

	userID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	ctx := commandContext(c)
	m := h.hub.Forum(ctx, c.Param("id"))
	postID := c.Param("postId")

	post, err := m.Post(ctx, postID)
	if err != nil {
		forumError(c, err)
		return
	}
	if post.AuthorID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only edit your own posts"})
		return
	}

	if err := m.UpdatePost(ctx, postID, input.Content, input.Rating); err != nil {
		forumError(c, err)
		return
	}

	post, err = m.Post(ctx, postID)
	if err != nil {
		forumError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// DeletePost removes a post and all its replies (PROTECTED - requires ownership)
func (h *ForumHandler) DeletePost(c *gin.Context) {
	userID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	ctx := commandContext(c)
	m := h.hub.Forum(ctx, c.Param("id"))
	postID := c.Param("postId")

	post, err := m.Post(ctx, postID)
	if err != nil {
		forumError(c, err)
		return
	}
	if post.AuthorID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only delete your own posts"})
		return
	}

	if err := m.DeletePost(ctx, postID); err != nil {
		forumError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted successfully"})
}

// CreateReply adds a reply to a post (PROTECTED - requires authentication)
func (h *ForumHandler) CreateReply(c *gin.Context) {
	var input models.CreateReplyRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Content is required"})
		return
	}

	ctx := commandContext(c)
	m := h.hub.Forum(ctx, c.Param("id"))
	postID := c.Param("postId")

	replyID, err := m.SubmitReply(ctx, postID, input.Content)
	if err != nil {
		forumError(c, err)
		return
	}

	reply, err := m.Reply(ctx, postID, replyID)
	if err != nil {
		forumError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reply)
}

// UpdateReply edits a reply (PROTECTED - requires ownership)
func (h *ForumHandler) UpdateReply(c *gin.Context) {
	var input models.CreateReplyRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Content is required"})
		return
	}

	userID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	ctx := commandContext(c)
	m := h.hub.Forum(ctx, c.Param("id"))
	postID := c.Param("postId")
	replyID := c.Param("replyId")

	reply, err := m.Reply(ctx, postID, replyID)
	if err != nil {
		forumError(c, err)
		return
	}
	if reply.AuthorID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only edit your own replies"})
		return
	}

	if err := m.UpdateReply(ctx, postID, replyID, input.Content); err != nil {
		forumError(c, err)
		return
	}

	reply, err = m.Reply(ctx, postID, replyID)
	if err != nil {
		forumError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

// DeleteReply removes a reply (PROTECTED - requires ownership)
func (h *ForumHandler) DeleteReply(c *gin.Context) {
	userID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	ctx := commandContext(c)
	m := h.hub.Forum(ctx, c.Param("id"))
	postID := c.Param("postId")
	replyID := c.Param("replyId")

	reply, err := m.Reply(ctx, postID, replyID)
	if err != nil {
		forumError(c, err)
		return
	}
	if reply.AuthorID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only delete your own replies"})
		return
	}

	if err := m.DeleteReply(ctx, postID, replyID); err != nil {
		forumError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Reply deleted successfully"})
}
