package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/reelclub/moviehub/backend/internal/forum"
	"github.com/reelclub/moviehub/backend/internal/log"
	"github.com/reelclub/moviehub/backend/internal/metrics"
	"github.com/reelclub/moviehub/backend/internal/store"
	"github.com/reelclub/moviehub/backend/internal/users"
)

type UserHandler struct {
	users      *users.Service
	store      store.Store
	propagator *forum.Propagator
}

func NewUserHandler(us *users.Service, st store.Store) *UserHandler {
	return &UserHandler{
		users:      us,
		store:      st,
		propagator: forum.NewPropagator(st),
	}
}

// GetUserProfile returns a user's profile and their authored posts
func (h *UserHandler) GetUserProfile(c *gin.Context) {
	userID := c.Param("id")

	user, err := h.users.Get(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	posts, err := forum.AuthoredPosts(c.Request.Context(), h.store, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user posts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"id":       user.ID,
			"username": user.Username,
			"bio":      user.Bio,
			"avatar":   user.Avatar,
		},
		"posts": posts,
	})
}

// UpdateUserProfile updates profile fields and rewrites the denormalized
// author copies in every post/reply the user authored (PROTECTED - own
// profile only). The profile write stands even when propagation fails;
// propagation is reported, not rolled back.
func (h *UserHandler) UpdateUserProfile(c *gin.Context) {
	userID := c.Param("id")

	authUserID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	if authUserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only update your own profile"})
		return
	}

	var input struct {
		Username string `json:"username"`
		Bio      string `json:"bio"`
		Avatar   string `json:"avatar"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), userID, input.Username, input.Bio, input.Avatar)
	if err != nil {
		if err == users.ErrExists {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username already exists"})
			return
		}
		if err == users.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	resp := gin.H{
		"id":       user.ID,
		"username": user.Username,
		"bio":      user.Bio,
		"avatar":   user.Avatar,
	}

	touched, err := h.propagator.PropagateProfile(c.Request.Context(), userID, user.Username, user.Avatar)
	if err != nil {
		metrics.PropagationsTotal.WithLabelValues("error").Inc()
		log.L().Error("profile saved but propagation failed",
			zap.String("user", userID), zap.Error(err))
		resp["propagation_error"] = "Profile saved, but older posts may show stale author info"
	} else {
		metrics.PropagationsTotal.WithLabelValues("ok").Inc()
		resp["propagated"] = touched
	}

	c.JSON(http.StatusOK, resp)
}
