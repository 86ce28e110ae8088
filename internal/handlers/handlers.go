package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/reelclub/moviehub/backend/internal/catalog"
	"github.com/reelclub/moviehub/backend/internal/forum"
	"github.com/reelclub/moviehub/backend/internal/recommend"
	"github.com/reelclub/moviehub/backend/internal/store"
	"github.com/reelclub/moviehub/backend/internal/users"
)

// Handler combines all handler types
type Handler struct {
	Auth  *AuthHandler
	Movie *MovieHandler
	Forum *ForumHandler
	User  *UserHandler
}

// NewHandler creates a unified handler with all sub-handlers
func NewHandler(st store.Store, hub *forum.Hub, us *users.Service, cat *catalog.Service, rec *recommend.Client, jwtSecret string) *Handler {
	return &Handler{
		Auth:  NewAuthHandler(us, jwtSecret),
		Movie: NewMovieHandler(cat, rec),
		Forum: NewForumHandler(hub),
		User:  NewUserHandler(us, st),
	}
}

func extractUserID(c *gin.Context) (string, bool) {
	raw, exists := c.Get("user_id")
	if !exists {
		return "", false
	}
	id, ok := raw.(string)
	return id, ok && id != ""
}
