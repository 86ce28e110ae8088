package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/reelclub/moviehub/backend/internal/catalog"
	"github.com/reelclub/moviehub/backend/internal/models"
	"github.com/reelclub/moviehub/backend/internal/recommend"
)

type MovieHandler struct {
	catalog   *catalog.Service
	recommend *recommend.Client
}

func NewMovieHandler(cat *catalog.Service, rec *recommend.Client) *MovieHandler {
	return &MovieHandler{catalog: cat, recommend: rec}
}

// GetMovies returns the catalog, title-ordered
func (h *MovieHandler) GetMovies(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	movies, err := h.catalog.List(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch movies"})
		return
	}
	if movies == nil {
		movies = []models.Movie{}
	}
	c.JSON(http.StatusOK, movies)
}

// SearchMovies matches titles against the q parameter
func (h *MovieHandler) SearchMovies(c *gin.Context) {
	movies, err := h.catalog.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to search movies"})
		return
	}
	c.JSON(http.StatusOK, movies)
}

// GetMovie returns one movie with its forum-derived average rating
func (h *MovieHandler) GetMovie(c *gin.Context) {
	movieID := c.Param("id")

	movie, err := h.catalog.Get(c.Request.Context(), movieID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Movie not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch movie"})
		return
	}

	avg, count, err := h.catalog.AverageRating(c.Request.Context(), movieID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch movie"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":             movie.ID,
		"imdb_id":        movie.ImdbID,
		"title":          movie.Title,
		"year":           movie.Year,
		"poster":         movie.Poster,
		"overview":       movie.Overview,
		"average_rating": avg,
		"rating_count":   count,
	})
}

// GetRecommendations proxies the recommendation service for one movie
func (h *MovieHandler) GetRecommendations(c *gin.Context) {
	movieID := c.Param("id")

	recs, err := h.recommend.Recommend(c.Request.Context(), movieID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Recommendation service unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"recommendations": recs})
}

// AddMovie registers a movie by IMDb id with the recommendation service,
// then stores it in the catalog (PROTECTED - requires authentication)
func (h *MovieHandler) AddMovie(c *gin.Context) {
	var input struct {
		ImdbID   string `json:"imdb_id" binding:"required"`
		Title    string `json:"title" binding:"required"`
		Year     int    `json:"year"`
		Poster   string `json:"poster"`
		Overview string `json:"overview"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, ok := extractUserID(c); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	message, err := h.recommend.AddMovie(c.Request.Context(), input.ImdbID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Recommendation service rejected the movie"})
		return
	}

	movie, err := h.catalog.Add(c.Request.Context(), models.Movie{
		ImdbID:   input.ImdbID,
		Title:    input.Title,
		Year:     input.Year,
		Poster:   input.Poster,
		Overview: input.Overview,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store movie"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"movie": movie, "message": message})
}
