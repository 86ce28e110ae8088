// Package catalog serves the movie list stored under movies/<id>.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/reelclub/moviehub/backend/internal/forum"
	"github.com/reelclub/moviehub/backend/internal/models"
	"github.com/reelclub/moviehub/backend/internal/store"
)

var ErrNotFound = errors.New("catalog: movie not found")

type Service struct {
	store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{store: st}
}

func moviePath(id string) string { return "movies/" + id }

// List returns up to limit movies, title-ordered. limit <= 0 means all.
func (s *Service) List(ctx context.Context, limit int) ([]models.Movie, error) {
	movies, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(movies) > limit {
		movies = movies[:limit]
	}
	return movies, nil
}

// Search is a case-insensitive substring match on the title. The catalog
// is small enough that a scan beats maintaining a search index.
func (s *Service) Search(ctx context.Context, q string) ([]models.Movie, error) {
	movies, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	q = strings.ToLower(strings.TrimSpace(q))
	out := []models.Movie{}
	for _, m := range movies {
		if q == "" || strings.Contains(strings.ToLower(m.Title), q) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (models.Movie, error) {
	v, err := s.store.Get(ctx, moviePath(id))
	if err != nil {
		return models.Movie{}, fmt.Errorf("read movie: %w", err)
	}
	m, ok := models.MovieFromValue(id, v)
	if !ok {
		return models.Movie{}, ErrNotFound
	}
	return m, nil
}

// Add stores a movie. The IMDb id doubles as the movie id when present,
// which also keeps re-adds idempotent; otherwise the store assigns a key.
func (s *Service) Add(ctx context.Context, m models.Movie) (models.Movie, error) {
	m.AddedAt = time.Now().UnixMilli()
	if m.ID == "" {
		m.ID = m.ImdbID
	}
	if m.ID != "" {
		if err := s.store.Set(ctx, moviePath(m.ID), m.Value()); err != nil {
			return models.Movie{}, fmt.Errorf("add movie: %w", err)
		}
		return m, nil
	}
	id, err := s.store.Push(ctx, "movies", m.Value())
	if err != nil {
		return models.Movie{}, fmt.Errorf("add movie: %w", err)
	}
	m.ID = id
	return m, nil
}

// AverageRating computes the mean forum rating for a movie and the number
// of rated posts it is based on.
func (s *Service) AverageRating(ctx context.Context, movieID string) (float64, int, error) {
	v, err := s.store.Get(ctx, "forum/"+movieID)
	if err != nil {
		return 0, 0, fmt.Errorf("read forum: %w", err)
	}
	posts := forum.DecodeForum(movieID, v)
	if len(posts) == 0 {
		return 0, 0, nil
	}
	sum := 0
	for _, p := range posts {
		sum += p.Rating
	}
	return float64(sum) / float64(len(posts)), len(posts), nil
}

// Seed loads a starter catalog into an empty store so a fresh install has
// something to browse.
func (s *Service) Seed(ctx context.Context) error {
	movies, err := s.all(ctx)
	if err != nil {
		return err
	}
	if len(movies) > 0 {
		return nil
	}
	for _, m := range seedMovies {
		if _, err := s.Add(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

var seedMovies = []models.Movie{
	{ImdbID: "tt0111161", Title: "The Shawshank Redemption", Year: 1994, Overview: "Two imprisoned men bond over a number of years."},
	{ImdbID: "tt0068646", Title: "The Godfather", Year: 1972, Overview: "The aging patriarch of an organized crime dynasty transfers control to his reluctant son."},
	{ImdbID: "tt0468569", Title: "The Dark Knight", Year: 2008, Overview: "Batman faces the Joker, a criminal mastermind bent on chaos."},
	{ImdbID: "tt0110912", Title: "Pulp Fiction", Year: 1994, Overview: "The lives of two mob hitmen, a boxer and a pair of diner bandits intertwine."},
	{ImdbID: "tt0133093", Title: "The Matrix", Year: 1999, Overview: "A computer hacker learns the true nature of his reality."},
	{ImdbID: "tt1375666", Title: "Inception", Year: 2010, Overview: "A thief who steals secrets through dream-sharing is given an inverse task."},
	{ImdbID: "tt0816692", Title: "Interstellar", Year: 2014, Overview: "Explorers travel through a wormhole in search of a new home for humanity."},
	{ImdbID: "tt6751668", Title: "Parasite", Year: 2019, Overview: "Greed and class discrimination threaten a newly formed symbiotic relationship."},
}

func (s *Service) all(ctx context.Context) ([]models.Movie, error) {
	v, err := s.store.Get(ctx, "movies")
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	m, ok := models.AsMap(v)
	if !ok {
		return []models.Movie{}, nil
	}
	out := make([]models.Movie, 0, len(m))
	for id, mv := range m {
		if movie, ok := models.MovieFromValue(id, mv); ok {
			out = append(out, movie)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
