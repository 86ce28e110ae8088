package recommend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRecommendSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/recommend", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "tt001", body["movieId"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"recommendations": []map[string]string{
				{"title": "The Matrix"},
				{"title": "Inception"},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	recs, err := c.Recommend(context.Background(), "tt001")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, "The Matrix", recs[0].Title)
}

func TestRecommendServiceFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  "error",
			"message": "unknown movie",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.Recommend(context.Background(), "tt999")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown movie")
}

func TestRecommendHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.Recommend(context.Background(), "tt001")
	require.Error(t, err)
}

func TestRecommendTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 30*time.Millisecond)
	_, err := c.Recommend(context.Background(), "tt001")
	require.Error(t, err, "slow service must fail the call, not hang it")
}

func TestAddMovie(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/addMovie", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "tt0133093", body["imdbId"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  "success",
			"message": "movie queued for ingestion",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	msg, err := c.AddMovie(context.Background(), "tt0133093")
	require.NoError(t, err)
	require.Equal(t, "movie queued for ingestion", msg)
}

func TestAddMovieUnreachable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", 100*time.Millisecond)
	_, err := c.AddMovie(context.Background(), "tt0133093")
	require.Error(t, err)
}
