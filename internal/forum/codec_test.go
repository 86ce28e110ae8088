package forum

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodePostDefaults(t *testing.T) {
	p, err := DecodePost("p1", map[string]any{
		"content":  "minimal",
		"authorId": "u1",
	})
	require.NoError(t, err)

	require.Equal(t, "p1", p.ID)
	require.Equal(t, "minimal", p.Content)
	require.Equal(t, 0, p.Rating)
	require.False(t, p.Edited)
	require.Empty(t, p.AuthorName)
	require.NotNil(t, p.Replies)
	require.Empty(t, p.Replies)
}

func TestDecodePostNumericCoercion(t *testing.T) {
	cases := map[string]any{
		"float64": float64(4),
		"int":     int(4),
		"int64":   int64(4),
		"number":  json.Number("4"),
	}
	for name, rating := range cases {
		t.Run(name, func(t *testing.T) {
			p, err := DecodePost("p1", map[string]any{
				"content":   "x",
				"rating":    rating,
				"createdAt": float64(1700000000123),
			})
			require.NoError(t, err)
			require.Equal(t, 4, p.Rating)
			require.Equal(t, int64(1700000000123), p.CreatedAt)
		})
	}
}

func TestDecodePostNotAMap(t *testing.T) {
	_, err := DecodePost("p1", "just a string")
	require.Error(t, err)

	_, err = DecodePost("p1", nil)
	require.Error(t, err)
}

func TestDecodePostSkipsMalformedReply(t *testing.T) {
	p, err := DecodePost("p1", map[string]any{
		"content": "post",
		"replies": map[string]any{
			"r1": map[string]any{"content": "good one", "authorId": "u2", "createdAt": int64(10)},
			"r2": "corrupt node",
			"r3": map[string]any{"content": "also good", "authorId": "u3", "createdAt": int64(20)},
		},
	})
	require.NoError(t, err, "one bad reply must not fail the post")
	require.Len(t, p.Replies, 2)
	require.Equal(t, "good one", p.Replies[0].Content)
	require.Equal(t, "also good", p.Replies[1].Content)
}

func TestDecodePostRepliesOrderedByTime(t *testing.T) {
	p, err := DecodePost("p1", map[string]any{
		"content": "post",
		"replies": map[string]any{
			"b": map[string]any{"content": "second", "createdAt": int64(200)},
			"a": map[string]any{"content": "first", "createdAt": int64(100)},
			"c": map[string]any{"content": "tied", "createdAt": int64(100)},
		},
	})
	require.NoError(t, err)
	require.Len(t, p.Replies, 3)
	// Oldest first; ties break on reply id.
	require.Equal(t, []string{"a", "c", "b"}, []string{p.Replies[0].ID, p.Replies[1].ID, p.Replies[2].ID})
	for _, r := range p.Replies {
		require.Equal(t, "p1", r.InReplyTo)
	}
}

func TestDecodeForumSortsNewestFirst(t *testing.T) {
	posts := DecodeForum("tt001", map[string]any{
		"p1": map[string]any{"content": "oldest", "createdAt": int64(100)},
		"p2": map[string]any{"content": "newest", "createdAt": int64(300)},
		"p3": map[string]any{"content": "middle", "createdAt": int64(200)},
	})
	require.Len(t, posts, 3)
	require.Equal(t, "newest", posts[0].Content)
	require.Equal(t, "middle", posts[1].Content)
	require.Equal(t, "oldest", posts[2].Content)
	for _, p := range posts {
		require.Equal(t, "tt001", p.MovieID)
	}
}

func TestDecodeForumTiebreakIsDeterministic(t *testing.T) {
	value := map[string]any{
		"pa": map[string]any{"content": "a", "createdAt": int64(100)},
		"pb": map[string]any{"content": "b", "createdAt": int64(100)},
	}
	for i := 0; i < 10; i++ {
		posts := DecodeForum("tt001", value)
		require.Equal(t, "pb", posts[0].ID, "equal timestamps must break on id, descending")
		require.Equal(t, "pa", posts[1].ID)
	}
}

func TestDecodeForumDropsForeignAndMalformed(t *testing.T) {
	posts := DecodeForum("tt001", map[string]any{
		"p1": map[string]any{"content": "mine", "movieId": "tt001"},
		"p2": map[string]any{"content": "foreign", "movieId": "tt999"},
		"p3": 42,
	})
	require.Len(t, posts, 1)
	require.Equal(t, "mine", posts[0].Content)
}

func TestDecodeForumEmpty(t *testing.T) {
	require.Empty(t, DecodeForum("tt001", nil))
	require.Empty(t, DecodeForum("tt001", "garbage"))
}
