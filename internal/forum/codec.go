package forum

import (
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/reelclub/moviehub/backend/internal/log"
	"github.com/reelclub/moviehub/backend/internal/models"
)

// The store keeps posts as untyped nested maps. This codec is the single
// place those maps become typed records: missing fields fall back to
// defaults (rating 0, edited false, no replies), numbers are coerced
// whatever representation the backend returned, and a malformed reply is
// skipped without failing its post.

var errNotAMap = errors.New("forum: node is not a map")

// DecodePost decodes one forum/<movieID>/<postID> node.
func DecodePost(id string, v any) (models.Post, error) {
	m, ok := models.AsMap(v)
	if !ok {
		return models.Post{}, errNotAMap
	}

	p := models.Post{
		ID:           id,
		MovieID:      models.AsString(m["movieId"]),
		Content:      models.AsString(m["content"]),
		AuthorID:     models.AsString(m["authorId"]),
		AuthorName:   models.AsString(m["authorName"]),
		AuthorAvatar: models.AsString(m["authorAvatar"]),
		Rating:       int(models.AsInt64(m["rating"])),
		CreatedAt:    models.AsInt64(m["createdAt"]),
		Edited:       models.AsBool(m["edited"]),
		Replies:      []models.Reply{},
	}

	if rm, ok := models.AsMap(m["replies"]); ok {
		for key, rv := range rm {
			r, err := DecodeReply(id, key, rv)
			if err != nil {
				log.L().Warn("skipping malformed reply",
					zap.String("post", id), zap.String("reply", key))
				continue
			}
			p.Replies = append(p.Replies, r)
		}
		sort.Slice(p.Replies, func(i, j int) bool {
			a, b := p.Replies[i], p.Replies[j]
			if a.CreatedAt != b.CreatedAt {
				return a.CreatedAt < b.CreatedAt
			}
			return a.ID < b.ID
		})
	}
	return p, nil
}

// DecodeReply decodes one reply node. Replies are one level deep only;
// anything nested under a reply is ignored.
func DecodeReply(postID, id string, v any) (models.Reply, error) {
	m, ok := models.AsMap(v)
	if !ok {
		return models.Reply{}, errNotAMap
	}
	return models.Reply{
		ID:           id,
		InReplyTo:    postID,
		Content:      models.AsString(m["content"]),
		AuthorID:     models.AsString(m["authorId"]),
		AuthorName:   models.AsString(m["authorName"]),
		AuthorAvatar: models.AsString(m["authorAvatar"]),
		CreatedAt:    models.AsInt64(m["createdAt"]),
		Edited:       models.AsBool(m["edited"]),
	}, nil
}

// DecodeForum decodes a whole forum/<movieID> subtree into the visible post
// list: newest first, post id as the deterministic tiebreaker. Nodes that
// are not maps, or that belong to a different movie, are dropped.
func DecodeForum(movieID string, v any) []models.Post {
	posts := []models.Post{}
	m, ok := models.AsMap(v)
	if !ok {
		return posts
	}
	for id, pv := range m {
		p, err := DecodePost(id, pv)
		if err != nil {
			log.L().Warn("skipping malformed post", zap.String("post", id))
			continue
		}
		if p.MovieID == "" {
			p.MovieID = movieID
		}
		if p.MovieID != movieID {
			continue
		}
		posts = append(posts, p)
	}
	sort.Slice(posts, func(i, j int) bool {
		a, b := posts[i], posts[j]
		if a.CreatedAt != b.CreatedAt {
			return a.CreatedAt > b.CreatedAt
		}
		return a.ID > b.ID
	})
	return posts
}
