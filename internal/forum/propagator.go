package forum

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/reelclub/moviehub/backend/internal/log"
	"github.com/reelclub/moviehub/backend/internal/models"
	"github.com/reelclub/moviehub/backend/internal/store"
)

// Propagator rewrites the denormalized author name/avatar copies embedded
// in every post and reply a user has authored, across every movie's forum.
//
// This is a full scan of the forum tree, O(posts + replies). It holds up
// only because the data set is small; past that, an authorId -> authored
// locations index would have to replace the scan.
type Propagator struct {
	store store.Store
}

func NewPropagator(st store.Store) *Propagator {
	return &Propagator{store: st}
}

// PropagateProfile stages a rewrite for every denormalized copy authored by
// userID and applies them all as one atomic multi-path patch. Returns how
// many posts/replies were touched. Nothing staged means no write at all.
func (p *Propagator) PropagateProfile(ctx context.Context, userID, username, avatar string) (int, error) {
	v, err := p.store.Get(ctx, "forum")
	if err != nil {
		return 0, fmt.Errorf("scan forum: %w", err)
	}
	forums, ok := models.AsMap(v)
	if !ok {
		return 0, nil
	}

	patch := make(map[string]any)
	count := 0
	for movieID, mv := range forums {
		posts, ok := models.AsMap(mv)
		if !ok {
			continue
		}
		for postID, pv := range posts {
			pm, ok := models.AsMap(pv)
			if !ok {
				continue
			}
			base := postPath(movieID, postID)
			if models.AsString(pm["authorId"]) == userID {
				patch[base+"/authorName"] = username
				patch[base+"/authorAvatar"] = avatar
				count++
			}
			replies, ok := models.AsMap(pm["replies"])
			if !ok {
				continue
			}
			for replyID, rv := range replies {
				rm, ok := models.AsMap(rv)
				if !ok {
					continue
				}
				if models.AsString(rm["authorId"]) == userID {
					rbase := base + "/replies/" + replyID
					patch[rbase+"/authorName"] = username
					patch[rbase+"/authorAvatar"] = avatar
					count++
				}
			}
		}
	}

	if len(patch) == 0 {
		return 0, nil
	}
	if err := p.store.Update(ctx, patch); err != nil {
		log.L().Error("profile propagation failed",
			zap.String("user", userID), zap.Int("staged", count), zap.Error(err))
		return 0, fmt.Errorf("propagate profile: %w", err)
	}
	return count, nil
}

// AuthoredPosts returns every post a user has written, newest first, across
// all movies. Shares the propagator's full-scan approach (and its ceiling).
func AuthoredPosts(ctx context.Context, st store.Store, userID string) ([]models.Post, error) {
	v, err := st.Get(ctx, "forum")
	if err != nil {
		return nil, fmt.Errorf("scan forum: %w", err)
	}
	out := []models.Post{}
	forums, ok := models.AsMap(v)
	if !ok {
		return out, nil
	}
	for movieID, mv := range forums {
		posts, ok := models.AsMap(mv)
		if !ok {
			continue
		}
		for postID, pv := range posts {
			post, err := DecodePost(postID, pv)
			if err != nil || post.AuthorID != userID {
				continue
			}
			if post.MovieID == "" {
				post.MovieID = movieID
			}
			out = append(out, post)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.CreatedAt != b.CreatedAt {
			return a.CreatedAt > b.CreatedAt
		}
		return a.ID > b.ID
	})
	return out, nil
}
