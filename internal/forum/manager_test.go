package forum

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/reelclub/moviehub/backend/internal/models"
	"github.com/reelclub/moviehub/backend/internal/store"
)

type fakeProfiles map[string]models.Profile

func (f fakeProfiles) Profile(_ context.Context, id string) (models.Profile, error) {
	p, ok := f[id]
	if !ok {
		return models.Profile{}, errors.New("no such user")
	}
	return p, nil
}

func testProfiles() fakeProfiles {
	return fakeProfiles{
		"u1": {ID: "u1", Username: "casey", Avatar: "3"},
		"u2": {ID: "u2", Username: "riley", Avatar: "5"},
	}
}

func newTestManager(t *testing.T, movieID string) (*Manager, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	m := NewManager(st, testProfiles())
	require.NoError(t, m.Initialize(context.Background(), movieID))
	t.Cleanup(func() {
		m.Close()
		_ = st.Close()
	})
	return m, st
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond, msg)
}

func asU1(ctx context.Context) context.Context { return WithUser(ctx, "u1") }
func asU2(ctx context.Context) context.Context { return WithUser(ctx, "u2") }

// Walks the whole lifecycle of one post the way the app does: submit, edit,
// reply, delete.
func TestManagerPostLifecycle(t *testing.T) {
	m, st := newTestManager(t, "tt001")
	ctx := context.Background()

	postID, err := m.SubmitPost(asU1(ctx), "Great film!", 5)
	require.NoError(t, err)
	require.NotEmpty(t, postID)

	eventually(t, func() bool { return len(m.Posts()) == 1 }, "post should appear in the live list")
	p := m.Posts()[0]
	require.Equal(t, postID, p.ID)
	require.Equal(t, "tt001", p.MovieID)
	require.Equal(t, "Great film!", p.Content)
	require.Equal(t, 5, p.Rating)
	require.Equal(t, "u1", p.AuthorID)
	require.Equal(t, "casey", p.AuthorName, "author snapshot must come from the current profile")
	require.Equal(t, "3", p.AuthorAvatar)
	require.False(t, p.Edited)
	require.Positive(t, p.CreatedAt)

	require.NoError(t, m.UpdatePost(asU1(ctx), postID, "Great film, rewatched!", 4))
	eventually(t, func() bool {
		posts := m.Posts()
		return len(posts) == 1 && posts[0].Edited
	}, "edit should flip the edited flag")
	p = m.Posts()[0]
	require.Equal(t, "Great film, rewatched!", p.Content)
	require.Equal(t, 4, p.Rating)
	require.Positive(t, p.CreatedAt, "createdAt survives the edit")

	replyID, err := m.SubmitReply(asU2(ctx), postID, "Agreed!")
	require.NoError(t, err)
	eventually(t, func() bool {
		posts := m.Posts()
		return len(posts) == 1 && len(posts[0].Replies) == 1
	}, "reply should appear under the post")
	r := m.Posts()[0].Replies[0]
	require.Equal(t, replyID, r.ID)
	require.Equal(t, postID, r.InReplyTo)
	require.Equal(t, "riley", r.AuthorName)
	require.False(t, r.Edited)

	require.NoError(t, m.DeletePost(asU1(ctx), postID))
	eventually(t, func() bool { return len(m.Posts()) == 0 }, "deleted post should leave the list")

	v, err := st.Get(ctx, "forum/tt001/"+postID+"/replies/"+replyID)
	require.NoError(t, err)
	require.Nil(t, v, "deleting the post must orphan no replies")
}

func TestManagerOrderingNewestFirst(t *testing.T) {
	m, _ := newTestManager(t, "tt001")
	ctx := asU1(context.Background())

	var ids []string
	for _, content := range []string{"first", "second", "third"} {
		id, err := m.SubmitPost(ctx, content, 3)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	eventually(t, func() bool { return len(m.Posts()) == 3 }, "all posts should arrive")
	posts := m.Posts()
	require.Equal(t, ids[2], posts[0].ID, "newest first")
	require.Equal(t, ids[1], posts[1].ID)
	require.Equal(t, ids[0], posts[2].ID)
	for i := 1; i < len(posts); i++ {
		require.GreaterOrEqual(t, posts[i-1].CreatedAt, posts[i].CreatedAt)
	}
}

func TestManagerValidation(t *testing.T) {
	m, _ := newTestManager(t, "tt001")
	ctx := context.Background()

	_, err := m.SubmitPost(asU1(ctx), "   ", 3)
	require.ErrorIs(t, err, ErrEmptyContent)

	_, err = m.SubmitPost(ctx, "no identity attached", 3)
	require.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = m.SubmitReply(asU1(ctx), "missing-post", "hello")
	require.ErrorIs(t, err, ErrNotFound)

	err = m.UpdatePost(asU1(ctx), "missing-post", "new content", 1)
	require.ErrorIs(t, err, ErrNotFound)

	require.Empty(t, m.Posts(), "validation failures must not write anything")
}

func TestManagerRatingClamped(t *testing.T) {
	m, _ := newTestManager(t, "tt001")
	ctx := asU1(context.Background())

	id, err := m.SubmitPost(ctx, "off the scale", 11)
	require.NoError(t, err)
	p, err := m.Post(ctx, id)
	require.NoError(t, err)
	require.Equal(t, 5, p.Rating)

	require.NoError(t, m.UpdatePost(ctx, id, "negative now", -2))
	p, err = m.Post(ctx, id)
	require.NoError(t, err)
	require.Equal(t, 0, p.Rating)
}

func TestManagerEditedNeverResets(t *testing.T) {
	m, _ := newTestManager(t, "tt001")
	ctx := asU1(context.Background())

	id, err := m.SubmitPost(ctx, "v1", 3)
	require.NoError(t, err)

	require.NoError(t, m.UpdatePost(ctx, id, "v2", 3))
	require.NoError(t, m.UpdatePost(ctx, id, "v3", 3))

	p, err := m.Post(ctx, id)
	require.NoError(t, err)
	require.True(t, p.Edited)
}

func TestManagerReinitializeSwitchesMovie(t *testing.T) {
	m, _ := newTestManager(t, "tt001")
	ctx := asU1(context.Background())

	_, err := m.SubmitPost(ctx, "about the first movie", 4)
	require.NoError(t, err)
	eventually(t, func() bool { return len(m.Posts()) == 1 }, "first movie post arrives")

	require.NoError(t, m.Initialize(context.Background(), "tt002"))
	require.Empty(t, m.Posts(), "no post from the previous movie may remain visible")
	require.Equal(t, "tt002", m.MovieID())

	_, err = m.SubmitPost(ctx, "about the second movie", 2)
	require.NoError(t, err)
	eventually(t, func() bool { return len(m.Posts()) == 1 }, "second movie post arrives")
	require.Equal(t, "tt002", m.Posts()[0].MovieID)
}

func TestManagerLateDeliveryAfterCloseIsNoop(t *testing.T) {
	st := store.NewMemoryStore()
	defer st.Close()

	m := NewManager(st, testProfiles())
	require.NoError(t, m.Initialize(context.Background(), "tt001"))
	m.Close()

	// A write landing after teardown must not resurrect state or panic.
	require.NoError(t, st.Set(context.Background(), "forum/tt001/p1", map[string]any{
		"content": "late arrival",
	}))
	time.Sleep(20 * time.Millisecond)
	require.Empty(t, m.Posts())

	_, err := m.SubmitPost(asU1(context.Background()), "after close", 1)
	require.ErrorIs(t, err, ErrManagerClosed)
}

func TestManagerWatchDeliversSnapshots(t *testing.T) {
	m, _ := newTestManager(t, "tt001")
	ctx := asU1(context.Background())

	ch := m.Watch()
	first := <-ch
	require.Empty(t, first, "initial snapshot is the current (empty) list")

	_, err := m.SubmitPost(ctx, "watched", 4)
	require.NoError(t, err)

	select {
	case posts := <-ch:
		require.Len(t, posts, 1)
		require.Equal(t, "watched", posts[0].Content)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot delivered to watcher")
	}

	m.Unwatch(ch)
	_, open := <-ch
	require.False(t, open, "unwatch closes the channel")
}

func TestManagerWatchAfterCloseReturnsClosedChannel(t *testing.T) {
	m, _ := newTestManager(t, "tt001")
	m.Close()

	ch := m.Watch()
	_, open := <-ch
	require.False(t, open)
}
