package forum

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/reelclub/moviehub/backend/internal/log"
	"github.com/reelclub/moviehub/backend/internal/models"
	"github.com/reelclub/moviehub/backend/internal/store"
)

var (
	ErrEmptyContent     = errors.New("forum: empty content")
	ErrNotAuthenticated = errors.New("forum: not authenticated")
	ErrNotFound         = errors.New("forum: not found")
	ErrNotInitialized   = errors.New("forum: no movie selected")
	ErrManagerClosed    = errors.New("forum: manager closed")
)

// ProfileSource resolves a user id to the current profile. Submit commands
// fetch through it right before writing so the denormalized author snapshot
// is fresh at creation time.
type ProfileSource interface {
	Profile(ctx context.Context, userID string) (models.Profile, error)
}

// Manager owns the live post list for one movie's forum and mediates every
// mutation against the store. It expects commands from one sequential
// caller; internal locking only protects against the subscription pump
// racing with that caller, and against deliveries arriving after Close.
type Manager struct {
	store    store.Store
	profiles ProfileSource

	mu       sync.Mutex
	movieID  string
	posts    []models.Post
	sub      *store.Subscription
	done     chan struct{}
	gen      uint64
	watchers map[chan []models.Post]struct{}
	closed   bool
}

func NewManager(st store.Store, profiles ProfileSource) *Manager {
	return &Manager{
		store:    st,
		profiles: profiles,
		watchers: make(map[chan []models.Post]struct{}),
	}
}

func forumPath(movieID string) string { return "forum/" + movieID }

func postPath(movieID, postID string) string {
	return forumPath(movieID) + "/" + postID
}
func replyPath(movieID, postID, replyID string) string {
	return postPath(movieID, postID) + "/replies/" + replyID
}

// Initialize (re)targets the manager at movieID: the previous subscription
// is cancelled first, the current forum content is loaded synchronously,
// then the live subscription starts. At most one subscription is ever
// active; a read failure leaves the (now empty) list in place and is only
// logged.
func (m *Manager) Initialize(ctx context.Context, movieID string) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrManagerClosed
	}
	m.stopLocked()
	m.gen++
	gen := m.gen
	m.movieID = movieID
	m.posts = nil
	m.mu.Unlock()
	m.broadcast()

	var posts []models.Post
	v, err := m.store.Get(ctx, forumPath(movieID))
	if err != nil {
		log.L().Error("forum initial load failed",
			zap.String("movie", movieID), zap.Error(err))
	} else {
		posts = DecodeForum(movieID, v)
	}

	sub := m.store.Subscribe(forumPath(movieID))
	done := make(chan struct{})

	m.mu.Lock()
	if m.closed || gen != m.gen {
		// A newer Initialize (or Close) won the race; this session is
		// already torn down.
		m.mu.Unlock()
		sub.Close()
		return nil
	}
	if err == nil {
		m.posts = posts
	}
	m.sub = sub
	m.done = done
	m.mu.Unlock()
	m.broadcast()

	go m.pump(sub, done, gen, movieID)
	return nil
}

// pump feeds live snapshots into the post list until the session ends.
// Deliveries for a stale session are discarded, never applied.
func (m *Manager) pump(sub *store.Subscription, done chan struct{}, gen uint64, movieID string) {
	for {
		select {
		case <-done:
			return
		case snap := <-sub.C:
			posts := DecodeForum(movieID, snap.Value)
			m.mu.Lock()
			if m.closed || gen != m.gen {
				m.mu.Unlock()
				return
			}
			m.posts = posts
			m.mu.Unlock()
			m.broadcast()
		}
	}
}

// stopLocked tears down the active subscription. Caller holds m.mu.
func (m *Manager) stopLocked() {
	if m.sub != nil {
		m.sub.Close()
		m.sub = nil
	}
	if m.done != nil {
		close(m.done)
		m.done = nil
	}
}

// MovieID returns the movie this manager is currently targeting.
func (m *Manager) MovieID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.movieID
}

// Posts returns the current visible list: newest first, already filtered to
// the initialized movie. The returned slice is the caller's to keep.
func (m *Manager) Posts() []models.Post {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Post, len(m.posts))
	copy(out, m.posts)
	return out
}

// Watch registers a watcher that receives the full post list after every
// change. Slow watchers only ever miss intermediate snapshots, never the
// latest one.
func (m *Manager) Watch() chan []models.Post {
	ch := make(chan []models.Post, 1)
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		close(ch)
		return ch
	}
	m.watchers[ch] = struct{}{}
	snapshot := make([]models.Post, len(m.posts))
	copy(snapshot, m.posts)
	ch <- snapshot
	m.mu.Unlock()
	return ch
}

func (m *Manager) Unwatch(ch chan []models.Post) {
	m.mu.Lock()
	if _, ok := m.watchers[ch]; ok {
		delete(m.watchers, ch)
		close(ch)
	}
	m.mu.Unlock()
}

func (m *Manager) broadcast() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ch := range m.watchers {
		snapshot := make([]models.Post, len(m.posts))
		copy(snapshot, m.posts)
		select {
		case ch <- snapshot:
		default:
			// Replace the stale queued snapshot with the current one.
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
}

// Close tears the session down. Commands and late deliveries after Close
// are no-ops.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.stopLocked()
	m.gen++
	for ch := range m.watchers {
		delete(m.watchers, ch)
		close(ch)
	}
	m.mu.Unlock()
}

// SubmitPost validates, fetches the caller's current profile, then writes a
// new post under a server-assigned key with a server timestamp. Returns the
// new post id.
func (m *Manager) SubmitPost(ctx context.Context, content string, rating int) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", ErrEmptyContent
	}
	uid, ok := UserFrom(ctx)
	if !ok {
		return "", ErrNotAuthenticated
	}
	movieID, err := m.activeMovie()
	if err != nil {
		return "", err
	}

	author, err := m.profiles.Profile(ctx, uid)
	if err != nil {
		return "", fmt.Errorf("fetch author profile: %w", err)
	}

	value := map[string]any{
		"movieId":      movieID,
		"content":      content,
		"rating":       clampRating(rating),
		"authorId":     author.ID,
		"authorName":   author.Username,
		"authorAvatar": author.Avatar,
		"createdAt":    store.ServerTimestamp,
		"edited":       false,
	}
	key, err := m.store.Push(ctx, forumPath(movieID), value)
	if err != nil {
		log.L().Error("submit post failed", zap.String("movie", movieID), zap.Error(err))
		return "", fmt.Errorf("submit post: %w", err)
	}
	return key, nil
}

// SubmitReply writes a new reply under the target post. The parent post's
// own fields are untouched.
func (m *Manager) SubmitReply(ctx context.Context, postID, content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", ErrEmptyContent
	}
	uid, ok := UserFrom(ctx)
	if !ok {
		return "", ErrNotAuthenticated
	}
	movieID, err := m.activeMovie()
	if err != nil {
		return "", err
	}
	if err := m.ensureExists(ctx, postPath(movieID, postID)); err != nil {
		return "", err
	}

	author, err := m.profiles.Profile(ctx, uid)
	if err != nil {
		return "", fmt.Errorf("fetch author profile: %w", err)
	}

	value := map[string]any{
		"content":      content,
		"authorId":     author.ID,
		"authorName":   author.Username,
		"authorAvatar": author.Avatar,
		"createdAt":    store.ServerTimestamp,
		"edited":       false,
	}
	key, err := m.store.Push(ctx, postPath(movieID, postID)+"/replies", value)
	if err != nil {
		log.L().Error("submit reply failed", zap.String("post", postID), zap.Error(err))
		return "", fmt.Errorf("submit reply: %w", err)
	}
	return key, nil
}

// UpdatePost rewrites content and rating and unconditionally marks the post
// edited. The flag is never reset; only the first edit changes it.
func (m *Manager) UpdatePost(ctx context.Context, postID, content string, rating int) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return ErrEmptyContent
	}
	movieID, err := m.activeMovie()
	if err != nil {
		return err
	}
	base := postPath(movieID, postID)
	if err := m.ensureExists(ctx, base); err != nil {
		return err
	}
	patch := map[string]any{
		base + "/content": content,
		base + "/rating":  clampRating(rating),
		base + "/edited":  true,
	}
	if err := m.store.Update(ctx, patch); err != nil {
		log.L().Error("update post failed", zap.String("post", postID), zap.Error(err))
		return fmt.Errorf("update post: %w", err)
	}
	return nil
}

// DeletePost removes the post node; the store removes every nested reply
// with it.
func (m *Manager) DeletePost(ctx context.Context, postID string) error {
	movieID, err := m.activeMovie()
	if err != nil {
		return err
	}
	base := postPath(movieID, postID)
	if err := m.ensureExists(ctx, base); err != nil {
		return err
	}
	if err := m.store.Remove(ctx, base); err != nil {
		log.L().Error("delete post failed", zap.String("post", postID), zap.Error(err))
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}

func (m *Manager) UpdateReply(ctx context.Context, postID, replyID, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return ErrEmptyContent
	}
	movieID, err := m.activeMovie()
	if err != nil {
		return err
	}
	base := replyPath(movieID, postID, replyID)
	if err := m.ensureExists(ctx, base); err != nil {
		return err
	}
	patch := map[string]any{
		base + "/content": content,
		base + "/edited":  true,
	}
	if err := m.store.Update(ctx, patch); err != nil {
		log.L().Error("update reply failed", zap.String("reply", replyID), zap.Error(err))
		return fmt.Errorf("update reply: %w", err)
	}
	return nil
}

func (m *Manager) DeleteReply(ctx context.Context, postID, replyID string) error {
	movieID, err := m.activeMovie()
	if err != nil {
		return err
	}
	base := replyPath(movieID, postID, replyID)
	if err := m.ensureExists(ctx, base); err != nil {
		return err
	}
	if err := m.store.Remove(ctx, base); err != nil {
		log.L().Error("delete reply failed", zap.String("reply", replyID), zap.Error(err))
		return fmt.Errorf("delete reply: %w", err)
	}
	return nil
}

// Post reads one post straight from the store (the live list may lag a
// write by one delivery).
func (m *Manager) Post(ctx context.Context, postID string) (models.Post, error) {
	movieID, err := m.activeMovie()
	if err != nil {
		return models.Post{}, err
	}
	v, err := m.store.Get(ctx, postPath(movieID, postID))
	if err != nil {
		return models.Post{}, fmt.Errorf("read post: %w", err)
	}
	if v == nil {
		return models.Post{}, ErrNotFound
	}
	p, err := DecodePost(postID, v)
	if err != nil {
		return models.Post{}, err
	}
	if p.MovieID == "" {
		p.MovieID = movieID
	}
	return p, nil
}

func (m *Manager) Reply(ctx context.Context, postID, replyID string) (models.Reply, error) {
	movieID, err := m.activeMovie()
	if err != nil {
		return models.Reply{}, err
	}
	v, err := m.store.Get(ctx, replyPath(movieID, postID, replyID))
	if err != nil {
		return models.Reply{}, fmt.Errorf("read reply: %w", err)
	}
	if v == nil {
		return models.Reply{}, ErrNotFound
	}
	return DecodeReply(postID, replyID, v)
}

func (m *Manager) activeMovie() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", ErrManagerClosed
	}
	if m.movieID == "" {
		return "", ErrNotInitialized
	}
	return m.movieID, nil
}

func (m *Manager) ensureExists(ctx context.Context, path string) error {
	v, err := m.store.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("read %q: %w", path, err)
	}
	if v == nil {
		return ErrNotFound
	}
	return nil
}

func clampRating(r int) int {
	if r < 0 {
		return 0
	}
	if r > 5 {
		return 5
	}
	return r
}
