// Package users manages account records stored under users/<id>.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/reelclub/moviehub/backend/internal/models"
	"github.com/reelclub/moviehub/backend/internal/store"
)

var (
	ErrNotFound = errors.New("users: not found")
	ErrExists   = errors.New("users: username or email already exists")
)

type Service struct {
	store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{store: st}
}

func userPath(id string) string { return "users/" + id }

// Create registers a new account after checking username/email uniqueness.
// The uniqueness check is a scan; the user set is small and has no
// secondary index in the store.
func (s *Service) Create(ctx context.Context, u models.User) (models.User, error) {
	all, err := s.all(ctx)
	if err != nil {
		return models.User{}, err
	}
	for _, existing := range all {
		if strings.EqualFold(existing.Username, u.Username) || strings.EqualFold(existing.Email, u.Email) {
			return models.User{}, ErrExists
		}
	}

	u.CreatedAt = time.Now().UnixMilli()
	id, err := s.store.Push(ctx, "users", u.Value())
	if err != nil {
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	u.ID = id
	return u, nil
}

func (s *Service) Get(ctx context.Context, id string) (models.User, error) {
	v, err := s.store.Get(ctx, userPath(id))
	if err != nil {
		return models.User{}, fmt.Errorf("read user: %w", err)
	}
	u, ok := models.UserFromValue(id, v)
	if !ok {
		return models.User{}, ErrNotFound
	}
	return u, nil
}

func (s *Service) FindByEmail(ctx context.Context, email string) (models.User, error) {
	all, err := s.all(ctx)
	if err != nil {
		return models.User{}, err
	}
	for _, u := range all {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return models.User{}, ErrNotFound
}

// UpdateProfile patches the mutable profile fields. Empty arguments leave
// the current value in place.
func (s *Service) UpdateProfile(ctx context.Context, id, username, bio, avatar string) (models.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return models.User{}, err
	}

	patch := make(map[string]any)
	if username != "" && username != u.Username {
		all, err := s.all(ctx)
		if err != nil {
			return models.User{}, err
		}
		for _, existing := range all {
			if existing.ID != id && strings.EqualFold(existing.Username, username) {
				return models.User{}, ErrExists
			}
		}
		patch[userPath(id)+"/username"] = username
		u.Username = username
	}
	if bio != "" {
		patch[userPath(id)+"/bio"] = bio
		u.Bio = bio
	}
	if avatar != "" {
		patch[userPath(id)+"/avatar"] = avatar
		u.Avatar = avatar
	}
	if len(patch) == 0 {
		return u, nil
	}
	if err := s.store.Update(ctx, patch); err != nil {
		return models.User{}, fmt.Errorf("update profile: %w", err)
	}
	return u, nil
}

// Profile implements forum.ProfileSource.
func (s *Service) Profile(ctx context.Context, id string) (models.Profile, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return models.Profile{}, err
	}
	return u.Profile(), nil
}

func (s *Service) all(ctx context.Context) ([]models.User, error) {
	v, err := s.store.Get(ctx, "users")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	m, ok := models.AsMap(v)
	if !ok {
		return nil, nil
	}
	out := make([]models.User, 0, len(m))
	for id, uv := range m {
		if u, ok := models.UserFromValue(id, uv); ok {
			out = append(out, u)
		}
	}
	return out, nil
}
