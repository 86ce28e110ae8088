package models

type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Bio          string `json:"bio"`
	Avatar       string `json:"avatar"` // Stores avatar ID (1-6) or URL
	CreatedAt    int64  `json:"created_at"`
}

// Profile is the denormalized author snapshot embedded in posts and replies.
type Profile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

func (u User) Profile() Profile {
	return Profile{ID: u.ID, Username: u.Username, Avatar: u.Avatar}
}

// Value returns the store representation of the user.
func (u User) Value() map[string]any {
	return map[string]any{
		"username":     u.Username,
		"email":        u.Email,
		"passwordHash": u.PasswordHash,
		"bio":          u.Bio,
		"avatar":       u.Avatar,
		"createdAt":    u.CreatedAt,
	}
}

// UserFromValue decodes a users/<id> store node.
func UserFromValue(id string, v any) (User, bool) {
	m, ok := AsMap(v)
	if !ok {
		return User{}, false
	}
	return User{
		ID:           id,
		Username:     AsString(m["username"]),
		Email:        AsString(m["email"]),
		PasswordHash: AsString(m["passwordHash"]),
		Bio:          AsString(m["bio"]),
		Avatar:       AsString(m["avatar"]),
		CreatedAt:    AsInt64(m["createdAt"]),
	}, true
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Avatar   string `json:"avatar"` // Optional avatar selection
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
