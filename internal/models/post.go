package models

type Post struct {
	ID           string  `json:"id"`
	MovieID      string  `json:"movie_id"`
	Content      string  `json:"content"`
	AuthorID     string  `json:"author_id"`
	AuthorName   string  `json:"author_name"`
	AuthorAvatar string  `json:"author_avatar"`
	Rating       int     `json:"rating"`
	CreatedAt    int64   `json:"created_at"`
	Edited       bool    `json:"edited"`
	Replies      []Reply `json:"replies"`
}

type CreatePostRequest struct {
	Content string `json:"content" binding:"required"`
	Rating  int    `json:"rating"`
}

type UpdatePostRequest struct {
	Content string `json:"content" binding:"required"`
	Rating  int    `json:"rating"`
}
