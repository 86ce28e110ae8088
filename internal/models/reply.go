package models

// Reply is a single-level response to a post. Replies never nest further.
type Reply struct {
	ID           string `json:"id"`
	InReplyTo    string `json:"in_reply_to"`
	Content      string `json:"content"`
	AuthorID     string `json:"author_id"`
	AuthorName   string `json:"author_name"`
	AuthorAvatar string `json:"author_avatar"`
	CreatedAt    int64  `json:"created_at"`
	Edited       bool   `json:"edited"`
}

type CreateReplyRequest struct {
	Content string `json:"content" binding:"required"`
}
