package model

import "time"

type Comment struct {
	ID        int64      `json:"id"`
	BookID    int64      `json:"book_id"`
	UserID    int64      `json:"user_id"`
	Username  string     `json:"username,omitempty"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}
