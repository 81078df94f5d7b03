package assistantrepo

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when no API key is set; callers fall back.
var ErrNotConfigured = errors.New("assistant: api key not configured")

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type CompletionReq struct {
	System string
	User   string
}

type Repo interface {
	// Complete returns the first choice's message content.
	Complete(ctx context.Context, req CompletionReq) (string, error)
}
