// Package assistant asks a chat-completion backend to rank books and answer
// chatbot messages. Every failure degrades to a deterministic local answer;
// callers never see an error from here.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"bookex/model"
	assistantrepo "bookex/repository/assistant"
	"bookex/util/metrics"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
)

const (
	breakerName      = "assistant-api"
	maxPromptBooks   = 50
	maxSuggestions   = 3
	defaultTimeout   = 8 * time.Second
	tripAfterFailure = 5
)

type ChatReply struct {
	Reply       string  `json:"reply"`
	Suggestions []int64 `json:"suggestions,omitempty"`
	Fallback    bool    `json:"fallback"`
}

type Service struct {
	c       assistantrepo.Repo
	cb      *gobreaker.CircuitBreaker[string]
	timeout time.Duration
	log     *slog.Logger
}

func New(c assistantrepo.Repo, timeout time.Duration, log *slog.Logger) *Service {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= tripAfterFailure
		},
		// a missing key or a caller that went away says nothing about the backend
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, assistantrepo.ErrNotConfigured) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})
	return &Service{c: c, cb: cb, timeout: timeout, log: log}
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}

func (s *Service) complete(ctx context.Context, req assistantrepo.CompletionReq) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.cb.Execute(func() (string, error) {
		return s.c.Complete(ctx, req)
	})
}

// FallbackOrder sorts by average rating (unrated last), then comment count,
// then id. It never mutates in.
func FallbackOrder(in []model.Listing) []model.Listing {
	out := slices.Clone(in)
	slices.SortStableFunc(out, func(a, b model.Listing) int {
		switch {
		case a.AvgRating != nil && b.AvgRating == nil:
			return -1
		case a.AvgRating == nil && b.AvgRating != nil:
			return 1
		case a.AvgRating != nil && *a.AvgRating != *b.AvgRating:
			if *a.AvgRating > *b.AvgRating {
				return -1
			}
			return 1
		}
		if a.CommentCount != b.CommentCount {
			if a.CommentCount > b.CommentCount {
				return -1
			}
			return 1
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

func describe(l model.Listing) string {
	rating := "unrated"
	if l.AvgRating != nil {
		rating = fmt.Sprintf("%.1f", *l.AvgRating)
	}
	return fmt.Sprintf("id=%d name=%q price=%s rating=%s comments=%d",
		l.ID, l.Name, l.Price.StringFixed(2), rating, l.CommentCount)
}

func catalogText(books []model.Listing) string {
	var b strings.Builder
	for i, l := range books {
		if i == maxPromptBooks {
			break
		}
		b.WriteString(describe(l))
		b.WriteByte('\n')
	}
	return b.String()
}

// parseIDs pulls the first JSON array of integers out of a reply that may
// be wrapped in prose or a code fence.
func parseIDs(reply string) ([]int64, error) {
	start := strings.IndexByte(reply, '[')
	end := strings.LastIndexByte(reply, ']')
	if start < 0 || end < start {
		return nil, errors.New("no id array in reply")
	}
	var ids []int64
	if err := json.Unmarshal([]byte(reply[start:end+1]), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// applyOrder keeps known ids in the order given, drops unknown or repeated
// ones, and appends the rest in fallback order.
func applyOrder(ids []int64, in []model.Listing) []model.Listing {
	byID := make(map[int64]model.Listing, len(in))
	for _, l := range in {
		byID[l.ID] = l
	}
	out := make([]model.Listing, 0, len(in))
	seen := make(map[int64]bool, len(in))
	for _, id := range ids {
		l, ok := byID[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, l)
	}
	for _, l := range FallbackOrder(in) {
		if !seen[l.ID] {
			out = append(out, l)
		}
	}
	return out
}

// Rank reorders in for query. It returns a permutation of in in every case.
func (s *Service) Rank(ctx context.Context, query string, in []model.Listing) []model.Listing {
	if len(in) < 2 {
		return in
	}
	reply, err := s.complete(ctx, assistantrepo.CompletionReq{
		System: "You rank books for a bookstore search. Reply with only a JSON array of book ids, best match first.",
		User:   fmt.Sprintf("Search query: %q\nBooks:\n%s", query, catalogText(in)),
	})
	if err == nil {
		var ids []int64
		if ids, err = parseIDs(reply); err == nil {
			metrics.AssistantRequests.WithLabelValues("rank", "ok").Inc()
			return applyOrder(ids, in)
		}
	}
	s.log.Warn("assistant rank fell back", "err", err)
	metrics.AssistantRequests.WithLabelValues("rank", "fallback").Inc()
	return FallbackOrder(in)
}

// Chat answers message using the books visible to the caller.
func (s *Service) Chat(ctx context.Context, message string, visible []model.Listing) ChatReply {
	reply, err := s.complete(ctx, assistantrepo.CompletionReq{
		System: "You are a helpful bookstore assistant. Recommend only books from this catalog:\n" + catalogText(visible),
		User:   message,
	})
	if err == nil {
		metrics.AssistantRequests.WithLabelValues("chat", "ok").Inc()
		return ChatReply{Reply: strings.TrimSpace(reply)}
	}
	s.log.Warn("assistant chat fell back", "err", err)
	metrics.AssistantRequests.WithLabelValues("chat", "fallback").Inc()
	return fallbackReply(visible)
}

func fallbackReply(visible []model.Listing) ChatReply {
	top := FallbackOrder(visible)
	if len(top) > maxSuggestions {
		top = top[:maxSuggestions]
	}
	if len(top) == 0 {
		return ChatReply{Reply: "The assistant is unavailable and there are no books to suggest yet.", Fallback: true}
	}
	names := make([]string, len(top))
	ids := make([]int64, len(top))
	for i, l := range top {
		names[i] = l.Name
		ids[i] = l.ID
	}
	return ChatReply{
		Reply:       "The assistant is unavailable right now. Readers rate these highly: " + strings.Join(names, ", ") + ".",
		Suggestions: ids,
		Fallback:    true,
	}
}
