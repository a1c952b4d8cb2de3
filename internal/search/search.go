// Package search answers general health information queries through the
// completion service. Unlike the pipeline stages, search tolerates transient
// provider failures with bounded retries, since a search result has no
// rule-based fallback worth returning.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"github.com/mediguard/driftai/internal/completion"
)

const searchSystemInstruction = `You are a health information assistant. You summarize general, well-established wellness knowledge.

Rules:
- General information only, never personal medical advice
- Never diagnose or recommend medications
- Always suggest consulting a healthcare professional for personal concerns
- Cite the type of source you are drawing on (general guidelines, common practice)`

const (
	maxAttempts    = 3
	requestTimeout = 30 * time.Second
)

// Result is one answered search query.
type Result struct {
	Query      string `json:"query"`
	Answer     string `json:"answer"`
	Disclaimer string `json:"disclaimer"`
	Attempts   int    `json:"attempts"`
}

// Service answers health information queries.
type Service struct {
	svc completion.Service
}

// New builds a search service over a completion service.
func New(svc completion.Service) *Service {
	return &Service{svc: svc}
}

// Search answers one query, retrying transient failures up to maxAttempts
// with exponential backoff. Each attempt gets its own bounded timeout.
func (s *Service) Search(ctx context.Context, query string) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search: empty query")
	}
	if !s.svc.Ready() {
		return nil, completion.ErrNotConfigured
	}

	prompt := fmt.Sprintf("Answer this general health question in 3-5 plain sentences:\n\n%s", query)

	var answer string
	attempts := 0
	operation := func() error {
		attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()

		resp, err := s.svc.Complete(attemptCtx, prompt, searchSystemInstruction)
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempts).Str("query", query).Msg("search attempt failed")
			return err
		}
		answer = strings.TrimSpace(resp)
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxAttempts-1),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("search failed after %d attempts: %w", attempts, err)
	}

	return &Result{
		Query:      query,
		Answer:     answer,
		Disclaimer: "General information only, not personal medical advice.",
		Attempts:   attempts,
	}, nil
}
