// file: internals/features/essays/revision/ai/client.go
package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"essaysmaster_backend/internals/configs"
)

/* =========================================================
   CLIENT
   - outbound throttle (token bucket)
   - per-attempt timeout
   - linear backoff: base × attempt
   - post-processing: AU English, name policy, highlights
========================================================= */

type Client struct {
	provider Provider
	limiter  *rate.Limiter

	attempts  int
	backoff   time.Duration
	timeout   time.Duration
	auEnglish bool

	maxFeedbackTokens   int
	maxValidationTokens int

	sleep func(ctx context.Context, d time.Duration) error
}

func NewClient(p Provider, aiCfg configs.AIConfig, rc configs.RevisionConfig) *Client {
	limit := rate.Inf
	if aiCfg.RequestsPerSecond > 0 {
		limit = rate.Limit(aiCfg.RequestsPerSecond)
	}
	burst := aiCfg.Burst
	if burst <= 0 {
		burst = 1
	}
	attempts := rc.CollaboratorAttempts
	if attempts <= 0 {
		attempts = 1
	}
	return &Client{
		provider:            p,
		limiter:             rate.NewLimiter(limit, burst),
		attempts:            attempts,
		backoff:             rc.CollaboratorBackoff,
		timeout:             rc.CollaboratorTimeout,
		auEnglish:           aiCfg.EnforceAUEnglish,
		maxFeedbackTokens:   aiCfg.MaxFeedbackTokens,
		maxValidationTokens: aiCfg.MaxValidationTokens,
		sleep:               sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *Client) ProviderName() string {
	if c.provider == nil {
		return "none"
	}
	return c.provider.Name()
}

func (c *Client) ProduceFeedback(ctx context.Context, req FeedbackRequest) (*FeedbackResult, error) {
	prompt := FeedbackPrompt(req)
	prompt.MaxTokens = c.maxFeedbackTokens

	var out *FeedbackResult
	_, err := c.complete(ctx, fmt.Sprintf("feedback_round_%d", req.Round), prompt, func(raw string) error {
		text := c.postProcess(raw, req.StudentName)
		if strings.TrimSpace(text) == "" {
			return ErrMalformedResponse
		}
		out = &FeedbackResult{
			Text:       text,
			Highlights: ExtractHighlights(text, highlightType(req.Round)),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ProduceValidation(ctx context.Context, req ValidationRequest) (*ValidationResult, error) {
	prompt := ValidationPrompt(req)
	prompt.MaxTokens = c.maxValidationTokens

	var out *ValidationResult
	_, err := c.complete(ctx, fmt.Sprintf("validation_round_%d", req.Round), prompt, func(raw string) error {
		text := c.postProcess(raw, req.StudentName)
		parsed, err := ParseValidation(text)
		if err != nil {
			return err
		}
		parsed.Highlights = ExtractHighlights(parsed.Feedback, highlightType(req.Round))
		out = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) postProcess(raw, studentName string) string {
	text := strings.TrimSpace(raw)
	if c.auEnglish {
		text = EnforceAUEnglish(text)
	}
	return EnforceNamePolicy(text, studentName)
}

// complete runs the retry budget. accept rejects unusable output, which
// counts as a failed attempt.
func (c *Client) complete(ctx context.Context, op string, p Prompt, accept func(string) error) (string, error) {
	if c.provider == nil {
		return "", ErrNotConfigured
	}
	name := c.provider.Name()

	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			lastErr = err
			break
		}

		start := time.Now()
		raw, err := c.attempt(ctx, p)
		if err == nil {
			err = accept(raw)
		}
		observeCall(name, op, start, err)

		if err == nil {
			if attempt > 1 {
				log.Printf("[AI] %s %s succeeded on attempt %d/%d", name, op, attempt, c.attempts)
			}
			return raw, nil
		}
		lastErr = err
		log.Printf("[AI] %s %s attempt %d/%d failed: %v", name, op, attempt, c.attempts, err)

		if errors.Is(err, ErrNotConfigured) || ctx.Err() != nil {
			break
		}
		if attempt < c.attempts {
			if err := c.sleep(ctx, c.backoff*time.Duration(attempt)); err != nil {
				lastErr = err
				break
			}
		}
	}

	if errors.Is(lastErr, ErrNotConfigured) {
		return "", lastErr
	}
	return "", fmt.Errorf("%w: %s: %v", ErrProviderUnavailable, op, lastErr)
}

func (c *Client) attempt(ctx context.Context, p Prompt) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.provider.Complete(ctx, p)
}

func highlightType(round int) string {
	switch {
	case round <= 2:
		return "mechanics"
	case round <= 4:
		return "vocabulary"
	default:
		return "structure"
	}
}

var _ Collaborator = (*Client)(nil)
