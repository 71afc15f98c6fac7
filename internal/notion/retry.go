package notion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jomei/notionapi"

	"github.com/my-entourage/notion-export/internal/logger"
)

const rateLimitedCode = "rate_limited"

// StatusCode returns the HTTP status of a Notion API error, or 0
func StatusCode(err error) int {
	var apiErr *notionapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsRateLimited reports whether err is an HTTP 429 or rate_limited API response
func IsRateLimited(err error) bool {
	var apiErr *notionapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusTooManyRequests || apiErr.Code == rateLimitedCode
}

// IsForbidden reports whether the integration lacks the capability for a call
func IsForbidden(err error) bool {
	return StatusCode(err) == http.StatusForbidden
}

// IsNotFound reports whether the object is missing or not shared with the integration
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// defaultBackoff waits one second more on every retry
func defaultBackoff(attempt int) time.Duration {
	return time.Duration(1+attempt) * time.Second
}

// do runs fn after the throttle, retrying rate limited calls
func (c *Client) do(ctx context.Context, op string, fn func(context.Context) error) error {
	var err error
	for attempt := 0; attempt < c.attempts; attempt++ {
		if werr := c.limiter.Wait(ctx); werr != nil {
			return werr
		}

		err = fn(ctx)
		if err == nil || !IsRateLimited(err) {
			return err
		}
		if attempt == c.attempts-1 {
			break
		}

		wait := c.backoff(attempt)
		logger.Warn("Rate limited, waiting", map[string]interface{}{
			"operation": op,
			"wait":      wait.String(),
			"attempt":   attempt + 1,
		})
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
	return fmt.Errorf("%s: rate limited after %d attempts: %w", op, c.attempts, err)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
