package oaihttp

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/gradecraft/internal/platform/httpx"
)

const maxErrorBody = 512

// StatusError is a non-2xx reply from the chat endpoint.
type StatusError struct {
	StatusCode int
	Body       string
	// RetryAfter is the server's Retry-After hint; zero when absent.
	RetryAfter time.Duration
}

func newStatusError(resp *http.Response, body []byte) *StatusError {
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody] + "..."
	}
	return &StatusError{
		StatusCode: resp.StatusCode,
		Body:       msg,
		RetryAfter: httpx.RetryAfterDuration(resp, 0, 0),
	}
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("chat endpoint returned %d", e.StatusCode)
	}
	return fmt.Sprintf("chat endpoint returned %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) HTTPStatusCode() int { return e.StatusCode }
