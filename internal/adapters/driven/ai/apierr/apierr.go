// Package apierr classifies AI provider HTTP failures into domain errors.
package apierr

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/custodia-labs/medrag/internal/core/domain"
)

// maxBody bounds how much of an error body is echoed into messages.
const maxBody = 512

// FromStatus builds the error for a non-2xx provider response.
//
// 429 wraps domain.ErrRateLimited and is retryable. Other 4xx responses wrap
// domain.ErrInvalidInput and are not: retrying a bad key or request cannot succeed.
// 5xx responses are plain, retryable errors.
func FromStatus(provider string, status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxBody {
		msg = msg[:maxBody] + "..."
	}

	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%s: %w (status %d): %s", provider, domain.ErrRateLimited, status, msg)
	case status >= 400 && status < 500:
		return fmt.Errorf("%s: %w (status %d): %s", provider, domain.ErrInvalidInput, status, msg)
	default:
		return fmt.Errorf("%s: API returned status %d: %s", provider, status, msg)
	}
}

// Unconfigured reports a capability that cannot be built from its settings.
func Unconfigured(provider, reason string) error {
	return fmt.Errorf("%s: %w: %s", provider, domain.ErrCapabilityUnavailable, reason)
}
