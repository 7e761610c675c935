package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/goliatone/go-locsync/internal/domain"
)

// IsTransientStatus reports whether an HTTP status is worth retrying.
func IsTransientStatus(status int) bool {
	switch {
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return true
	case status >= 500:
		return true
	default:
		return false
	}
}

// classifyStatus maps a non-2xx provider response to a domain error.
func classifyStatus(provider string, status int, body string) error {
	msg := fmt.Sprintf("%s responded with status %d", provider, status)
	src := fmt.Errorf("%s: %s", msg, abbreviate(body, 512))
	if IsTransientStatus(status) {
		return domain.ProviderTransient(src, msg).WithMetadata(map[string]any{
			"provider": provider,
			"status":   status,
		})
	}
	return domain.ProviderRejected(src, msg).WithMetadata(map[string]any{
		"provider": provider,
		"status":   status,
	})
}

// classifyTransport maps a failed round trip. Caller cancellation is returned
// unchanged so it is never retried; timeouts and network failures are transient.
func classifyTransport(ctx context.Context, provider string, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return domain.ProviderTransient(err, provider+" request timed out")
	}
	return domain.ProviderTransient(err, provider+" request failed")
}

func abbreviate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
