// Package completion defines the boundary to the text-completion service the
// pipeline agents depend on. The core needs exactly two operations from it:
// "is the service configured" and "complete this prompt". Everything else
// about the provider is opaque.
package completion

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when no API key has been supplied. Agents use
// it to short-circuit into their rule-based fallbacks before any network call.
var ErrNotConfigured = errors.New("completion service not configured: set MEDIGUARD_COMPLETION_API_KEY")

// Service is the opaque text-completion collaborator. Complete blocks until
// the provider responds, the context expires, or the call fails; there is no
// retry at this layer.
type Service interface {
	// Ready reports whether the service is configured and callable.
	Ready() bool

	// Complete sends a prompt with a system instruction and returns the raw
	// free-text response.
	Complete(ctx context.Context, prompt, systemInstruction string) (string, error)
}
