package provider

import (
	"context"

	"github.com/ricirt/pulse/internal/domain"
)

// Forwarder delivers finished results to a system outside the process.
// Mocking this interface in tests gives full control over delivery
// without making real HTTP calls.
type Forwarder interface {
	Send(ctx context.Context, res domain.Result) error
}
