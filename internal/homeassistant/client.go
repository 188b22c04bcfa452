// Package homeassistant provides clients for the Home Assistant REST and
// WebSocket APIs.
package homeassistant

import (
	"context"
	"fmt"
)

// Client defines the interface for Home Assistant REST operations.
// Each method issues a single HTTP request.
type Client interface {
	// GetStates returns all entity states (GET /api/states).
	GetStates(ctx context.Context) ([]Entity, error)
	// GetState returns the state of one entity (GET /api/states/{entity_id}).
	GetState(ctx context.Context, entityID string) (*Entity, error)
	// GetServices returns all service domains (GET /api/services).
	GetServices(ctx context.Context) ([]ServiceDomain, error)
	// CallService invokes a service (POST /api/services/{domain}/{service}).
	// The receipt is returned for any HTTP response, success or not; an
	// error means the request never produced one.
	CallService(ctx context.Context, domain, service string, payload map[string]any) (*ServiceCallReceipt, error)
}

// APIError represents an error response from the Home Assistant API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Home Assistant API error (status %d): %s", e.StatusCode, e.Message)
}
