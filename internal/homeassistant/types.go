package homeassistant

import (
	"sort"
	"strings"
	"time"
)

// unknownFriendlyName is used when an entity carries no friendly_name attribute.
const unknownFriendlyName = "unknown"

// Entity represents a Home Assistant entity state.
type Entity struct {
	EntityID    string         `json:"entity_id"`
	State       string         `json:"state"`
	Attributes  map[string]any `json:"attributes"`
	LastChanged time.Time      `json:"last_changed"`
	LastUpdated time.Time      `json:"last_updated"`
	Context     Context        `json:"context"`
}

// Context represents the context of a state change.
type Context struct {
	ID       string `json:"id"`
	ParentID string `json:"parent_id,omitempty"`
	UserID   string `json:"user_id,omitempty"`
}

// Domain returns the domain part of the entity ID (the prefix before the dot).
func (e Entity) Domain() string {
	if idx := strings.Index(e.EntityID, "."); idx > 0 {
		return e.EntityID[:idx]
	}
	return ""
}

// FriendlyName returns the friendly_name attribute, or "unknown" if absent.
func (e Entity) FriendlyName() string {
	if name := getStringAttr(e.Attributes, "friendly_name"); name != "" {
		return name
	}
	return unknownFriendlyName
}

// Summary reduces the entity to the fields surfaced during discovery.
func (e Entity) Summary() EntitySummary {
	return EntitySummary{
		EntityID:     e.EntityID,
		FriendlyName: e.FriendlyName(),
		Domain:       e.Domain(),
	}
}

// EntitySummary is the discovery view of an entity: just enough for an LLM
// to match a user's phrasing against entity IDs.
type EntitySummary struct {
	EntityID     string `json:"entity_id"`
	FriendlyName string `json:"friendly_name"`
	Domain       string `json:"domain"`
}

// ServiceDomain represents one entry of the /api/services response:
// a domain plus the services it exposes.
type ServiceDomain struct {
	Domain   string         `json:"domain"`
	Services map[string]any `json:"services"`
}

// ServiceNames returns the sorted service names of the domain.
func (d ServiceDomain) ServiceNames() []string {
	names := make([]string, 0, len(d.Services))
	for name := range d.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ServiceCallReceipt summarizes a service call: the request that was sent
// and the raw response that came back. Tools render it verbatim so the
// caller can reason over failures without a round trip.
type ServiceCallReceipt struct {
	Success    bool           `json:"success"`
	StatusCode int            `json:"status_code"`
	Domain     string         `json:"domain"`
	Service    string         `json:"service"`
	Endpoint   string         `json:"request_url"`
	Payload    map[string]any `json:"request_payload"`
	Response   string         `json:"response"`
}

// getStringAttr safely extracts a string value from an attributes map.
// Returns an empty string if the key doesn't exist or the value is not a string.
func getStringAttr(attrs map[string]any, key string) string {
	if v, ok := attrs[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
