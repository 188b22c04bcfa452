package homeassistant

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEntityDomain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		entityID string
		want     string
	}{
		{"light.office_fan", "light"},
		{"switch.garden", "switch"},
		{"sensor.outdoor_temperature", "sensor"},
		{"nodomain", ""},
		{".leading_dot", ""},
		{"", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.entityID, func(t *testing.T) {
			t.Parallel()

			e := Entity{EntityID: tt.entityID}
			if got := e.Domain(); got != tt.want {
				t.Errorf("Domain() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEntityFriendlyName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		attributes map[string]any
		want       string
	}{
		{
			name:       "present",
			attributes: map[string]any{"friendly_name": "Office Fan"},
			want:       "Office Fan",
		},
		{
			name:       "absent",
			attributes: map[string]any{"brightness": 128},
			want:       "unknown",
		},
		{
			name:       "nil attributes",
			attributes: nil,
			want:       "unknown",
		},
		{
			name:       "wrong type",
			attributes: map[string]any{"friendly_name": 42},
			want:       "unknown",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := Entity{EntityID: "light.test", Attributes: tt.attributes}
			if got := e.FriendlyName(); got != tt.want {
				t.Errorf("FriendlyName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEntitySummary(t *testing.T) {
	t.Parallel()

	e := Entity{
		EntityID: "fan.living_room",
		State:    "on",
		Attributes: map[string]any{
			"friendly_name": "Living Room Fan",
			"percentage":    60,
		},
	}

	want := EntitySummary{
		EntityID:     "fan.living_room",
		FriendlyName: "Living Room Fan",
		Domain:       "fan",
	}

	if diff := cmp.Diff(want, e.Summary()); diff != "" {
		t.Errorf("Summary() mismatch (-want +got):\n%s", diff)
	}
}

func TestServiceDomainServiceNames(t *testing.T) {
	t.Parallel()

	d := ServiceDomain{
		Domain: "light",
		Services: map[string]any{
			"turn_on":  map[string]any{},
			"toggle":   map[string]any{},
			"turn_off": map[string]any{},
		},
	}

	want := []string{"toggle", "turn_on", "turn_off"}
	if diff := cmp.Diff(want, d.ServiceNames()); diff != "" {
		t.Errorf("ServiceNames() mismatch (-want +got):\n%s", diff)
	}
}

func TestServiceDomainServiceNamesEmpty(t *testing.T) {
	t.Parallel()

	d := ServiceDomain{Domain: "empty"}
	if got := d.ServiceNames(); len(got) != 0 {
		t.Errorf("ServiceNames() = %v, want empty", got)
	}
}

func TestAPIErrorMessage(t *testing.T) {
	t.Parallel()

	err := &APIError{StatusCode: 404, Message: "entity not found: light.nope"}
	want := "Home Assistant API error (status 404): entity not found: light.nope"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
