package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gitlab.com/rdelange/ha-tools/internal/homeassistant"
	"gitlab.com/rdelange/ha-tools/internal/markdown"
)

// attributesHint nudges the model toward the follow-up tool after discovery.
const attributesHint = "If you want to know the *current state* of one of these devices, " +
	"call `get_entity_attributes` with the correct `entity_id`."

// EntityHandlers provides the entity discovery and inspection tools.
// It keeps a snapshot of the last discovery result per domain.
type EntityHandlers struct {
	mu    sync.Mutex
	cache map[string][]homeassistant.EntitySummary
}

// NewEntityHandlers creates a new EntityHandlers instance.
func NewEntityHandlers() *EntityHandlers {
	return &EntityHandlers{
		cache: make(map[string][]homeassistant.EntitySummary),
	}
}

// RegisterTools registers all entity-related tools with the registry.
func (h *EntityHandlers) RegisterTools(registry *Registry) {
	registry.RegisterTool(h.entitiesByDomainTool(), h.handleEntitiesByDomain)
	registry.RegisterTool(h.allEntitiesTool(), h.handleAllEntities)
	registry.RegisterTool(h.entityAttributesTool(), h.handleEntityAttributes)
}

// CachedEntities returns the last discovery snapshot for a domain.
func (h *EntityHandlers) CachedEntities(domain string) ([]homeassistant.EntitySummary, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entities, ok := h.cache[domain]
	return entities, ok
}

// storeCache records a discovery snapshot for a domain.
func (h *EntityHandlers) storeCache(domain string, entities []homeassistant.EntitySummary) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cache[domain] = entities
}

func (h *EntityHandlers) entitiesByDomainTool() Tool {
	return Tool{
		Name: "get_entities_by_domain",
		Description: "Retrieve all Home Assistant entities that belong to a specific domain " +
			"(e.g., light, switch, fan). Returns a markdown table of entity IDs and friendly names " +
			"so the model can match the user's phrasing against devices.",
		InputSchema: JSONSchema{
			Type:        "object",
			Description: "Parameters for domain discovery",
			Properties: map[string]JSONSchema{
				"domain": {
					Type:        "string",
					Description: "The domain of devices to retrieve, such as 'light', 'switch', 'fan'",
				},
			},
			Required: []string{"domain"},
		},
	}
}

func (h *EntityHandlers) handleEntitiesByDomain(ctx context.Context, client homeassistant.Client, args map[string]any, emitter Emitter) (*Result, error) {
	domain := getString(args, "domain")
	if domain == "" {
		return NewErrorResult("domain is required"), nil
	}

	emitStatus(ctx, emitter, fmt.Sprintf("Querying entities in domain '%s'", domain), false)

	states, err := client.GetStates(ctx)
	if err != nil {
		emitStatus(ctx, emitter, fmt.Sprintf("Error: %v", err), true)
		return NewErrorResult(fmt.Sprintf("Error getting states: %v", err)), nil
	}

	prefix := domain + "."
	summaries := make([]homeassistant.EntitySummary, 0)
	for _, state := range states {
		if strings.HasPrefix(state.EntityID, prefix) {
			summaries = append(summaries, state.Summary())
		}
	}

	h.storeCache(domain, summaries)

	table := markdown.Bold("Discovered entities in domain") + " " + markdown.Code(domain) + ":\n\n" +
		entityTable(summaries)

	emitMessage(ctx, emitter, table)
	emitMessage(ctx, emitter, attributesHint)
	emitStatus(ctx, emitter, "Discovery complete", true)

	return NewResult(table), nil
}

func (h *EntityHandlers) allEntitiesTool() Tool {
	return Tool{
		Name: "get_all_entities",
		Description: "Retrieve all entities from Home Assistant, grouped by domain. " +
			"Use this for broad or ambiguous commands where the relevant domain is unknown. " +
			"Returns one markdown table per domain.",
		InputSchema: JSONSchema{
			Type:        "object",
			Description: "No parameters required",
			Properties:  map[string]JSONSchema{},
		},
	}
}

func (h *EntityHandlers) handleAllEntities(ctx context.Context, client homeassistant.Client, _ map[string]any, emitter Emitter) (*Result, error) {
	emitStatus(ctx, emitter, "Querying all entities", false)

	states, err := client.GetStates(ctx)
	if err != nil {
		emitStatus(ctx, emitter, fmt.Sprintf("Error: %v", err), true)
		return NewErrorResult(fmt.Sprintf("Error getting states: %v", err)), nil
	}

	grouped := make(map[string][]homeassistant.EntitySummary)
	for _, state := range states {
		domain := state.Domain()
		if domain == "" {
			continue
		}
		grouped[domain] = append(grouped[domain], state.Summary())
	}

	domains := make([]string, 0, len(grouped))
	for domain := range grouped {
		domains = append(domains, domain)
	}
	sort.Strings(domains)

	var sb strings.Builder
	for _, domain := range domains {
		h.storeCache(domain, grouped[domain])

		section := markdown.Heading(3, "Domain: "+markdown.Code(domain)) + "\n\n" +
			entityTable(grouped[domain])

		emitMessage(ctx, emitter, section)

		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(section)
	}

	emitStatus(ctx, emitter, "Full discovery complete", true)

	return NewResult(sb.String()), nil
}

func (h *EntityHandlers) entityAttributesTool() Tool {
	return Tool{
		Name: "get_entity_attributes",
		Description: "Retrieve the current state and all attributes for a specific entity. " +
			"Useful before issuing commands that set brightness, percentage, temperature, etc.",
		InputSchema: JSONSchema{
			Type:        "object",
			Description: "Parameters for the attribute lookup",
			Properties: map[string]JSONSchema{
				"entity_id": {
					Type:        "string",
					Description: "The full entity ID (e.g., 'light.office_fan', 'fan.living_room')",
				},
			},
			Required: []string{"entity_id"},
		},
	}
}

func (h *EntityHandlers) handleEntityAttributes(ctx context.Context, client homeassistant.Client, args map[string]any, emitter Emitter) (*Result, error) {
	entityID := getString(args, "entity_id")
	if entityID == "" {
		return NewErrorResult("entity_id is required"), nil
	}

	emitStatus(ctx, emitter, fmt.Sprintf("Querying current state of `%s`", entityID), false)

	entity, err := client.GetState(ctx, entityID)
	if err != nil {
		emitStatus(ctx, emitter, fmt.Sprintf("Error: %v", err), true)
		return NewErrorResult(fmt.Sprintf("Error getting state for %s: %v", entityID, err)), nil
	}

	keys := make([]string, 0, len(entity.Attributes))
	for key := range entity.Attributes {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	items := make([]string, 0, len(keys))
	for _, key := range keys {
		items = append(items, markdown.KeyValue(key, entity.Attributes[key]))
	}

	md := markdown.Bold("Current state for "+markdown.Code(entityID)) + ": " + markdown.Code(entity.State) + "\n\n" +
		markdown.Bold("Attributes:") + "\n\n" +
		markdown.Bullets(items)

	emitMessage(ctx, emitter, md)
	emitStatus(ctx, emitter, "Attribute query complete", true)

	return NewResult(md), nil
}

// entityTable renders discovery summaries as the standard two-column table.
func entityTable(entities []homeassistant.EntitySummary) string {
	rows := make([][]string, 0, len(entities))
	for _, e := range entities {
		rows = append(rows, []string{markdown.Code(e.EntityID), e.FriendlyName})
	}
	return markdown.Table([]string{"Entity ID", "Friendly Name"}, rows)
}
