package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"gitlab.com/rdelange/ha-tools/internal/homeassistant"
	"gitlab.com/rdelange/ha-tools/internal/markdown"
)

// ServiceHandlers provides the service discovery and service call tools.
type ServiceHandlers struct{}

// NewServiceHandlers creates a new ServiceHandlers instance.
func NewServiceHandlers() *ServiceHandlers {
	return &ServiceHandlers{}
}

// RegisterTools registers all service-related tools with the registry.
func (h *ServiceHandlers) RegisterTools(registry *Registry) {
	registry.RegisterTool(h.servicesForDomainTool(), h.handleServicesForDomain)
	registry.RegisterTool(h.controlEntityTool(), h.handleControlEntity)
	registry.RegisterTool(h.setEntityAttributeTool(), h.handleSetEntityAttribute)
}

func (h *ServiceHandlers) servicesForDomainTool() Tool {
	return Tool{
		Name: "get_services_for_domain",
		Description: "Retrieve all available services for a given Home Assistant domain. " +
			"Use this when unsure which actions a domain allows (e.g., turn_on, turn_off, toggle).",
		InputSchema: JSONSchema{
			Type:        "object",
			Description: "Parameters for the service lookup",
			Properties: map[string]JSONSchema{
				"domain": {
					Type:        "string",
					Description: "The domain of the devices (e.g., 'light', 'fan', 'switch')",
				},
			},
			Required: []string{"domain"},
		},
	}
}

func (h *ServiceHandlers) handleServicesForDomain(ctx context.Context, client homeassistant.Client, args map[string]any, emitter Emitter) (*Result, error) {
	domain := getString(args, "domain")
	if domain == "" {
		return NewErrorResult("domain is required"), nil
	}

	emitStatus(ctx, emitter, fmt.Sprintf("Fetching available services for domain '%s'", domain), false)

	domains, err := client.GetServices(ctx)
	if err != nil {
		emitStatus(ctx, emitter, fmt.Sprintf("Error: %v", err), true)
		return NewErrorResult(fmt.Sprintf("Error getting services: %v", err)), nil
	}

	var match *homeassistant.ServiceDomain
	for i := range domains {
		if domains[i].Domain == domain {
			match = &domains[i]
			break
		}
	}

	// A domain without services is an empty listing, not an error
	if match == nil {
		notFound := "No services found for domain " + markdown.Code(domain)
		emitMessage(ctx, emitter, notFound)
		emitStatus(ctx, emitter, "Service list complete", true)
		return NewResult(notFound), nil
	}

	names := match.ServiceNames()
	items := make([]string, 0, len(names))
	for _, name := range names {
		items = append(items, markdown.Code(name))
	}

	md := markdown.Bold("Available services for domain") + " " + markdown.Code(domain) + ":\n\n" +
		markdown.Bullets(items)

	emitMessage(ctx, emitter, md)
	emitStatus(ctx, emitter, "Service list complete", true)

	return NewResult(md), nil
}

func (h *ServiceHandlers) controlEntityTool() Tool {
	return Tool{
		Name: "control_entity",
		Description: "Send a command to control a Home Assistant entity, such as turning a " +
			"device on or off. Only call this when the full entity_id, domain, and service " +
			"are already known from prior discovery.",
		InputSchema: JSONSchema{
			Type:        "object",
			Description: "Parameters for the service call",
			Properties: map[string]JSONSchema{
				"entity_id": {
					Type:        "string",
					Description: "The full entity ID to target (e.g., 'light.office_fan')",
				},
				"domain": {
					Type:        "string",
					Description: "The domain of the device (e.g., 'light', 'switch')",
				},
				"service": {
					Type:        "string",
					Description: "The action to perform (e.g., 'turn_on', 'turn_off')",
				},
			},
			Required: []string{"entity_id", "domain", "service"},
		},
	}
}

func (h *ServiceHandlers) handleControlEntity(ctx context.Context, client homeassistant.Client, args map[string]any, emitter Emitter) (*Result, error) {
	entityID := getString(args, "entity_id")
	if entityID == "" {
		return NewErrorResult("entity_id is required"), nil
	}
	domain := getString(args, "domain")
	if domain == "" {
		return NewErrorResult("domain is required"), nil
	}
	service := getString(args, "service")
	if service == "" {
		return NewErrorResult("service is required"), nil
	}

	payload := map[string]any{"entity_id": entityID}

	emitStatus(ctx, emitter, fmt.Sprintf("Sending %s command to %s", service, entityID), false)

	result := h.callService(ctx, client, entityID, domain, service, payload, emitter)

	emitStatus(ctx, emitter, "Command complete", true)
	return result, nil
}

func (h *ServiceHandlers) setEntityAttributeTool() Tool {
	return Tool{
		Name: "set_entity_attribute",
		Description: "Send a service command with a custom data payload to modify an entity. " +
			"Use this when controlling a device requires additional parameters, such as " +
			"brightness, percentage, color, or temperature.",
		InputSchema: JSONSchema{
			Type:        "object",
			Description: "Parameters for the service call with data",
			Properties: map[string]JSONSchema{
				"entity_id": {
					Type:        "string",
					Description: "The full entity ID (e.g., 'light.office_fan')",
				},
				"domain": {
					Type:        "string",
					Description: "The domain of the device (e.g., 'light', 'fan', 'climate')",
				},
				"service": {
					Type:        "string",
					Description: "The service to call (e.g., 'turn_on', 'set_temperature')",
				},
				"data": {
					Type:        "object",
					Description: "Additional service parameters (e.g., {\"brightness_pct\": 40})",
				},
			},
			Required: []string{"entity_id", "domain", "service", "data"},
		},
	}
}

func (h *ServiceHandlers) handleSetEntityAttribute(ctx context.Context, client homeassistant.Client, args map[string]any, emitter Emitter) (*Result, error) {
	entityID := getString(args, "entity_id")
	if entityID == "" {
		return NewErrorResult("entity_id is required"), nil
	}
	domain := getString(args, "domain")
	if domain == "" {
		return NewErrorResult("domain is required"), nil
	}
	service := getString(args, "service")
	if service == "" {
		return NewErrorResult("service is required"), nil
	}
	data := getMap(args, "data")
	if data == nil {
		return NewErrorResult("data is required"), nil
	}

	// Entity ID first; data fields may override it deliberately
	payload := map[string]any{"entity_id": entityID}
	for k, v := range data {
		payload[k] = v
	}

	emitStatus(ctx, emitter, fmt.Sprintf("Sending `%s` with data to `%s`", service, entityID), false)

	result := h.callService(ctx, client, entityID, domain, service, payload, emitter)

	emitStatus(ctx, emitter, "Attribute change complete", true)
	return result, nil
}

// callService performs the service call, emits request/response detail
// messages, and renders the receipt.
func (h *ServiceHandlers) callService(ctx context.Context, client homeassistant.Client, entityID, domain, service string, payload map[string]any, emitter Emitter) *Result {
	payloadJSON := marshalForDisplay(payload)

	emitMessage(ctx, emitter, markdown.Bold("Request Details")+"\n"+
		markdown.Bullets([]string{
			"Endpoint: " + markdown.Code(fmt.Sprintf("/api/services/%s/%s", domain, service)),
			"Payload: " + markdown.CodeBlock("json", payloadJSON),
		}))

	receipt, err := client.CallService(ctx, domain, service, payload)
	if err != nil {
		emitStatus(ctx, emitter, fmt.Sprintf("Error: %v", err), true)
		return NewErrorResult(fmt.Sprintf("Error calling %s.%s: %v", domain, service, err))
	}

	emitMessage(ctx, emitter, markdown.Bold("Response Details")+"\n"+
		markdown.Bullets([]string{
			"Status: " + markdown.Code(strconv.Itoa(receipt.StatusCode)),
			"Body: " + markdown.CodeBlock("json", receipt.Response),
		}))

	md := receiptMarkdown(receipt, entityID)
	if !receipt.Success {
		return NewErrorResult(md)
	}
	return NewResult(md)
}

// receiptMarkdown renders a service call receipt as markdown.
func receiptMarkdown(receipt *homeassistant.ServiceCallReceipt, entityID string) string {
	response := receipt.Response
	if response == "" {
		response = `""`
	}

	return markdown.Bold("Service Call Result") + "\n" +
		markdown.Bullets([]string{
			"Success: " + markdown.Code(strconv.FormatBool(receipt.Success)),
			"Status: " + markdown.Code(strconv.Itoa(receipt.StatusCode)),
			"Entity: " + markdown.Code(entityID),
			"Service: " + markdown.Code(receipt.Domain+"."+receipt.Service),
			"Endpoint: " + markdown.Code(receipt.Endpoint),
		}) + "\n" +
		markdown.Bold("Payload:") + "\n" +
		markdown.CodeBlock("json", marshalForDisplay(receipt.Payload)) + "\n\n" +
		markdown.Bold("Response:") + "\n" +
		markdown.CodeBlock("json", response)
}

// marshalForDisplay renders a payload as indented JSON, falling back to the
// Go representation if marshaling fails.
func marshalForDisplay(payload map[string]any) string {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", payload)
	}
	return string(data)
}
