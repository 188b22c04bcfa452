package homeassistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// noResponseBody is the default message when server returns empty response.
const noResponseBody = "no response body"

// RESTClient implements Client against the Home Assistant REST API.
type RESTClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Ensure RESTClient implements Client at compile time.
var _ Client = (*RESTClient)(nil)

// RESTClientConfig configures the REST client.
type RESTClientConfig struct {
	// Timeout for HTTP requests (default: 30 seconds)
	Timeout time.Duration
}

// DefaultRESTClientConfig returns the default REST client configuration.
func DefaultRESTClientConfig() RESTClientConfig {
	return RESTClientConfig{
		Timeout: 30 * time.Second,
	}
}

// NewRESTClient creates a new REST client with default configuration.
func NewRESTClient(baseURL, token string) *RESTClient {
	return NewRESTClientWithConfig(baseURL, token, DefaultRESTClientConfig())
}

// NewRESTClientWithConfig creates a new REST client with custom configuration.
func NewRESTClientWithConfig(baseURL, token string, config RESTClientConfig) *RESTClient {
	// Normalize base URL - remove trailing slash and ensure no /api suffix
	baseURL = strings.TrimSuffix(baseURL, "/")
	baseURL = strings.TrimSuffix(baseURL, "/api")

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &RESTClient{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// BaseURL returns the normalized base URL of the client.
func (c *RESTClient) BaseURL() string {
	return c.baseURL
}

// getJSON performs an authenticated GET request and decodes the JSON response
// into out. notFoundMsg is used for the APIError message on a 404 response.
func (c *RESTClient) getJSON(ctx context.Context, path, notFoundMsg string, out any) error {
	url := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer func() {
		// Drain and close the response body to enable connection reuse
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return c.statusError(resp, notFoundMsg)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}

// statusError maps a non-OK response to an APIError.
func (c *RESTClient) statusError(resp *http.Response, notFoundMsg string) error {
	body, _ := io.ReadAll(resp.Body)
	bodyStr := string(body)
	if bodyStr == "" {
		bodyStr = noResponseBody
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    notFoundMsg,
		}
	case http.StatusUnauthorized:
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    "unauthorized: invalid or expired token",
		}
	case http.StatusForbidden:
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    "forbidden: insufficient permissions",
		}
	default:
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, bodyStr),
		}
	}
}

// GetStates retrieves all entity states.
// Endpoint: GET /api/states
func (c *RESTClient) GetStates(ctx context.Context) ([]Entity, error) {
	var entities []Entity
	if err := c.getJSON(ctx, "/api/states", "states endpoint not found", &entities); err != nil {
		return nil, err
	}
	return entities, nil
}

// GetState retrieves the state of a specific entity.
// Endpoint: GET /api/states/{entity_id}
func (c *RESTClient) GetState(ctx context.Context, entityID string) (*Entity, error) {
	var entity Entity
	notFound := fmt.Sprintf("entity not found: %s", entityID)
	if err := c.getJSON(ctx, "/api/states/"+entityID, notFound, &entity); err != nil {
		return nil, err
	}
	return &entity, nil
}

// GetServices retrieves all service domains.
// Endpoint: GET /api/services
func (c *RESTClient) GetServices(ctx context.Context) ([]ServiceDomain, error) {
	var domains []ServiceDomain
	if err := c.getJSON(ctx, "/api/services", "services endpoint not found", &domains); err != nil {
		return nil, err
	}
	return domains, nil
}

// CallService invokes a Home Assistant service with the given payload.
// Endpoint: POST /api/services/{domain}/{service}
//
// A receipt is returned for every HTTP response so callers can surface the
// raw status and body; only transport and encoding failures produce errors.
func (c *RESTClient) CallService(ctx context.Context, domain, service string, payload map[string]any) (*ServiceCallReceipt, error) {
	url := fmt.Sprintf("%s/api/services/%s/%s", c.baseURL, domain, service)

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return &ServiceCallReceipt{
		Success:    resp.StatusCode == http.StatusOK,
		StatusCode: resp.StatusCode,
		Domain:     domain,
		Service:    service,
		Endpoint:   url,
		Payload:    payload,
		Response:   string(respBody),
	}, nil
}
