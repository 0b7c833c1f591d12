package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Registry serves roles from a JSON registry API. A role maps to an array of
// records, each carrying at least the tool name; the role index is served as
// an array of role records.
type Registry struct {
	baseURL string
	client  *http.Client
}

// record is the subset of a registry entry the engine cares about. Registries
// may attach more fields (version, maintainer); they are ignored.
type record struct {
	Name string `json:"name"`
}

// NewRegistry creates a provider backed by a registry API at baseURL
func NewRegistry(baseURL string, client *http.Client) *Registry {
	return &Registry{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
	}
}

// FetchRole fetches the tool records for a single role
func (r *Registry) FetchRole(ctx context.Context, role string) ([]string, error) {
	var records []record
	if err := r.getJSON(ctx, r.baseURL+"/roles/"+url.PathEscape(role), &records); err != nil {
		return nil, err
	}

	lines := make([]string, 0, len(records))
	for _, rec := range records {
		lines = append(lines, rec.Name)
	}
	return lines, nil
}

// ListRoles fetches the registry's role index
func (r *Registry) ListRoles(ctx context.Context) ([]string, error) {
	var records []record
	if err := r.getJSON(ctx, r.baseURL+"/roles", &records); err != nil {
		return nil, err
	}

	var roles []string
	for _, rec := range records {
		if name := strings.TrimSpace(rec.Name); name != "" {
			roles = append(roles, name)
		}
	}
	return roles, nil
}

func (r *Registry) getJSON(ctx context.Context, resource string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resource, nil)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", resource, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", resource, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to fetch %s: HTTP %d", resource, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response from %s: %w", resource, err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", resource, err)
	}

	return nil
}
