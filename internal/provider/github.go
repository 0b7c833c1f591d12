package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// GitHub serves roles from a static text host such as raw.githubusercontent.com.
// Each role is a plain text file under the base URL with one tool name per
// line; the index file lists the names of all defined roles.
type GitHub struct {
	baseURL   string
	indexFile string
	client    *http.Client
}

// NewGitHub creates a provider reading raw role files below baseURL
func NewGitHub(baseURL, indexFile string, client *http.Client) *GitHub {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &GitHub{
		baseURL:   baseURL,
		indexFile: indexFile,
		client:    client,
	}
}

// FetchRole fetches the raw tool list for a single role
func (g *GitHub) FetchRole(ctx context.Context, role string) ([]string, error) {
	body, err := g.fetch(ctx, g.baseURL+url.PathEscape(role))
	if err != nil {
		return nil, err
	}
	return strings.Split(body, "\n"), nil
}

// ListRoles fetches the role index and returns the defined role names
func (g *GitHub) ListRoles(ctx context.Context) ([]string, error) {
	body, err := g.fetch(ctx, g.baseURL+g.indexFile)
	if err != nil {
		return nil, err
	}

	var roles []string
	for _, line := range strings.Split(body, "\n") {
		if name := strings.TrimSpace(line); name != "" {
			roles = append(roles, name)
		}
	}
	return roles, nil
}

func (g *GitHub) fetch(ctx context.Context, resource string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resource, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request for %s: %w", resource, err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", resource, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch %s: HTTP %d", resource, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response from %s: %w", resource, err)
	}

	return string(body), nil
}
