package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jakubGodula/cyber-toolkit/internal/config"
)

// Provider is the capability a role source has to implement. Implementations
// fetch role definitions from different backends but all return raw,
// un-normalized tool names.
type Provider interface {
	// FetchRole returns the raw tool-name lines for one role
	FetchRole(ctx context.Context, role string) ([]string, error)
	// ListRoles returns the names of all roles the source defines
	ListRoles(ctx context.Context) ([]string, error)
}

// New builds the provider selected by the source configuration
func New(cfg *config.Config) (Provider, error) {
	client := &http.Client{Timeout: cfg.Timeout()}

	switch cfg.Source.Type {
	case config.SourceGitHub:
		return NewGitHub(cfg.Source.BaseURL, cfg.Source.IndexFile, client), nil
	case config.SourceRegistry:
		return NewRegistry(cfg.Source.BaseURL, client), nil
	default:
		return nil, fmt.Errorf("unknown source type: %s", cfg.Source.Type)
	}
}
