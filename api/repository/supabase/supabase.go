// Package supabase implements the repositories on top of Supabase's
// PostgREST API, using the same tables as package pg.
package supabase

import (
	"fmt"
	"strings"

	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"
)

const (
	returnRepresentation = "representation"
)

type Config struct {
	ProjectURL string
	// ServiceKey bypasses row level security; it must never reach a browser.
	ServiceKey string
}

func NewClient(cfg Config) (*supabase.Client, error) {
	if cfg.ProjectURL == "" {
		return nil, fmt.Errorf("project URL is required")
	}
	if cfg.ServiceKey == "" {
		return nil, fmt.Errorf("service key is required")
	}
	return supabase.NewClient(strings.TrimRight(cfg.ProjectURL, "/"), cfg.ServiceKey, nil)
}

func ascending() *postgrest.OrderOpts {
	return &postgrest.OrderOpts{Ascending: true}
}

func descending() *postgrest.OrderOpts {
	return &postgrest.OrderOpts{Ascending: false}
}
