package search

import (
	"context"
	"log/slog"
	"strings"

	"requestarr/internal/logging"
	"requestarr/internal/services"
)

// Candidate is one provider result offered to the user when filing a request.
type Candidate struct {
	Title       string `json:"title"`
	Author      string `json:"author,omitempty"`
	Narrator    string `json:"narrator,omitempty"`
	CoverURL    string `json:"cover_url,omitempty"`
	ISBN        string `json:"isbn,omitempty"`
	ASIN        string `json:"asin,omitempty"`
	Duration    string `json:"duration,omitempty"`
	Description string `json:"description,omitempty"`
	Source      string `json:"source"`
}

// Query describes one provider search.
type Query struct {
	Text     string
	Author   bool
	Narrator bool
	Page     int
}

// Provider is a single metadata source.
type Provider interface {
	Name() string
	Search(ctx context.Context, query Query) ([]Candidate, error)
}

// Service fans a query out to providers in order.
type Service struct {
	providers []Provider
	logger    *slog.Logger
}

// NewService builds a service over the given providers. Provider order is
// significant; earlier providers are preferred.
func NewService(logger *slog.Logger, providers ...Provider) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	active := make([]Provider, 0, len(providers))
	for _, provider := range providers {
		if provider != nil {
			active = append(active, provider)
		}
	}
	return &Service{providers: active, logger: logger}
}

// Search returns results from the first provider that yields any. A provider
// error is logged and the next provider is tried; an error is returned only
// when no provider is configured.
func (s *Service) Search(ctx context.Context, query Query) ([]Candidate, error) {
	if strings.TrimSpace(query.Text) == "" {
		return nil, services.Wrap(services.ErrValidation, "search", "query", "empty query", nil)
	}
	if len(s.providers) == 0 {
		return nil, services.Wrap(services.ErrNotConfigured, "search", "query", "no providers enabled", nil)
	}
	for _, provider := range s.providers {
		results, err := provider.Search(ctx, query)
		if err != nil {
			s.logger.Warn("search provider failed",
				logging.String("provider", provider.Name()),
				logging.Error(err))
			continue
		}
		if len(results) > 0 {
			return results, nil
		}
	}
	return []Candidate{}, nil
}
