package scanner

import (
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/d1freeez14/neuro-tender/internal/domain"
)

// Strategy captures a single per-site parsing implementation.
type Strategy interface {
	// Name identifies the strategy inside the registry.
	Name() string
	// LastPageNumber inspects the pagination control of a search-result page.
	// Missing or unparsable pagination yields 1, never an error.
	LastPageNumber(doc *goquery.Document) int
	// Announcements extracts id/name pairs from a result page. Rows lacking a
	// parsable id or name are skipped individually, never aborting the page.
	Announcements(doc *goquery.Document, page int) map[string]domain.Announcement
	// PageURL builds the URL for the given result page number.
	PageURL(searchURL string, page int) string
}

// Registry keeps a mapping from strategy names to their implementations.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{strategies: map[string]Strategy{}}
}

// Register adds or replaces a strategy implementation.
func (r *Registry) Register(strategy Strategy) {
	if r.strategies == nil {
		r.strategies = map[string]Strategy{}
	}
	r.strategies[strategy.Name()] = strategy
}

// Resolve returns a strategy by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Strategy, error) {
	if strategy, ok := r.strategies[name]; ok {
		return strategy, nil
	}
	return nil, fmt.Errorf("parser %s is not registered", name)
}

// Names lists the registered strategy names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	return names
}
