// Package signal defines signal sources: the external collaborators that
// decide what to trade. The engine only consumes their output; sources carry
// no portfolio state.
package signal

import (
	"sort"

	"marlin/internal/domain"
	"marlin/internal/market"
)

// Source produces the full signal set for a run from the instrument table.
type Source interface {
	// Name returns the unique identifier for this source.
	Name() string

	// Signals returns every buy/sell signal over the table's calendar.
	// Signals need not be sorted; the engine groups them by date.
	Signals(table *market.Table) ([]domain.Signal, error)
}

// Registry holds a named collection of signal sources for lookup and
// enumeration.
type Registry struct {
	sources map[string]Source
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]Source)}
}

// Register adds a source to the registry, keyed by its Name().
func (r *Registry) Register(s Source) {
	r.sources[s.Name()] = s
}

// Get retrieves a source by name. The second return value indicates whether
// the source was found.
func (r *Registry) Get(name string) (Source, bool) {
	s, ok := r.sources[name]
	return s, ok
}

// List returns a sorted slice of all registered source names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
