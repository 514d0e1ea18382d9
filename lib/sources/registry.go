package sources

import (
	"github.com/dzmitryk/discountwatch/lib/models"
)

// Registry holds the active, ordered set of sources. It is assembled once at
// construction and never mutated during a collection run.
type Registry struct {
	sources []Source
}

func NewRegistry() *Registry {
	return &Registry{sources: catalog()}
}

// FromSources builds a registry from an explicit source set.
func FromSources(srcs ...Source) *Registry {
	return &Registry{sources: srcs}
}

func (r *Registry) All() []Source {
	return r.sources
}

func (r *Registry) ByCategory(category models.Category) []Source {
	out := make([]Source, 0, len(r.sources))
	for _, src := range r.sources {
		if src.Category == category {
			out = append(out, src)
		}
	}
	return out
}
