package steps

import (
	"fmt"

	"onboard/internal/manifest"
)

// Registry is the ordered, fixed list of wizard steps.
type Registry struct {
	steps []Controller
}

// NewRegistry builds the step list from a manifest. Each entry's step name
// selects the variant; unknown names are an error.
func NewRegistry(m *manifest.Manifest, deps Deps) (*Registry, error) {
	n := len(m.Entries)
	threshold := n - 1

	r := &Registry{steps: make([]Controller, 0, n)}
	for i, e := range m.Entries {
		var c Controller
		switch Kind(e.Step) {
		case KindPersonal:
			c = NewPersonal(i, threshold, e.Title, e.Endpoint, deps)
		case KindDocuments:
			c = NewDocuments(i, threshold, e.Title, e.Endpoint, deps)
		case KindBank:
			c = NewBank(i, threshold, e.Title, e.Endpoint, deps)
		case KindAgreement:
			c = NewAgreement(i, threshold, e.Title, e.Endpoint, deps)
		default:
			return nil, fmt.Errorf("unknown step kind %q at position %d", e.Step, i+1)
		}
		r.steps = append(r.steps, c)
	}
	return r, nil
}

// DefaultRegistry builds the standard Personal, Documents, Bank, Agreement list.
func DefaultRegistry(deps Deps) *Registry {
	r, err := NewRegistry(manifest.Default(), deps)
	if err != nil {
		panic(err)
	}
	return r
}

// NewRegistryFromSteps wraps an explicit list of controllers.
func NewRegistryFromSteps(steps ...Controller) *Registry {
	return &Registry{steps: steps}
}

// Len returns the number of steps.
func (r *Registry) Len() int { return len(r.steps) }

// At returns the step at index i, or nil when out of range.
func (r *Registry) At(i int) Controller {
	if i < 0 || i >= len(r.steps) {
		return nil
	}
	return r.steps[i]
}

// Find returns the first step of the given kind, or nil.
func (r *Registry) Find(k Kind) Controller {
	for _, s := range r.steps {
		if s.Kind() == k {
			return s
		}
	}
	return nil
}

// Titles returns the step titles in order.
func (r *Registry) Titles() []string {
	titles := make([]string, len(r.steps))
	for i, s := range r.steps {
		titles[i] = s.Title()
	}
	return titles
}
