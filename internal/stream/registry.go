package stream

import (
	"fmt"
	"slices"
)

// Registry is the read-only set of known stream definitions.
type Registry struct {
	defs  map[string]Definition
	order []string
}

// NewRegistry validates defs and their parent/child wiring.
func NewRegistry(defs []Definition) (*Registry, error) {
	r := &Registry{defs: make(map[string]Definition, len(defs))}

	for _, def := range defs {
		if err := def.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.defs[def.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate stream %s", ErrInvalidDefinition, def.ID)
		}
		r.defs[def.ID] = def
		r.order = append(r.order, def.ID)
	}

	for _, id := range r.order {
		def := r.defs[id]
		if def.Parent != "" {
			parent, ok := r.defs[def.Parent]
			if !ok {
				return nil, fmt.Errorf("%w: %s: unknown parent %s", ErrInvalidDefinition, id, def.Parent)
			}
			if !slices.Contains(parent.Children, id) {
				return nil, fmt.Errorf("%w: %s: parent %s does not list it as a child", ErrInvalidDefinition, id, def.Parent)
			}
		}
		for _, childID := range def.Children {
			child, ok := r.defs[childID]
			if !ok {
				return nil, fmt.Errorf("%w: %s: unknown child %s", ErrInvalidDefinition, id, childID)
			}
			if child.Parent != id {
				return nil, fmt.Errorf("%w: %s: child %s has parent %q", ErrInvalidDefinition, id, childID, child.Parent)
			}
		}
		if def.SharesBookmark && len(def.Children) == 0 {
			return nil, fmt.Errorf("%w: %s: shared bookmark without children", ErrInvalidDefinition, id)
		}
	}

	return r, nil
}

// Definitions returns every definition in registration order.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.defs[id])
	}
	return out
}

func (r *Registry) Get(id string) (Definition, bool) {
	def, ok := r.defs[id]
	return def, ok
}

// Build instantiates the streams needed for selected and returns the roots to
// run. Unselected ancestors of selected streams are included so they can drive
// their children; children whose subtree holds nothing selected are left out.
func (r *Registry) Build(deps Deps, selected []string) ([]Stream, error) {
	want := make(map[string]bool, len(selected))
	for _, id := range selected {
		if _, ok := r.defs[id]; !ok {
			return nil, fmt.Errorf("unknown stream %s", id)
		}
		want[id] = true
	}

	var roots []Stream
	for _, id := range r.order {
		if r.defs[id].Parent != "" || !r.needed(id, want) {
			continue
		}
		roots = append(roots, r.instantiate(id, deps, want))
	}
	return roots, nil
}

func (r *Registry) needed(id string, want map[string]bool) bool {
	if want[id] {
		return true
	}
	for _, child := range r.defs[id].Children {
		if r.needed(child, want) {
			return true
		}
	}
	return false
}

func (r *Registry) instantiate(id string, deps Deps, want map[string]bool) Stream {
	def := r.defs[id]

	var children []Stream
	for _, childID := range def.Children {
		if r.needed(childID, want) {
			children = append(children, r.instantiate(childID, deps, want))
		}
	}

	if def.Incremental() {
		return NewIncremental(def, deps, children)
	}
	return NewFullTable(def, deps, children)
}
