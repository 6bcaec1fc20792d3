package projection

import (
	"errors"
	"fmt"
	"iter"
	"strings"
)

var (
	ErrDuplicateID   = errors.New("duplicate projection id")
	ErrNotFound      = errors.New("projection not found")
	ErrEmptyRegistry = errors.New("empty projection registry")
)

// Registry is an ordered, circular set of projection definitions.
// The position of a definition is fixed when the registry is built,
// next and prev wrap around at both ends.
type Registry struct {
	defs  []*Definition
	index map[string]int
}

func NewRegistry(defs ...*Definition) (*Registry, error) {
	if len(defs) == 0 {
		return nil, ErrEmptyRegistry
	}
	r := &Registry{
		defs:  make([]*Definition, 0, len(defs)),
		index: make(map[string]int, len(defs)),
	}
	for _, d := range defs {
		if d == nil || strings.TrimSpace(d.ID) == "" {
			return nil, errors.New("projection id is empty")
		}
		if _, exists := r.index[d.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, d.ID)
		}
		r.index[d.ID] = len(r.defs)
		r.defs = append(r.defs, d)
	}
	return r, nil
}

// With returns a new registry with defs appended, r is left unchanged.
func (r *Registry) With(defs ...*Definition) (*Registry, error) {
	all := make([]*Definition, 0, len(r.defs)+len(defs))
	all = append(all, r.defs...)
	all = append(all, defs...)
	return NewRegistry(all...)
}

func (r *Registry) Len() int {
	return len(r.defs)
}

func (r *Registry) Get(id string) (*Definition, error) {
	idx, ok := r.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r.defs[idx], nil
}

// Index returns the position of id, or -1.
func (r *Registry) Index(id string) int {
	if idx, ok := r.index[id]; ok {
		return idx
	}
	return -1
}

func (r *Registry) At(idx int) *Definition {
	return r.defs[idx]
}

// Next returns the definition after def in circular order.
// A definition that does not belong to r returns nil.
func (r *Registry) Next(def *Definition) *Definition {
	if def == nil {
		return nil
	}
	next, _ := r.NextOf(def.ID)
	return next
}

// Prev returns the definition before def in circular order.
func (r *Registry) Prev(def *Definition) *Definition {
	if def == nil {
		return nil
	}
	prev, _ := r.PrevOf(def.ID)
	return prev
}

func (r *Registry) NextOf(id string) (*Definition, error) {
	idx, ok := r.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r.defs[(idx+1)%len(r.defs)], nil
}

func (r *Registry) PrevOf(id string) (*Definition, error) {
	idx, ok := r.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r.defs[(idx-1+len(r.defs))%len(r.defs)], nil
}

// All yields the definitions in registry order.
func (r *Registry) All() iter.Seq[*Definition] {
	return func(yield func(*Definition) bool) {
		for _, d := range r.defs {
			if !yield(d) {
				return
			}
		}
	}
}

// ByCRS returns the first definition using the crs code.
func (r *Registry) ByCRS(code string) (*Definition, error) {
	for _, d := range r.defs {
		if strings.EqualFold(d.CRSCode, code) {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: crs %s", ErrNotFound, code)
}

// ForLongitude returns the definition whose projection suits lon best,
// see ForLongitude.
func (r *Registry) ForLongitude(lon float64) (*Definition, error) {
	return r.ByCRS(ForLongitude(lon))
}
