package layer

import (
	"fmt"
	"iter"
	"slices"

	"github.com/paulmach/orb/geojson"
)

// Group is a composite layer, it owns its children in insertion order.
type Group struct {
	id       string
	children []Layer
}

var _ Composite = (*Group)(nil)

func NewGroup(id string, children ...Layer) *Group {
	return &Group{id: id, children: children}
}

func (g *Group) ID() string { return g.id }
func (g *Group) Kind() Kind { return KindGroup }

func (g *Group) Add(l Layer) {
	if slices.Contains(g.children, l) {
		return
	}
	g.children = append(g.children, l)
}

func (g *Group) Remove(l Layer) {
	g.children = slices.DeleteFunc(g.children, func(c Layer) bool { return c == l })
}

func (g *Group) Len() int {
	return len(g.children)
}

func (g *Group) Children() iter.Seq[Layer] {
	return func(yield func(Layer) bool) {
		for _, c := range g.children {
			if !yield(c) {
				return
			}
		}
	}
}

// Walk visits l and every layer nested in it, depth first.
func Walk(l Layer, fn func(Layer) bool) bool {
	if !fn(l) {
		return false
	}
	if c, ok := l.(Composite); ok {
		for child := range c.Children() {
			if !Walk(child, fn) {
				return false
			}
		}
	}
	return true
}

// FromGeoJSON builds a group with one vector per feature.
func FromGeoJSON(id string, data []byte) (*Group, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, err
	}
	return FromFeatureCollection(id, fc), nil
}

func FromFeatureCollection(id string, fc *geojson.FeatureCollection) *Group {
	g := NewGroup(id)
	for i, f := range fc.Features {
		childID := featureID(id, i, f)
		g.Add(NewVector(childID, f.Geometry, f.Properties))
	}
	return g
}

// FeatureCollection collects the vectors nested in g.
func (g *Group) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	Walk(g, func(l Layer) bool {
		if v, ok := l.(*Vector); ok {
			fc.Append(v.Feature())
		}
		return true
	})
	return fc
}

func featureID(groupID string, idx int, f *geojson.Feature) string {
	switch id := f.ID.(type) {
	case string:
		if id != "" {
			return id
		}
	case float64:
		return fmt.Sprintf("%s/%v", groupID, id)
	}
	return fmt.Sprintf("%s/%d", groupID, idx)
}
