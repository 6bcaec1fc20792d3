package projection

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

func defs(ids ...string) []*Definition {
	ret := make([]*Definition, len(ids))
	for i, id := range ids {
		ret[i] = &Definition{ID: id, CRSCode: "EPSG:" + id}
	}
	return ret
}

func ids(seq func(func(*Definition) bool)) []string {
	ret := []string{}
	for d := range seq {
		ret = append(ret, d.ID)
	}
	return ret
}

func TestRegistryCircular(t *testing.T) {
	for n := 1; n <= 6; n++ {
		names := []string{"a", "b", "c", "d", "e", "f"}[:n]
		r, err := NewRegistry(defs(names...)...)
		require.NoError(t, err)
		require.Equal(t, n, r.Len())

		for d := range r.All() {
			// n applications of next return to the start
			cur := d
			for i := 0; i < n; i++ {
				cur = r.Next(cur)
			}
			require.Same(t, d, cur)

			require.Same(t, d, r.Prev(r.Next(d)))
			require.Same(t, d, r.Next(r.Prev(d)))
		}
	}
}

func TestRegistryBijection(t *testing.T) {
	r, err := NewRegistry(defs("a", "b", "c", "d")...)
	require.NoError(t, err)

	seenNext := map[string]bool{}
	seenPrev := map[string]bool{}
	for d := range r.All() {
		seenNext[r.Next(d).ID] = true
		seenPrev[r.Prev(d).ID] = true
	}
	require.Len(t, seenNext, 4)
	require.Len(t, seenPrev, 4)
}

func TestRegistryOrder(t *testing.T) {
	r, err := NewRegistry(defs("a", "b", "c")...)
	require.NoError(t, err)

	require.Equal(t, []string{"a", "b", "c"}, ids(r.All()))
	// restartable
	require.Equal(t, []string{"a", "b", "c"}, ids(r.All()))

	a, _ := r.Get("a")
	c, _ := r.Get("c")
	require.Equal(t, "b", r.Next(a).ID)
	require.Equal(t, "a", r.Next(c).ID)
	require.Equal(t, "c", r.Prev(a).ID)

	require.Equal(t, 2, r.Index("c"))
	require.Equal(t, -1, r.Index("z"))
	require.Same(t, c, r.At(2))

	// early break
	first := []string{}
	for d := range r.All() {
		first = append(first, d.ID)
		break
	}
	require.Equal(t, []string{"a"}, first)
}

func TestRegistrySingle(t *testing.T) {
	r, err := NewRegistry(defs("only")...)
	require.NoError(t, err)
	d, _ := r.Get("only")
	require.Same(t, d, r.Next(d))
	require.Same(t, d, r.Prev(d))
}

func TestRegistryErrors(t *testing.T) {
	_, err := NewRegistry()
	require.ErrorIs(t, err, ErrEmptyRegistry)

	_, err = NewRegistry(defs("a", "b", "a")...)
	require.ErrorIs(t, err, ErrDuplicateID)

	_, err = NewRegistry(&Definition{ID: " "})
	require.Error(t, err)

	r, err := NewRegistry(defs("a", "b")...)
	require.NoError(t, err)
	_, err = r.Get("x")
	require.True(t, errors.Is(err, ErrNotFound))
	_, err = r.NextOf("x")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = r.PrevOf("x")
	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, r.Next(&Definition{ID: "x"}))
	require.Nil(t, r.Next(nil))
}

func TestRegistryWith(t *testing.T) {
	r, err := NewRegistry(defs("a", "b")...)
	require.NoError(t, err)
	r2, err := r.With(defs("c")...)
	require.NoError(t, err)

	require.Equal(t, 2, r.Len())
	require.Equal(t, []string{"a", "b", "c"}, ids(r2.All()))

	b, _ := r2.Get("b")
	require.Equal(t, "c", r2.Next(b).ID)
	b, _ = r.Get("b")
	require.Equal(t, "a", r.Next(b).ID)

	_, err = r.With(defs("a")...)
	require.ErrorIs(t, err, ErrDuplicateID)
}

func TestArcticConnect(t *testing.T) {
	r := DefaultRegistry()
	require.Equal(t, []string{"ac_3571", "ac_3572", "ac_3573", "ac_3574", "ac_3575", "ac_3576"}, ids(r.All()))

	for d := range r.All() {
		c, err := d.ResolveCRS()
		require.NoError(t, err, d.ID)
		require.Equal(t, d.CRSCode, c.Code)
		require.Len(t, c.Resolutions, 19)
		require.Equal(t, 2*ArcticExtent/256, c.Resolution(0))
	}

	d, err := r.Get("ac_3575")
	require.NoError(t, err)
	require.Contains(t, d.Proj4Def, "+lon_0=10 ")
	require.Equal(t, "https://{s}.tiles.arcticconnect.org/osm_3575/{z}/{x}/{y}.png", d.TileURL)
	require.Equal(t, "abc", d.TileOptions()["subdomains"])
	require.True(t, slices.Equal([]string{"a", "b", "c"}, d.Subdomains))
}

func TestForLongitude(t *testing.T) {
	tests := []struct {
		lon    float64
		expect string
	}{
		{-180, "EPSG:3571"},
		{-170, "EPSG:3571"},
		{-165, "EPSG:3571"},
		{-164.999, "EPSG:3572"},
		{-125, "EPSG:3572"},
		{-124.999, "EPSG:3573"},
		{-70, "EPSG:3573"},
		{-69.999, "EPSG:3574"},
		{-15, "EPSG:3574"},
		{-14.999, "EPSG:3575"},
		{0, "EPSG:3575"},
		{50, "EPSG:3575"},
		{50.001, "EPSG:3576"},
		{135, "EPSG:3576"},
		{135.001, "EPSG:3571"},
		{180, "EPSG:3571"},
		{-181, "EPSG:3571"},
		{200, "EPSG:3571"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.expect, ForLongitude(tt.lon), "lon %v", tt.lon)
	}

	r := DefaultRegistry()
	d, err := r.ForLongitude(-100)
	require.NoError(t, err)
	require.Equal(t, "ac_3573", d.ID)

	other, err := NewRegistry(defs("a")...)
	require.NoError(t, err)
	_, err = other.ForLongitude(0)
	require.ErrorIs(t, err, ErrNotFound)
}
