package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/machbase/neo-polarmap/mods/nums"
	"github.com/machbase/neo-polarmap/mods/permalink"
)

type HashCmd struct {
	Format HashFormatCmd `cmd:"" help:"Print the hash of a view"`
	Parse  HashParseCmd  `cmd:"" help:"Print the view of a hash"`
}

type HashFormatCmd struct {
	Projection string  `name:"projection" short:"p" help:"projection id, omitted from the hash when empty"`
	Zoom       int     `name:"zoom" short:"z" required:"" help:"zoom level"`
	Lat        float64 `name:"lat" required:"" help:"latitude of the center"`
	Lon        float64 `name:"lon" required:"" help:"longitude of the center"`
}

func (c *HashFormatCmd) Run(g *Globals, out io.Writer) error {
	if c.Projection != "" {
		_, reg, err := g.load()
		if err != nil {
			return err
		}
		if _, err := reg.Get(c.Projection); err != nil {
			return err
		}
	}
	fmt.Fprintln(out, permalink.FormatHash(permalink.View{
		ProjectionID: c.Projection,
		Zoom:         c.Zoom,
		Center:       nums.LatLng{Lat: c.Lat, Lng: c.Lon},
	}))
	return nil
}

var errInvalidHash = errors.New("invalid hash")

type HashParseCmd struct {
	Hash string `arg:"" help:"hash like #ac_3573/4/90/0 or 4/90/0"`
}

func (c *HashParseCmd) Run(out io.Writer) error {
	v, ok := permalink.ParseHash(c.Hash)
	if !ok {
		return fmt.Errorf("%w %q", errInvalidHash, c.Hash)
	}
	if v.ProjectionID != "" {
		fmt.Fprintf(out, "projection: %s\n", v.ProjectionID)
	}
	fmt.Fprintf(out, "zoom:       %d\n", v.Zoom)
	fmt.Fprintf(out, "lat:        %v\n", v.Center.Lat)
	fmt.Fprintf(out, "lon:        %v\n", v.Center.Lng)
	return nil
}
