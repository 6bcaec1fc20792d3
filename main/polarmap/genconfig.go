package main

import (
	"io"

	"github.com/machbase/neo-polarmap/mods/config"
	"github.com/machbase/neo-polarmap/mods/projection"
)

type GenConfigCmd struct {
	Projections bool `name:"projections" negatable:"" default:"true" help:"include the projection blocks"`
}

func (c *GenConfigCmd) Run(g *Globals, out io.Writer) error {
	cfg, reg, err := g.load()
	if err != nil {
		return err
	}
	cfg.Projections = nil
	if c.Projections {
		for def := range reg.All() {
			cfg.Projections = append(cfg.Projections, projection.ToConfig(def))
		}
	}
	_, err = out.Write(config.Generate(cfg))
	return err
}
