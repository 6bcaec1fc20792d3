package main

import (
	"github.com/machbase/neo-polarmap/mods/config"
	"github.com/machbase/neo-polarmap/mods/projection"
)

func (g *Globals) load() (*config.Config, *projection.Registry, error) {
	cfg := config.Default()
	if g.Config != "" {
		c, err := config.LoadFile(g.Config)
		if err != nil {
			return nil, nil, err
		}
		cfg = c
	}
	reg, err := projection.FromConfigs(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, reg, nil
}
