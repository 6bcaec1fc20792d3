package projection

import (
	"github.com/machbase/neo-polarmap/mods/config"
)

// FromConfigs builds a registry from the projection blocks of cfg,
// the ArcticConnect projections are used when there is none.
func FromConfigs(cfg *config.Config) (*Registry, error) {
	if len(cfg.Projections) == 0 {
		return NewRegistry(ArcticConnect()...)
	}
	defs := make([]*Definition, 0, len(cfg.Projections))
	for _, pc := range cfg.Projections {
		def, err := FromConfig(pc)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return NewRegistry(defs...)
}

// LoadHCL builds a registry from the projection blocks of an HCL document.
func LoadHCL(content []byte, filename string) (*Registry, error) {
	cfg, err := config.Parse(content, filename)
	if err != nil {
		return nil, err
	}
	return FromConfigs(cfg)
}
