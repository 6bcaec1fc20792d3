package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/machbase/neo-polarmap/mods/logging"
	"github.com/machbase/neo-polarmap/mods/nums"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

type Config struct {
	Server      ServerConfig
	Logging     logging.Config
	Permalink   PermalinkConfig
	Map         MapConfig
	Projections []ProjectionConfig
}

type ServerConfig struct {
	Listen      string        `hcl:"listen"`
	Debug       bool          `hcl:"debug"`
	CORS        bool          `hcl:"cors"`
	SessionTTL  time.Duration `hcl:"session_ttl"`
	MaxSessions int           `hcl:"max_sessions"`
}

type PermalinkConfig struct {
	ChangeDefer  time.Duration `hcl:"change_defer"`
	PollInterval time.Duration `hcl:"poll_interval"`
}

type MapConfig struct {
	DefaultProjection string      `hcl:"default_projection"`
	Center            nums.LatLng `hcl:"center"`
	Zoom              int         `hcl:"zoom"`
	Permalink         bool        `hcl:"permalink"`
	Locate            bool        `hcl:"locate"`
}

// ProjectionConfig is the body of a projection "<id>" block.
type ProjectionConfig struct {
	ID              string        `hcl:"-"`
	Name            string        `hcl:"name"`
	CRS             string        `hcl:"crs"`
	Proj4           string        `hcl:"proj4"`
	URL             string        `hcl:"url"`
	Subdomains      []string      `hcl:"subdomains"`
	MinZoom         int           `hcl:"min_zoom"`
	MaxZoom         int           `hcl:"max_zoom"`
	MaxResolution   float64       `hcl:"max_resolution"`
	Origin          nums.Point    `hcl:"origin"`
	ProjectedBounds []nums.Point  `hcl:"projected_bounds"`
	Bounds          []nums.LatLng `hcl:"bounds"`
	Center          nums.LatLng   `hcl:"center"`
	Zoom            int           `hcl:"zoom"`
	Attribution     string        `hcl:"attribution"`
	TMS             bool          `hcl:"tms"`
	NoWrap          bool          `hcl:"no_wrap"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:      "127.0.0.1:5680",
			CORS:        true,
			SessionTTL:  30 * time.Minute,
			MaxSessions: 1000,
		},
		Logging: logging.DefaultConfig(),
		Permalink: PermalinkConfig{
			ChangeDefer:  100 * time.Millisecond,
			PollInterval: 50 * time.Millisecond,
		},
		Map: MapConfig{
			DefaultProjection: "ac_3573",
			Center:            nums.LatLng{Lat: 90, Lng: 0},
			Zoom:              4,
			Permalink:         true,
		},
	}
}

// DefaultProjection returns the values a projection block starts from.
func DefaultProjection(id string) ProjectionConfig {
	return ProjectionConfig{
		ID:      id,
		Name:    id,
		MinZoom: 0,
		MaxZoom: 18,
		Center:  nums.LatLng{Lat: 90, Lng: 0},
		Zoom:    4,
	}
}

var rootSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "define", LabelNames: []string{"id"}},
		{Type: "server"},
		{Type: "logging"},
		{Type: "permalink"},
		{Type: "map"},
		{Type: "projection", LabelNames: []string{"id"}},
	},
}

func LoadFile(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(content, path)
}

// Parse decodes an HCL document on top of Default().
func Parse(content []byte, filename string) (*Config, error) {
	file, diag := hclsyntax.ParseConfig(content, filename, hcl.Pos{Line: 1, Column: 1})
	if diag.HasErrors() {
		return nil, errors.New(diag.Error())
	}
	body, diag := file.Body.Content(rootSchema)
	if diag.HasErrors() {
		return nil, errors.New(diag.Error())
	}

	evalCtx := &hcl.EvalContext{
		Functions: make(map[string]function.Function, len(DefaultFunctions)),
		Variables: make(map[string]cty.Value),
	}
	for k, v := range DefaultFunctions {
		evalCtx.Functions[k] = v
	}

	// defines first, every attribute becomes a variable <ID>_<name>
	for _, block := range body.Blocks {
		if block.Type != "define" {
			continue
		}
		id := block.Labels[0]
		for _, attr := range block.Body.(*hclsyntax.Body).Attributes {
			value, diag := attr.Expr.Value(evalCtx)
			if diag.HasErrors() {
				return nil, errors.New(diag.Error())
			}
			evalCtx.Variables[fmt.Sprintf("%s_%s", id, attr.Name)] = value
		}
	}

	ret := Default()
	seen := map[string]bool{}
	for _, block := range body.Blocks {
		if block.Type == "define" {
			continue
		}
		obj, err := ObjectValFromBody(block.Body.(*hclsyntax.Body), evalCtx)
		if err != nil {
			return nil, err
		}
		switch block.Type {
		case "server":
			err = EvalObject("server", &ret.Server, obj)
		case "logging":
			err = EvalObject("logging", &ret.Logging, obj)
		case "permalink":
			err = EvalObject("permalink", &ret.Permalink, obj)
		case "map":
			err = EvalObject("map", &ret.Map, obj)
		case "projection":
			id := block.Labels[0]
			if seen[id] {
				return nil, fmt.Errorf("projection %q is defined twice", id)
			}
			seen[id] = true
			pc := DefaultProjection(id)
			err = EvalObject(fmt.Sprintf("projection %q", id), &pc, obj)
			ret.Projections = append(ret.Projections, pc)
		}
		if err != nil {
			return nil, err
		}
	}
	return ret, nil
}

func ObjectValFromBody(body *hclsyntax.Body, evalCtx *hcl.EvalContext) (cty.Value, error) {
	rt := make(map[string]cty.Value)
	for _, attr := range body.Attributes {
		value, diag := attr.Expr.Value(evalCtx)
		if diag.HasErrors() {
			return cty.NilVal, errors.New(diag.Error())
		}
		rt[attr.Name] = value
	}
	for _, block := range body.Blocks {
		bval, err := ObjectValFromBody(block.Body, evalCtx)
		if err != nil {
			return cty.NilVal, err
		}
		rt[block.Type] = bval
	}
	return cty.ObjectVal(rt), nil
}
