package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/machbase/neo-polarmap/mods/projection"
	"github.com/machbase/neo-polarmap/mods/server"
)

type ProjectionsCmd struct {
	Format   string `name:"format" short:"f" enum:"box,csv,json" default:"box" help:"output format (box, csv, json)"`
	BoxStyle string `name:"box-style" enum:"default,bold,double,light,round" default:"default" help:"box style"`
	Compact  bool   `name:"compact" help:"no borders"`
	Verbose  bool   `name:"verbose" short:"v" help:"include the proj4 definition and the tile url"`
}

func (c *ProjectionsCmd) Run(g *Globals, out io.Writer) error {
	_, reg, err := g.load()
	if err != nil {
		return err
	}
	if c.Format == "json" {
		list := []*server.ProjectionInfo{}
		for def := range reg.All() {
			info, err := server.NewProjectionInfo(def)
			if err != nil {
				return err
			}
			list = append(list, info)
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}

	w := table.NewWriter()
	w.SetOutputMirror(out)
	style := table.StyleDefault
	switch c.BoxStyle {
	case "bold":
		style = table.StyleBold
	case "double":
		style = table.StyleDouble
	case "light":
		style = table.StyleLight
	case "round":
		style = table.StyleRounded
	}
	if c.Compact {
		style.Options.SeparateColumns = false
		style.Options.DrawBorder = false
	}
	w.SetStyle(style)

	header := table.Row{"ROWNUM", "ID", "NAME", "CRS", "ZOOM"}
	if c.Verbose {
		header = append(header, "PROJ4", "URL")
	}
	w.AppendHeader(header)
	idx := 0
	for def := range reg.All() {
		idx++
		row := table.Row{idx, def.ID, def.Name, def.CRSCode, zoomRange(def)}
		if c.Verbose {
			row = append(row, def.Proj4Def, def.TileURL)
		}
		w.AppendRow(row)
	}
	if c.Format == "csv" {
		w.RenderCSV()
	} else {
		w.Render()
	}
	return nil
}

func zoomRange(def *projection.Definition) string {
	return fmt.Sprintf("%d-%d", def.MinZoom, def.MaxZoom)
}
