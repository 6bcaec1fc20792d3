package main

import (
	"fmt"
	"io"

	"github.com/machbase/neo-polarmap/mods"
)

type VersionCmd struct{}

func (c *VersionCmd) Run(out io.Writer) error {
	fmt.Fprintf(out, "polarmap %s\n", mods.VersionString())
	fmt.Fprintf(out, "go       %s\n", mods.BuildCompiler())
	return nil
}
