package main

import (
	"io"
	"os"

	"github.com/alecthomas/kong"
)

type Globals struct {
	Config string `name:"config" short:"c" type:"existingfile" help:"path to the HCL config file"`
}

type CLI struct {
	Globals

	Serve       ServeCmd       `cmd:"" help:"Start the polar map server"`
	Projections ProjectionsCmd `cmd:"" help:"List the projections"`
	Hash        HashCmd        `cmd:"" help:"Format and parse permalink hashes"`
	GenConfig   GenConfigCmd   `cmd:"" name:"gen-config" help:"Print the default config file"`
	Version     VersionCmd     `cmd:"" help:"Show version"`
}

func newParser(cli *CLI, stdout io.Writer, stderr io.Writer, exit func(int)) (*kong.Kong, error) {
	return kong.New(cli,
		kong.Name("polarmap"),
		kong.Description("Polar map projections server"),
		kong.HelpOptions{NoAppSummary: false, Compact: true, FlagsLast: true},
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
		kong.Exit(exit),
		kong.Bind(&cli.Globals),
		kong.BindTo(stdout, (*io.Writer)(nil)),
	)
}

func main() {
	cli := &CLI{}
	parser, err := newParser(cli, os.Stdout, os.Stderr, os.Exit)
	if err != nil {
		panic(err)
	}
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)
	parser.FatalIfErrorf(ctx.Run())
}
