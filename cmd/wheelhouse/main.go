package main

import (
	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/wheelhouse/cmd/wheelhouse/commands"
	"git.home.luguber.info/inful/wheelhouse/internal/version"
)

func main() {
	cli := commands.CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("wheelhouse"),
		kong.Description("Synthesize a simple package index from custom-built wheels and pin project dependencies to them."),
		kong.Vars{"version": version.Version},
	)
	err := ctx.Run(&commands.Global{}, &cli)
	ctx.FatalIfErrorf(err)
}
