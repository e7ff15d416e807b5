package main

import (
	"log"

	"github.com/BIwashi/pnrtgen/app/convert"
	"github.com/BIwashi/pnrtgen/app/gen"
	"github.com/BIwashi/pnrtgen/app/inspect"
	"github.com/BIwashi/pnrtgen/pkg/cli"
)

func main() {
	c := cli.NewCLI(
		"pnrtgen",
		"Generate and inspect PROFINET RT capture fixtures.",
	)

	c.AddCommands(
		gen.NewCommand(),
		inspect.NewCommand(),
		convert.NewCommand(),
	)

	if err := c.Run(); err != nil {
		log.Fatal(err)
	}
}
