// cmd/nucleus is the command-line host for the neonucleus component-emulator
// substrate.
package main

import (
	"context"
	"os"

	"github.com/NeoFlock/neonucleus-sub000/internal/cli"
	"github.com/NeoFlock/neonucleus-sub000/internal/cli/cmd"
)

var commands = []cli.Command{
	cmd.Run(),
	cmd.Serve(),
}

func main() {
	result :=
		cli.New(context.Background()).
			WithLogger(os.Stderr).
			WithCommands(commands).
			WithHelp(cmd.Help(commands)).
			Execute(os.Args[1:])

	os.Exit(result)
}
