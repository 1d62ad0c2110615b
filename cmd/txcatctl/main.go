// Command txcatctl administers a txcat database from the shell.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"

	"txcat/internal/cli"
	"txcat/internal/log"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	for _, c := range commands {
		commander.Register(c, "")
	}

	flag.Parse()

	a := &app{logger: cli.SetupLogger(log.ComponentCLI), out: os.Stdout}
	os.Exit(int(commander.Execute(context.Background(), a)))
}
