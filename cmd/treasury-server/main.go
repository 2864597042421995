// Command treasury-server tracks public companies holding Bitcoin on their
// balance sheets. With no subcommand it runs the server.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

var configPath = flag.String("config", "", "path to treasury.toml (default: $TREASURY_CONFIG, then beside the binary)")

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	commander.Register(&serveCmd{}, "server")
	commander.Register(&refreshCmd{}, "data")
	commander.Register(&companiesCmd{}, "data")
	commander.Register(&exportCmd{}, "data")
	commander.Register(&marketStatusCmd{}, "data")

	flag.Parse()
	if flag.NArg() == 0 {
		flag.CommandLine.Parse(append(os.Args[1:], "serve"))
	}
	os.Exit(int(commander.Execute(context.Background())))
}
