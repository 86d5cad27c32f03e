// Command ledgerctl operates a portfolio ledger store directly, without the HTTP server.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	name := path.Base(os.Args[0])
	completion().Complete(name)

	commander := subcommands.NewCommander(flag.CommandLine, name)
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	register(commander)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// register adds the ledger subcommands.
func register(c *subcommands.Commander) {
	c.Register(&migrateCmd{}, "store")
	c.Register(&exportCmd{}, "store")

	c.Register(&registerCmd{}, "accounts")
	c.Register(&depositCmd{}, "accounts")
	c.Register(&auditCmd{}, "accounts")

	c.Register(&tradeCmd{action: "buy"}, "trading")
	c.Register(&tradeCmd{action: "sell"}, "trading")
	c.Register(&quoteCmd{}, "trading")

	c.Register(&portfolioCmd{}, "reports")
	c.Register(&historyCmd{}, "reports")
}
