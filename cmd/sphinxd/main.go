package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sphinx-chat/sphinxd/internal/daemon"
	"github.com/sphinx-chat/sphinxd/internal/session"
	"go.uber.org/fx"
)

func main() {
	accountFlag := flag.String("account", "", "account name (overrides config default)")
	flag.Parse()

	accountName := session.Resolve(*accountFlag)
	if err := session.ValidateName(accountName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	app := fx.New(
		daemon.Module(daemon.Params{AccountName: accountName}),
	)

	app.Run()
}
