// Command apollo signs in to the Apollo credential API and keeps the session
// token between invocations.
package main

import (
	"context"
	"os"
	"os/signal"
)

// version is set at build time via ldflags
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
