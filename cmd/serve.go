package cmd

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"github.com/etnz/finsight/server"
	"github.com/google/subcommands"
)

type serveCmd struct {
	addr string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve the HTTP API" }
func (*serveCmd) Usage() string {
	return `finsight serve [-addr <host:port>]

  Serves the JSON API used by the dashboard. See 'finsight topic serve'.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", "", "Listen address, server.addr of the configuration by default")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp()
	if err != nil {
		return errStatus("Error opening workspace", err)
	}
	defer a.Close()

	addr := c.addr
	if addr == "" {
		addr = a.cfg.Server.Addr
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(a.newSession, a.options())
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		return errStatus("Server failed", err)
	}
	return subcommands.ExitSuccess
}
