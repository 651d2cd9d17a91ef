package main

import (
	"github.com/spf13/cobra"

	"github.com/chrissnell/structbreak/internal/app"
)

func newServeCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web front-end and REST API",
		Long: `Serve the web front-end and REST API until SIGINT or SIGTERM.

Uploaded datasets are kept in memory and expire after datasets.ttl of
inactivity.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.New(c.config, c.logger).Run(cmd.Context())
		},
	}

	f := cmd.Flags()
	f.String("listen", "", "address to listen on")
	f.Int("port", 0, "port to listen on")
	f.Bool("cors", false, "allow cross-origin requests")
	f.Bool("tracing", false, "export OpenTelemetry traces to stdout")
	c.bind("server.listen_addr", f.Lookup("listen"))
	c.bind("server.port", f.Lookup("port"))
	c.bind("server.enable_cors", f.Lookup("cors"))
	c.bind("telemetry.tracing", f.Lookup("tracing"))

	return cmd
}
