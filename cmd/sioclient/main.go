package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

type rootFlags struct {
	envFile   string
	origin    string
	namespace string
	debug     bool
}

func rootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "sioclient",
		Short: "Client for legacy socket.io (0.9) servers",
		Long: `sioclient connects to a legacy socket.io 0.9 server over websocket,
keeps the session alive with heartbeats and logs the events it receives.

Settings come from the environment (SOCKETIO_ORIGIN, SOCKETIO_NAMESPACE, ...),
optionally loaded from a .env file. Flags override the environment.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.envFile, "env-file", ".env", "dotenv file to load when present")
	pf.StringVar(&flags.origin, "origin", "", "server origin, e.g. https://example.com (SOCKETIO_ORIGIN)")
	pf.StringVar(&flags.namespace, "namespace", "", "path segment before the protocol version (SOCKETIO_NAMESPACE)")
	pf.BoolVar(&flags.debug, "debug", false, "trace every frame (SOCKETIO_DEBUG)")

	cmd.AddCommand(
		listenCmd(flags),
		handshakeCmd(flags),
		versionCmd(),
	)
	return cmd
}
