package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kleeedolinux/legacyio/socket"
)

func handshakeCmd(flags *rootFlags) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "handshake",
		Short: "Perform one handshake and print the negotiated session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			origin, err := url.Parse(cfg.Origin)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			hs, err := socket.PerformHandshake(ctx, &http.Client{Timeout: timeout}, origin, cfg.Namespace, nil)
			if err != nil {
				return err
			}
			transportURL, err := socket.TransportURL(origin, cfg.Namespace, hs.SID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "sid:                %s\n", hs.SID)
			fmt.Fprintf(out, "heartbeat timeout:  %s\n", hs.HeartbeatTimeout)
			fmt.Fprintf(out, "heartbeat interval: %s\n", hs.HeartbeatInterval())
			fmt.Fprintf(out, "close timeout:      %s\n", hs.CloseTimeout)
			fmt.Fprintf(out, "transports:         %s\n", strings.Join(hs.Transports, ","))
			fmt.Fprintf(out, "websocket:          %s\n", transportURL.Redacted())
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")

	return cmd
}
