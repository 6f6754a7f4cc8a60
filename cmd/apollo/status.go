package main

import (
	"context"
	"strconv"
	"time"

	"github.com/MrEthical07/apolloAuth/exchange"
	"github.com/MrEthical07/apolloAuth/internal/output"
	"github.com/MrEthical07/apolloAuth/jwt"
	"github.com/spf13/cobra"
)

func newStatusCmd(c *cli) *cobra.Command {
	var checkAPI bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the local session state",
		Long: `Show the session state, the claims of the stored token and where it is kept.
Token claims are decoded without verification and are for display only.

Examples:
  apollo status
  apollo status --check-api`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := c.openSession(ctx)
			if err != nil {
				return describeError(err)
			}
			defer s.Close()

			if err := s.coord.WaitRehydrated(ctx); err != nil {
				return err
			}

			table := output.NewTable(c.printer.Out(), []string{"Field", "Value"})
			snap := s.coord.State().Snapshot()
			table.AddRow("Session", c.printer.StatusBadge(snap.Status().String()))
			if snap.User != nil {
				table.AddRow("Account", snap.User.Email)
			}

			if snap.Token != "" {
				summary, err := jwt.Inspect(snap.Token)
				if err != nil {
					table.AddRow("Token", "unreadable: "+err.Error())
				} else {
					table.AddRow("Token subject", summary.Email)
					table.AddRow("Token user id", strconv.FormatInt(summary.UserID, 10))
					if !summary.ExpiresAt.IsZero() {
						expires := summary.ExpiresAt.Local().Format(time.RFC3339)
						if summary.Expired(time.Now()) {
							expires += " " + c.printer.StatusBadge("expired")
						}
						table.AddRow("Token expires", expires)
					}
				}
			}

			table.AddRow("Slot", s.slotDesc)
			if err := s.coord.SlotErr(); err != nil {
				table.AddRow("Slot error", err.Error())
			}

			if checkAPI {
				health := "healthy"
				timeout := c.cfg.API.Timeout
				if timeout == 0 {
					timeout = exchange.DefaultTimeout
				}
				hctx, cancel := context.WithTimeout(ctx, timeout)
				if err := s.client.Health(hctx); err != nil {
					health = "unreachable"
					c.logger.Debug("health check failed", "error", err)
				}
				cancel()
				table.AddRow("API", s.client.BaseURL()+" "+c.printer.StatusBadge(health))
			}

			var renderErr error
			s.coord.Gate().Render(func() {
				renderErr = table.Render()
			})
			return renderErr
		},
	}
	cmd.Flags().BoolVar(&checkAPI, "check-api", false, "check the credential API health endpoint")
	return cmd
}
