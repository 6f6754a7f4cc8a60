package main

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/MrEthical07/apolloAuth/internal/output"
	"github.com/spf13/cobra"
)

func newWhoamiCmd(c *cli) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := c.openSession(ctx)
			if err != nil {
				return describeError(err)
			}
			defer s.Close()

			user, err := s.coord.CurrentUser(ctx)
			if err != nil {
				return describeError(err)
			}

			var renderErr error
			s.coord.Gate().Render(func() {
				if jsonOutput {
					enc := json.NewEncoder(c.printer.Out())
					enc.SetIndent("", "  ")
					renderErr = enc.Encode(user)
					return
				}
				table := output.NewTable(c.printer.Out(), []string{"Field", "Value"})
				table.AddRow("ID", strconv.FormatInt(user.ID, 10))
				table.AddRow("Email", user.Email)
				if user.UserName != "" {
					table.AddRow("Name", user.UserName)
				}
				if user.CreatedAt != nil {
					table.AddRow("Created", user.CreatedAt.Format(time.RFC3339))
				}
				renderErr = table.Render()
			})
			return renderErr
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}
