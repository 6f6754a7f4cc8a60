package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	apolloAuth "github.com/MrEthical07/apolloAuth"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newLoginCmd(c *cli) *cobra.Command {
	var email, passwordFile string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session token",
		Long: `Sign in with an email and password. The password is read from --password-file,
prompted for on a terminal, or read from the first line of standard input.

Examples:
  apollo login --email ada@example.com
  apollo login --email ada@example.com --password-file ~/.apollo-pass`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(cmd, passwordFile)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			s, err := c.openSession(ctx)
			if err != nil {
				return describeError(err)
			}
			defer s.Close()

			res, err := s.coord.Login(ctx, apolloAuth.Credentials{Email: email, Password: pw})
			if err != nil {
				return describeError(err)
			}
			c.printer.Success("Logged in as %s", res.User.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&passwordFile, "password-file", "", "read the password from this file")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newSignupCmd(c *cli) *cobra.Command {
	var name, email, passwordFile string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		Long: `Create an account. On success the new session is stored exactly like a login.
Passwords must be 8-100 characters with uppercase, lowercase, and digits.

Examples:
  apollo signup --name Ada --email ada@example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(cmd, passwordFile)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			s, err := c.openSession(ctx)
			if err != nil {
				return describeError(err)
			}
			defer s.Close()

			res, err := s.coord.Signup(ctx, apolloAuth.Profile{UserName: name, Email: email, Password: pw})
			if err != nil {
				return describeError(err)
			}
			c.printer.Success("Account created, logged in as %s", res.User.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&passwordFile, "password-file", "", "read the password from this file")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the session token and cached data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := c.openSession(ctx)
			if err != nil {
				return describeError(err)
			}
			defer s.Close()

			wasAuthenticated := s.coord.State().Token() != ""
			s.coord.Logout(ctx)
			if err := s.coord.SlotErr(); err != nil {
				c.printer.Warning("token slot could not be cleared: %v", err)
			}
			if wasAuthenticated {
				c.printer.Success("Logged out")
			} else {
				c.printer.Info("Not logged in")
			}
			return nil
		},
	}
}

// readPassword reads a password from file, an interactive terminal prompt,
// or the first line of the command's input.
func readPassword(cmd *cobra.Command, file string) (string, error) {
	if file != "" && file != "-" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", file, err)
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		pw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(pw), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
