package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func (a *app) signupCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "signup <username>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := passwordFrom(cmd, password)
			if err != nil {
				return err
			}
			p, err := a.provider(cmd.Context())
			if err != nil {
				return err
			}
			attrs := map[string]string{}
			if email != "" {
				attrs["email"] = email
			}
			if err := p.SignUp(cmd.Context(), args[0], pw, attrs); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Account created. Enter the code you received with:\n  cloudtodo confirm %s <code>\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email address for the confirmation code")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when omitted)")
	return cmd
}

func (a *app) confirmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "confirm <username> <code>",
		Short: "Confirm a new account with the emailed code",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.provider(cmd.Context())
			if err != nil {
				return err
			}
			if err := p.ConfirmSignUp(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Account confirmed. Sign in with `cloudtodo login`.")
			return nil
		},
	}
}

func (a *app) loginCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Sign in and store the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := passwordFrom(cmd, password)
			if err != nil {
				return err
			}
			p, err := a.provider(cmd.Context())
			if err != nil {
				return err
			}
			s, err := p.Authenticate(cmd.Context(), args[0], pw)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (token valid until %s)\n", s.Username, s.Expiry.Local().Format(time.Kitchen))
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when omitted)")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.provider(cmd.Context())
			if err != nil {
				return err
			}
			if err := p.SignOut(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.provider(cmd.Context())
			if err != nil {
				return err
			}
			s, err := p.CurrentSession(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (token valid until %s)\n", s.Username, s.Expiry.Local().Format(time.RFC3339))
			return nil
		},
	}
}

// passwordFrom returns the flag value or reads one line from stdin.
func passwordFrom(cmd *cobra.Command, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	pw := strings.TrimRight(line, "\r\n")
	if pw == "" {
		return "", errors.New("password is required")
	}
	return pw, nil
}
