package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/propscout/propscout/api"
	"github.com/propscout/propscout/auth"
	"github.com/propscout/propscout/display"
	"github.com/propscout/propscout/errors"
)

// readPassword prompts without echo on a terminal and reads a plain line
// otherwise (pipes, tests).
func (a *app) readPassword(cmd *cobra.Command, prompt string) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), prompt)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", errors.Wrap(err, "failed to read password")
		}
		return string(b), nil
	}
	return a.readLine("", cmd.ErrOrStderr())
}

func (a *app) promptIfEmpty(cmd *cobra.Command, value *string, prompt string) error {
	if strings.TrimSpace(*value) != "" {
		return nil
	}
	line, err := a.readLine(prompt, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	*value = strings.TrimSpace(line)
	return nil
}

func newLoginCmd(a *app) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the listings backend",
		Long: `Log in and keep the session tokens in the local database.

The password is read without echo from the terminal, or as one line from
standard input when it is not a terminal:

  echo "$PASSWORD" | propscout login --email you@example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.promptIfEmpty(cmd, &email, "Email: "); err != nil {
				return err
			}
			password, err := a.readPassword(cmd, "Password: ")
			if err != nil {
				return err
			}

			session, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			client, err := a.backend()
			if err != nil {
				return err
			}
			user, err := client.Login(cmd.Context(), session, api.Credentials{Email: email, Password: password})
			if err != nil {
				return err
			}
			return display.Emit(cmd, cmd.OutOrStdout(), user, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, pterm.Success.Sprintf("Logged in as %s", user.DisplayName()))
				return err
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	return cmd
}

func newRegisterCmd(a *app) *cobra.Command {
	var reg api.Registration
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.promptIfEmpty(cmd, &reg.Email, "Email: "); err != nil {
				return err
			}
			password, err := a.readPassword(cmd, "Password: ")
			if err != nil {
				return err
			}
			confirm, err := a.readPassword(cmd, "Confirm password: ")
			if err != nil {
				return err
			}
			if password != confirm {
				return errors.Wrap(errors.ErrInvalidRequest, "passwords do not match")
			}
			reg.Password = password

			session, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			client, err := a.backend()
			if err != nil {
				return err
			}
			user, err := client.Register(cmd.Context(), session, reg)
			if err != nil {
				return err
			}
			return display.Emit(cmd, cmd.OutOrStdout(), user, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, pterm.Success.Sprintf("Account created, logged in as %s", user.DisplayName()))
				return err
			})
		},
	}
	cmd.Flags().StringVar(&reg.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&reg.FirstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&reg.LastName, "last-name", "", "Last name")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and forget the stored tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			if !session.Authenticated() {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
				return nil
			}
			client, err := a.backend()
			if err != nil {
				return err
			}
			if err := client.User(session).Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), pterm.Success.Sprint("Logged out"))
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := a.user(cmd.Context())
			if err != nil {
				return err
			}
			user := u.Session().User()
			if user == nil {
				if user, err = u.Me(cmd.Context()); err != nil {
					return err
				}
			}
			return display.Emit(cmd, cmd.OutOrStdout(), user, func(w io.Writer) error {
				return printUser(w, user)
			})
		},
	}
}

func printUser(w io.Writer, u *auth.User) error {
	_, err := fmt.Fprintf(w, "%s <%s>\n", u.DisplayName(), u.Email)
	return err
}
