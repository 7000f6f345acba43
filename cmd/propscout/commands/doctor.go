package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/propscout/propscout/config"
	"github.com/propscout/propscout/db"
	"github.com/propscout/propscout/display"
	"github.com/propscout/propscout/errors"
)

// check is one doctor result.
type check struct {
	Name   string `json:"name" yaml:"name"`
	OK     bool   `json:"ok" yaml:"ok"`
	Detail string `json:"detail" yaml:"detail"`
}

func newDoctorCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "doctor",
		Short:       "Check configuration, database, backend and login",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{noConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			checks := a.diagnose(cmd.Context())
			err := display.Emit(cmd, cmd.OutOrStdout(), checks, func(w io.Writer) error {
				return printChecks(w, checks)
			})
			if err != nil {
				return err
			}
			for _, c := range checks {
				if !c.OK {
					return errors.Newf("%s check failed", c.Name)
				}
			}
			return nil
		},
	}
}

// diagnose stops at the first failure that later checks depend on.
func (a *app) diagnose(ctx context.Context) []check {
	var checks []check
	add := func(name string, err error, detail string) bool {
		c := check{Name: name, OK: err == nil, Detail: detail}
		if err != nil {
			c.Detail = err.Error()
		}
		checks = append(checks, c)
		return err == nil
	}

	res, err := config.Load(config.Options{ConfigFile: a.configFile})
	if !add("config", err, fmt.Sprintf("%d files loaded", len(filesOf(res)))) {
		return checks
	}
	a.cfg = res

	session, err := a.session(ctx)
	detail := ""
	if err == nil {
		version, verr := db.SchemaVersion(a.db)
		err, detail = verr, fmt.Sprintf("%s (schema %s)", a.config().Database.Path, version)
	}
	if !add("database", err, detail) {
		return checks
	}

	client, err := a.backend()
	if !add("backend url", err, a.config().Backend.URL) {
		return checks
	}
	hctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	health, err := client.Health(hctx)
	cancel()
	if err != nil {
		add("backend", err, "")
		return checks
	}
	add("backend", nil, fmt.Sprintf("%s, version %s", health.Status, health.Version))
	add("backend version", a.config().Backend.CheckBackendVersion(health.Version), "satisfies "+orAny(a.config().Backend.MinVersion))

	if !session.Authenticated() {
		add("login", errors.New("not logged in, run `propscout login`"), "")
		return checks
	}
	user, err := client.User(session).Me(ctx)
	if err == nil {
		detail = user.Email
	}
	add("login", err, detail)
	return checks
}

func filesOf(res *config.Result) []string {
	if res == nil {
		return nil
	}
	return res.Files
}

func orAny(constraint string) string {
	if constraint == "" {
		return "any"
	}
	return constraint
}

func printChecks(w io.Writer, checks []check) error {
	for _, c := range checks {
		mark := pterm.Green("✓")
		if !c.OK {
			mark = pterm.Red("✗")
		}
		if _, err := fmt.Fprintf(w, "%s %-16s %s\n", mark, c.Name, c.Detail); err != nil {
			return err
		}
	}
	return nil
}
