// Package commands implements the propscout command line.
package commands

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/propscout/propscout/api"
	"github.com/propscout/propscout/auth"
	"github.com/propscout/propscout/config"
	"github.com/propscout/propscout/db"
	"github.com/propscout/propscout/errors"
	"github.com/propscout/propscout/internal/httpclient"
	"github.com/propscout/propscout/logger"
	"github.com/propscout/propscout/version"
)

// noConfig marks commands that run without loading configuration.
const noConfig = "no-config"

// app is the state shared by one command invocation.
type app struct {
	configFile string
	verbose    int

	cfg *config.Result
	log *zap.SugaredLogger

	db       *sql.DB
	sessions *auth.Manager
	stdin    *bufio.Reader
}

// NewRootCmd builds the command tree. Each call returns an independent tree,
// which is how the shell runs one line after another.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "propscout",
		Short: "Search, enrich, save and compare residential listings",
		Long: `propscout - residential listings with neighbourhood data.

Search listings, look at walkability, air quality, climate, flood zone,
transport links, nearby places and distances to your own locations, save the
ones you like and compare them side by side. Run 'propscout serve' for the
web interface.

Configuration sources (later wins):
  1. Defaults
  2. User config (~/.propscout/config.toml)
  3. Project config (./propscout.toml, searched upward)
  4. --config file
  5. Environment variables (PROPSCOUT_* e.g. PROPSCOUT_BACKEND_URL)

Examples:
  propscout login --email you@example.com
  propscout search --city Austin --beds 3 --max-price 600000
  propscout enrich 1842
  propscout compare 1842 1907 2011
  propscout serve --port 8420`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "Config file (highest file precedence)")
	flags.Bool("json", false, "Output as JSON")
	flags.Bool("yaml", false, "Output as YAML")
	flags.CountVarP(&a.verbose, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")

	root.AddCommand(
		newServeCmd(a),
		newLoginCmd(a),
		newRegisterCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newSearchCmd(a),
		newShowCmd(a),
		newEnrichCmd(a),
		newCompareCmd(a),
		newSavedCmd(a),
		newPrefsCmd(a),
		newLocationsCmd(a),
		newConfigCmd(a),
		newShellCmd(a),
		newMCPCmd(a),
		newDoctorCmd(a),
		newVersionCmd(),
	)
	closeAfterRun(root, a)
	return root
}

// closeAfterRun releases the database after every command, including failed
// ones, which PersistentPostRunE would skip.
func closeAfterRun(cmd *cobra.Command, a *app) {
	for _, c := range cmd.Commands() {
		closeAfterRun(c, a)
	}
	run := cmd.RunE
	if run == nil {
		return
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		defer func() {
			if err := a.close(); err != nil {
				logger.OrNop(a.log).Warnw("Failed to close database", logger.FieldError, err)
			}
		}()
		return run(cmd, args)
	}
}

// setup loads configuration and initializes logging. Config errors are
// returned as-is so 'config validate' and 'doctor' can report them.
func (a *app) setup(cmd *cobra.Command) error {
	if r, ok := cmd.InOrStdin().(*bufio.Reader); ok {
		a.stdin = r
	} else {
		a.stdin = bufio.NewReader(cmd.InOrStdin())
	}
	if cmd.Annotations[noConfig] != "" {
		return nil
	}

	res, err := config.Load(config.Options{ConfigFile: a.configFile})
	if err != nil {
		return err
	}
	a.cfg = res

	level := logger.VerbosityToLevelName(a.verbose, res.Config.Log.Level)
	if err := logger.Initialize(res.Config.Log.JSON, level); err != nil {
		return errors.Wrap(err, "failed to initialize logger")
	}
	a.log = logger.Logger
	return nil
}

func (a *app) close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

func (a *app) config() *config.Config {
	return a.cfg.Config
}

// httpClient builds the backend transport from config.
func (a *app) httpClient(observe func(string, int, time.Duration)) *httpclient.Client {
	b := a.config().Backend
	return httpclient.New(httpclient.Options{
		Timeout:    b.Timeout(),
		MaxRetries: b.MaxRetries,
		RetryDelay: b.RetryDelay(),
		RateLimit:  b.RateLimit,
		RateBurst:  b.RateBurst,
		UserAgent:  version.Get().UserAgent(),
		Logger:     a.log,
		Observe:    observe,
	})
}

func (a *app) backend() (*api.Client, error) {
	return api.New(a.config().Backend.URL, a.httpClient(nil), a.log)
}

// sessionManager opens the token database on first use.
func (a *app) sessionManager() (*auth.Manager, error) {
	if a.sessions != nil {
		return a.sessions, nil
	}
	database, err := db.OpenWithMigrations(a.config().Database.Path, a.log)
	if err != nil {
		return nil, errors.WithHint(err, "check database.path in your config")
	}
	a.db = database
	a.sessions = auth.NewManager(auth.NewSQLStore(database), a.config().Server.SessionTTL(), a.log)
	return a.sessions, nil
}

// session returns the command line's own session, logged in or not.
func (a *app) session(ctx context.Context) (*auth.Session, error) {
	m, err := a.sessionManager()
	if err != nil {
		return nil, err
	}
	return m.Open(ctx, auth.CLISessionID)
}

// user returns a backend client for the logged-in CLI session.
func (a *app) user(ctx context.Context) (*api.UserClient, error) {
	session, err := a.session(ctx)
	if err != nil {
		return nil, err
	}
	if !session.Authenticated() {
		return nil, errors.WithHint(errors.Wrap(errors.ErrUnauthorized, "not logged in"), "run `propscout login` first")
	}
	client, err := a.backend()
	if err != nil {
		return nil, err
	}
	return client.User(session), nil
}

// readLine reads one line from the command's input.
func (a *app) readLine(prompt string, w io.Writer) (string, error) {
	if prompt != "" {
		fmt.Fprint(w, prompt)
	}
	line, err := a.stdin.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", errors.Wrap(err, "failed to read input")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// PrintError writes err for a person: the user-facing message, then any hints.
func PrintError(w io.Writer, err error) {
	msg := err.Error()
	if api.StatusCode(err) != 0 || errors.Is(err, errors.ErrSessionExpired) {
		msg = api.UserMessage(err)
	}
	fmt.Fprintln(w, pterm.Error.Sprint(msg))
	for _, hint := range errors.GetAllHints(err) {
		fmt.Fprintln(w, pterm.Info.Sprint(hint))
	}
}
