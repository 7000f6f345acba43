package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/propscout/propscout/api"
	"github.com/propscout/propscout/config"
	"github.com/propscout/propscout/logger"
	"github.com/propscout/propscout/server"
	"github.com/propscout/propscout/version"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		port int
		host string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web interface",
		Long: `Run the web interface on server.host:server.port (default :8420).

Config file changes are picked up without a restart for log.level,
backend.rate_limit, backend.rate_burst and server.page_size.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.config()
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = &port
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sessions, err := a.sessionManager()
			if err != nil {
				return err
			}

			registry := prometheus.NewRegistry()
			registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			metrics := server.NewMetrics(registry)
			if err := metrics.Register(); err != nil {
				return err
			}

			hc := a.httpClient(metrics.ObserveBackend)
			backend, err := api.New(cfg.Backend.URL, hc, a.log)
			if err != nil {
				return err
			}
			a.checkBackend(ctx, backend)

			srv, err := server.New(server.Options{
				Backend:       backend,
				Sessions:      sessions,
				Metrics:       metrics,
				Gatherer:      registry,
				CookieName:    cfg.Server.SessionCookie,
				SecureCookies: cfg.Server.SecureCookies,
				PageSize:      cfg.Server.PageSize,
				Version:       version.Version,
				Logger:        a.log,
			})
			if err != nil {
				return err
			}

			a.watchConfig(ctx, func(next *config.Config) error {
				hc.SetRateLimit(next.Backend.RateLimit, next.Backend.RateBurst)
				srv.SetPageSize(next.Server.PageSize)
				level := logger.VerbosityToLevelName(a.verbose, next.Log.Level)
				return logger.SetLevel(level)
			})

			addr := cfg.Server.Addr()
			fmt.Fprintln(cmd.ErrOrStderr(), pterm.Info.Sprintf("propscout %s listening on http://%s (backend %s)",
				version.Version, addr, backend.BaseURL()))
			return srv.ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", config.DefaultServerPort, "Port to listen on")
	cmd.Flags().StringVar(&host, "host", "", "Interface to bind (default server.host)")
	return cmd
}

// checkBackend warns when the backend is unreachable or older than
// backend.min_version. The server still starts: the backend may come up later.
func (a *app) checkBackend(ctx context.Context, backend *api.Client) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	health, err := backend.Health(ctx)
	if err != nil {
		a.log.Warnw("Backend health check failed",
			logger.FieldURL, backend.BaseURL(),
			logger.FieldError, err)
		return
	}
	if err := a.config().Backend.CheckBackendVersion(health.Version); err != nil {
		a.log.Warnw("Backend version mismatch", logger.FieldError, err)
	}
}

// watchConfig reloads settings on config file changes until ctx is done.
// Without any config file there is nothing to watch.
func (a *app) watchConfig(ctx context.Context, apply config.ReloadCallback) {
	if len(a.cfg.Files) == 0 {
		return
	}
	w, err := config.NewWatcher(config.Options{ConfigFile: a.configFile}, a.cfg.Files, a.log)
	if err != nil {
		a.log.Warnw("Config hot reload disabled", logger.FieldError, err)
		return
	}
	w.OnReload(apply)
	config.SetGlobalWatcher(w)
	go func() {
		w.Run(ctx)
		config.SetGlobalWatcher(nil)
	}()
	a.log.Debugw("Watching config files", logger.FieldCount, len(a.cfg.Files))
}
