package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	api "github.com/rogerio-castellano/pos-terminal/internal/http"
	"github.com/rogerio-castellano/pos-terminal/internal/http/handlers"
	"github.com/rogerio-castellano/pos-terminal/internal/http/rate_limiter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type ServeOptions struct {
	*RootOptions
	Addr string
}

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the terminal HTTP API and the periodic sync",
		Long: `Serve the register API and run a sync pass on the configured cron
schedule (sync.schedule, default "@every 1m"). SIGINT or SIGTERM stops
the scheduler and drains in-flight requests before exiting.

Example:
  pos-terminal serve --config ./pos-terminal.yaml
  POS_STORE_PREFER=flat POS_STORE_FLAT_KIND=bolt pos-terminal serve --addr :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides http.addr)")
	return cmd
}

func runServe(parent context.Context, opts *ServeOptions) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()
	if a.pos.OnlineOnly() {
		a.log.Warn("serving without a local store: no catalog cache, sales fail while the remote is down")
	}

	addr := a.cfg.HTTP.Addr
	if opts.Addr != "" {
		addr = opts.Addr
	}

	limiter := rate_limiter.New(a.cfg.HTTP.RatePerSecond, a.cfg.HTTP.RateBurst)
	go limiter.StartVisitorCleanupLoop(ctx)

	router := api.NewRouter(handlers.NewServer(a.pos, a.log.Named("http")), api.RouterConfig{
		JWTSecret: []byte(a.cfg.Auth.JWTSecret),
		Limiter:   limiter,
		Log:       a.log.Named("http"),
	})

	sched, err := newScheduler(a.pos, a.cfg.Sync.Schedule, a.cfg.Terminal.OutletID, a.cfg.Remote.RequestTimeout, a.log.Named("scheduler"))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to schedule sync", err)
	}
	sched.Start()

	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		a.log.Info("server running", zap.String("addr", addr), zap.String("backend", a.store.Backend()))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		<-sched.Stop().Done()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return WrapExitError(ExitFailure, "server stopped", err)
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Warn("graceful shutdown incomplete", zap.Error(err))
	}
	select {
	case <-sched.Stop().Done():
	case <-shutdownCtx.Done():
		a.log.Warn("scheduled sync still running at shutdown")
	}
	return nil
}
