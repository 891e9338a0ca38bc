package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/marketplace/internal/httpapi"
)

// shutdownTimeout bounds graceful shutdown of in-flight requests.
const shutdownTimeout = 5 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr        string
	PollTimeout time.Duration

	// ready, when set, receives the bound address once the listener is up
	// (for testing).
	ready chan<- string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the marketplace over HTTP",
		Long: `Replay the journal and serve the marketplace over HTTP.

Mutating requests carry the requester in the X-Requester header. Accepted
operations are journaled before they answer. GET /entries/next long-polls
for the next entry of a kind.

Examples:
  marketplace serve --db ./market.db
  marketplace serve --config ./market.cue --addr 0.0.0.0:8080`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().DurationVar(&opts.PollTimeout, "poll-timeout", httpapi.DefaultPollTimeout, "long-poll window of GET /entries/next")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	sess, err := opts.openSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()
	logger := sess.logger

	addr := sess.cfg.HTTP.Addr
	if opts.Addr != "" {
		addr = opts.Addr
	}

	handler := httpapi.New(sess.market,
		httpapi.WithLogger(logger),
		httpapi.WithPollTimeout(opts.PollTimeout),
		httpapi.WithAllowedOrigins(sess.cfg.HTTP.CORSOrigins),
	)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	// Request contexts derive from ctx so pending long polls end on shutdown.
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
			// Parent context cancelled (e.g., from test)
		}
	}()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	bound := ln.Addr().String()
	logger.Info("marketplace serving", "addr", bound, "market", sess.market.Address().Hex(), "db", sess.cfg.Database)
	fmt.Fprintf(cmd.OutOrStdout(), "Marketplace %s listening on http://%s\n", sess.market.Address().Hex(), bound)
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")
	if opts.ready != nil {
		opts.ready <- bound
	}

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitFailure, "server error", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitFailure, "shutdown error", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}
