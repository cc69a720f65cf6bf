package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/api"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/logging"
	"github.com/theatharvamuley10/phillipCap-rewardToken/internal/ui"
)

const shutdownTimeout = 5 * time.Second

var serveAddrFlag string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dApp over HTTP",
	Long: `Serve the dApp as a JSON API with a websocket event stream.

  POST /api/connect                 connect the default wallet
  POST /api/disconnect              forget the session
  GET  /api/session                 current account and chain
  GET  /api/balance                 displayed balance
  POST /api/balance/refresh         re-read the balance
  GET  /api/owner                   contract owner
  GET  /api/forms                   state of both forms
  POST /api/forms/{name}/submit     {"target": "0x...", "amount": "10.5"}
  GET  /api/events                  websocket of session and form changes
  GET  /metrics                     Prometheus metrics

Account requests are approved on this terminal unless --yes or
auto_approve is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := cfg.ListenAddr
		if serveAddrFlag != "" {
			addr = serveAddrFlag
		}

		d, err := newDapp(logger, newApprover())
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		unfollow := d.balance.Follow(ctx, d.sessions)
		defer unfollow()

		server := api.New(d.sessions, d.balance, d.forms, d.metrics, logging.Component(logger, "api"))
		defer server.Close()

		srv := &http.Server{
			Addr:              addr,
			Handler:           server.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			fmt.Fprintln(cmd.OutOrStdout(), ui.Info("Serving the PRT dApp on http://"+addr))
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server: %w", err)
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("graceful shutdown did not complete")
			return srv.Close()
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Meta("Server stopped."))
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddrFlag, "addr", "", "listen address (default from config: 127.0.0.1:8080)")
}
