package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/pdm-qc/internal/config"
	"github.com/sells-group/pdm-qc/internal/pipeline"
	"github.com/sells-group/pdm-qc/internal/review"
	"github.com/sells-group/pdm-qc/internal/server"
	"github.com/sells-group/pdm-qc/pkg/anthropic"
)

const shutdownTimeout = 10 * time.Second

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the report HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		cfg.Server.Port = port
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err != nil {
			return eris.Wrap(err, "server listen")
		}
		return runServer(ctx, ln, buildHandler(cfg))
	},
}

// buildHandler wires the generator, optional reviewer and HTTP routes.
func buildHandler(c *config.Config) http.Handler {
	var opts []pipeline.Option
	if c.Review.Enabled && c.Anthropic.Key != "" {
		client := anthropic.NewClient(c.Anthropic.Key)
		opts = append(opts, pipeline.WithReviewer(review.New(client, c.ReviewSettings())))
	} else if c.Review.Enabled {
		zap.L().Warn("review enabled without anthropic.key; serving without text review")
	}

	policy := c.Policy()
	return server.New(pipeline.New(policy, opts...), policy, server.Options{
		AllowedOrigins: c.Server.AllowedOrigins,
		MaxBodyBytes:   int64(c.Server.MaxBodyMB) << 20,
	}).Handler()
}

// runServer serves on ln until ctx is done, then shuts down gracefully.
func runServer(ctx context.Context, ln net.Listener, handler http.Handler) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	zap.L().Info("starting server", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server serve")
		}
		return nil
	case <-ctx.Done():
	}

	zap.L().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server shutdown")
	}
	if err := <-errCh; err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server serve")
	}
	return nil
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
