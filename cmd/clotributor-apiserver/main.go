package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cncf/clotributor/internal/apiserver"
	"github.com/cncf/clotributor/internal/config"
	"github.com/cncf/clotributor/internal/db"
	"github.com/cncf/clotributor/internal/logger"
)

// shutdownTimeout bounds how long in-flight requests can take to finish
// once a termination signal arrives.
const shutdownTimeout = 10 * time.Second

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "clotributor-apiserver",
	Short:         "Serve the issues search API and the web client",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file path")
	_ = rootCmd.MarkFlagRequired("config")
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	l, err := logger.Setup(cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l.Debug("setting up database")
	pool, err := db.NewPool(ctx, cfg.DB)
	if err != nil {
		l.Error("error setting up database", zap.Error(err))
		return err
	}
	defer pool.Close()

	l.Debug("setting up apiserver")
	handlers := apiserver.NewHandlers(cfg, db.NewStore(pool), l)
	srv := &http.Server{
		Addr:              cfg.APIServer.Addr,
		Handler:           handlers.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		l.Info("apiserver started", zap.String("addr", cfg.APIServer.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		l.Error("apiserver error", zap.Error(err))
		return err
	case <-ctx.Done():
	}

	l.Info("apiserver stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	l.Info("apiserver stopped")

	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
