package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cncf/clotributor/internal/config"
	"github.com/cncf/clotributor/internal/db"
	"github.com/cncf/clotributor/internal/logger"
	"github.com/cncf/clotributor/internal/registrar"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "clotributor-registrar",
	Short:         "Reconcile the catalogue against the foundations data files",
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

	ctx := cmd.Context()
	pool, err := db.NewPool(ctx, cfg.DB)
	if err != nil {
		l.Error("error setting up database", zap.Error(err))
		return err
	}
	defer pool.Close()

	if err := registrar.Run(ctx, cfg, db.NewStore(pool), l); err != nil {
		l.Error("registrar run failed", zap.Error(err))
		return err
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
