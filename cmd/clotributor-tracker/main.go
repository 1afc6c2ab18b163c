package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cncf/clotributor/internal/config"
	"github.com/cncf/clotributor/internal/db"
	"github.com/cncf/clotributor/internal/github"
	"github.com/cncf/clotributor/internal/logger"
	"github.com/cncf/clotributor/internal/tracker"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "clotributor-tracker",
	Short:         "Track repositories and sync their issues into the catalogue",
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

	if err := tracker.Run(ctx, cfg, db.NewStore(pool), github.NewClient(), l); err != nil {
		l.Error("tracker run failed", zap.Error(err))
		return err
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
