package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cometbft/cometbft/abci/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"cryptolotto/internal/app"
	"cryptolotto/internal/config"
	"cryptolotto/internal/fhe"
	"cryptolotto/internal/metrics"
	"cryptolotto/internal/state"
)

func startCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Run the ABCI application",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for key, flag := range map[string]string{
				"abci.address":    "addr",
				"abci.transport":  "transport",
				"log.level":       "log-level",
				"metrics.enabled": "metrics",
			} {
				if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
					return err
				}
			}
			cfg, err := config.Load(v, homeDir(v))
			if err != nil {
				return err
			}
			return runNode(cmd.Context(), cfg)
		},
	}
	d := config.DefaultConfig()
	cmd.Flags().String("addr", d.ABCI.Address, "ABCI listen address")
	cmd.Flags().String("transport", d.ABCI.Transport, "ABCI transport (socket|grpc)")
	cmd.Flags().String("log-level", d.Log.Level, "log level")
	cmd.Flags().Bool("metrics", d.Metrics.Enabled, "serve prometheus metrics")
	return cmd
}

func runNode(ctx context.Context, cfg config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger, err := config.NewLogger(cfg.Log, os.Stdout)
	if err != nil {
		return err
	}
	key, err := fhe.LoadNetworkKey(cfg.KeyFilePath())
	if err != nil {
		return fmt.Errorf("%w (run `%s init` first)", err, BinaryName)
	}
	db, err := state.Open(cfg.DBPath())
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	m := metrics.New()
	a, err := app.New(app.Options{Config: cfg, Key: key, DB: db, Metrics: m, Logger: logger})
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}

	srv, err := server.NewServer(cfg.ABCI.Address, cfg.ABCI.Transport, a)
	if err != nil {
		return fmt.Errorf("start abci server: %w", err)
	}
	if err := srv.Start(); err != nil {
		return fmt.Errorf("abci server start: %w", err)
	}
	defer func() { _ = srv.Stop() }()
	logger.Info("abci server started", "addr", cfg.ABCI.Address, "transport", cfg.ABCI.Transport)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	if cfg.Metrics.Enabled {
		g.Go(func() error {
			logger.Info("serving metrics", "addr", cfg.Metrics.Address)
			return m.Serve(ctx, cfg.Metrics.Address)
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		return nil
	})
	err = g.Wait()
	logger.Info("shutting down")
	return err
}
