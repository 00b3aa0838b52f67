package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cometbft/cometbft/abci/server"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"lottochain/internal/app"
	"lottochain/internal/config"
	"lottochain/internal/state"
	"lottochain/internal/yield"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "lottod",
		Short: "ABCI application daemon for the tranche-funded lottery chain",
	}
	rootCmd.AddCommand(startCmd())

	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the ABCI server",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			log.SetLevel(log.Level(cfg.LogLevel))
			log.WithField("config", cfg.String()).Debug("loaded config")

			store, err := newStore(cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer func() { _ = store.Close() }()

			a, err := app.New(store, yield.NewNoop())
			if err != nil {
				return fmt.Errorf("init app: %w", err)
			}

			srv, err := server.NewServer(cfg.ListenAddr, cfg.Transport, a)
			if err != nil {
				return fmt.Errorf("create abci server: %w", err)
			}
			if err := srv.Start(); err != nil {
				return fmt.Errorf("start abci server: %w", err)
			}
			defer func() { _ = srv.Stop() }()

			log.WithFields(log.Fields{
				"addr":      cfg.ListenAddr,
				"transport": cfg.Transport,
				"store":     cfg.StoreType,
			}).Info("lottod started")

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh

			log.Info("shutting down")
			return nil
		},
	}
}

func newStore(cfg *config.Config) (state.Store, error) {
	switch cfg.StoreType {
	case "bolt":
		return state.NewBoltStore(cfg.Home)
	default:
		return state.NewFileStore(cfg.Home), nil
	}
}
