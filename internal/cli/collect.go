package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/agentward/agentward/internal/collector"
)

var collectConfig string

func init() {
	rootCmd.AddCommand(collectCmd)
	collectCmd.Flags().StringVar(&collectConfig, "config", "", "Path to collector config YAML (env vars override)")
}

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Start the telemetry collector",
	Long:  "Runs the HTTP collector that ingests SDK telemetry into SQLite.\nConfigured via AGENTWARD_* env vars or a YAML file.",
	RunE:  runCollect,
}

func runCollect(cmd *cobra.Command, args []string) error {
	cfg, err := collector.LoadConfig(collectConfig)
	if err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	log := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	store, err := collector.OpenStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           collector.NewServer(store, cfg.APIKey, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Info().Str("addr", cfg.ListenAddr).Str("db", cfg.DBPath).Msg("collector listening")

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
