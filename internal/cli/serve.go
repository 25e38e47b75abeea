package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/resonance-audio/resonance/internal/errmsg"
	"github.com/resonance-audio/resonance/internal/library"
	"github.com/resonance-audio/resonance/internal/server"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	var addr, musicDir, dbPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the music library over HTTP and WebSocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("music-dir") {
				cfg.Server.MusicDir = musicDir
			}
			if cmd.Flags().Changed("db") {
				cfg.Server.DBPath = dbPath
			}

			log, err := newLogger(cfg.Log, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck // best effort on exit

			store, err := library.OpenStore(cfg.Server.DBPath)
			if err != nil {
				return fmt.Errorf("%s: %w", errmsg.OpInitialize, err)
			}
			defer store.Close()

			lib, err := library.New(cfg.Server.MusicDir, store, log.Named("library"))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := server.New(server.Options{
				Addr:            cfg.Server.Addr,
				Library:         lib,
				MaxUploadBytes:  cfg.Server.MaxUploadBytes(),
				AllowedOrigins:  cfg.Server.AllowedOrigins,
				PingPeriod:      cfg.Server.PingInterval(),
				WatchDebounce:   cfg.Server.WatchDebounce(),
				ShutdownTimeout: cfg.Server.ShutdownTimeout(),
				Logger:          log.Named("server"),
			})
			log.Info("starting server",
				zap.String("addr", cfg.Server.Addr),
				zap.String("music_dir", cfg.Server.MusicDir),
				zap.String("db", cfg.Server.DBPath))
			if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
				return fmt.Errorf("%s: %w", errmsg.OpServeStart, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&musicDir, "music-dir", "", "music directory (default from config)")
	cmd.Flags().StringVar(&dbPath, "db", "", "sqlite index path (default from config)")
	return cmd
}
