package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/resonance-audio/resonance/internal/audio"
	"github.com/resonance-audio/resonance/internal/errmsg"
	"github.com/resonance-audio/resonance/internal/libview"
	"github.com/resonance-audio/resonance/internal/mpris"
	"github.com/resonance-audio/resonance/internal/notify"
	"github.com/resonance-audio/resonance/internal/playback"
	"github.com/resonance-audio/resonance/internal/stderr"
	"github.com/resonance-audio/resonance/internal/transport"
	"github.com/resonance-audio/resonance/internal/tui"
)

func newPlayCmd(flags *globalFlags) *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Browse the server library and play tracks in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("server") {
				cfg.Client.ServerURL = serverURL
			}

			// The terminal belongs to the interface: logs go to the file only.
			log, err := newLogger(cfg.Log, nil)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck // best effort on exit

			capture, err := stderr.Start(log)
			if err != nil {
				log.Warn("stderr capture unavailable", zap.Error(err))
			} else {
				defer capture.Stop()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
			defer stop()

			client, err := transport.NewClient(transport.ClientConfig{
				BaseURL: cfg.Client.ServerURL,
				Timeout: cfg.Client.FetchTimeout(),
				Logger:  log.Named("transport"),
			})
			if err != nil {
				return err
			}
			defer client.Wait()

			out, err := audio.NewOutput(audio.OutputConfig{
				SampleRate: cfg.Client.SampleRate,
				BufferSize: cfg.Client.Buffer(),
				Logger:     log.Named("audio"),
			})
			if err != nil {
				return fmt.Errorf("%s: %w", errmsg.OpAudioOpen, err)
			}
			defer out.Close()
			out.SetVolume(cfg.Client.Volume)

			engine := playback.New(playback.Options{
				Clock:            out,
				Output:           out,
				Fetcher:          client,
				Decoder:          audio.Decoder{},
				Reporter:         client,
				ProgressInterval: cfg.Client.ProgressInterval(),
				Logger:           log.Named("engine"),
			})
			defer engine.Close()
			sub := engine.Subscribe()
			media := mpris.New(engine, out, log.Named("mpris"))
			defer media.Close() //nolint:errcheck // released on exit
			if cfg.Client.Notifications {
				go notify.NewNowPlaying(notify.New(), log.Named("notify")).Run(ctx, engine.Subscribe())
			}

			view := libview.New()
			refresh := func(ctx context.Context) error {
				titles, err := client.Songs(ctx)
				if err != nil {
					return err
				}
				view.Replace(titles)
				return nil
			}
			if err := refresh(ctx); err != nil {
				return fmt.Errorf("%s: %w", errmsg.OpConnect, err)
			}
			go syncLibrary(ctx, client, view, log.Named("socket"))

			model := tui.New(tui.Options{
				Context:      ctx,
				Player:       engine,
				Subscription: sub,
				Library:      view,
				Volume:       out,
				Refresh:      refresh,
				Server:       client.BaseURL(),
				SeekStep:     cfg.Client.SeekStepSec,
				Logger:       log.Named("tui"),
			})
			_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			if err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "", "server URL (default from config)")
	return cmd
}

// syncLibrary keeps view in line with the server socket until ctx is done.
// A dropped connection is logged; the song list can still be refreshed
// over HTTP.
func syncLibrary(ctx context.Context, client *transport.Client, view *libview.View, log *zap.Logger) {
	sock, err := transport.Dial(ctx, client.WebSocketURL(), view, log)
	if err != nil {
		log.Warn(errmsg.Format(errmsg.OpConnect, err))
		return
	}
	defer sock.Close()
	if err := sock.Run(ctx); err != nil {
		log.Warn("library socket closed", zap.Error(err))
	}
}
