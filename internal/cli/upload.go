package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/resonance-audio/resonance/internal/audio"
	"github.com/resonance-audio/resonance/internal/errmsg"
	"github.com/resonance-audio/resonance/internal/libview"
	"github.com/resonance-audio/resonance/internal/protocol"
	"github.com/resonance-audio/resonance/internal/transport"
)

func newUploadCmd(flags *globalFlags) *cobra.Command {
	var serverURL, title string

	cmd := &cobra.Command{
		Use:   "upload FILE",
		Short: "Upload an audio file and announce it to connected players",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("server") {
				cfg.Client.ServerURL = serverURL
			}
			if title == "" {
				title = filepath.Base(args[0])
			}

			log, err := newLogger(cfg.Log, nil)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck // best effort on exit

			client, err := transport.NewClient(transport.ClientConfig{
				BaseURL: cfg.Client.ServerURL,
				Timeout: cfg.Client.FetchTimeout(),
				Logger:  log.Named("transport"),
			})
			if err != nil {
				return err
			}

			info, err := upload(cmd.Context(), client, args[0], title, log)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s (%s, %s)\n",
				info.Title, humanize.Bytes(uint64(info.Size)), formatSeconds(info.Duration))
			return nil
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "", "server URL (default from config)")
	cmd.Flags().StringVar(&title, "title", "", "title on the server (default: file name)")
	return cmd
}

// upload decodes path locally, stores it on the server and announces the
// decoded size and duration over the socket.
func upload(ctx context.Context, client *transport.Client, path, title string, log *zap.Logger) (protocol.AudioInformation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return protocol.AudioInformation{}, err
	}
	buf, err := audio.Decode(data)
	if err != nil {
		return protocol.AudioInformation{}, fmt.Errorf("%s %q: %w", errmsg.OpDecode, path, err)
	}

	stored, err := client.Upload(ctx, title, data)
	if err != nil {
		return protocol.AudioInformation{}, fmt.Errorf("%s: %w", errmsg.OpUpload, err)
	}

	info := protocol.AudioInformation{
		Title:    stored.Title,
		Size:     int64(len(data)),
		Duration: buf.Duration(),
	}
	sock, err := transport.Dial(ctx, client.WebSocketURL(), libview.New(), log.Named("socket"))
	if err != nil {
		return info, fmt.Errorf("%s: %w", errmsg.OpAnnounce, err)
	}
	defer sock.Close()
	if err := sock.Announce(info); err != nil {
		return info, fmt.Errorf("%s: %w", errmsg.OpAnnounce, err)
	}
	return info, nil
}

func formatSeconds(s float64) string {
	total := int(s + 0.5)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
