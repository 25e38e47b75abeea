package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/resonance-audio/resonance/internal/libview"
	"github.com/resonance-audio/resonance/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	maxMessageSize = 1 << 20
)

// Socket is the client end of the library WebSocket. Every song list it
// receives replaces the view.
type Socket struct {
	conn *websocket.Conn
	view *libview.View
	log  *zap.Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// Dial connects to the server socket at wsURL.
func Dial(ctx context.Context, wsURL string, view *libview.View, log *zap.Logger) (*Socket, error) {
	if log == nil {
		log = zap.NewNop()
	}
	dialer := websocket.Dialer{HandshakeTimeout: writeWait}
	conn, resp, err := dialer.DialContext(ctx, wsURL, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}
	return &Socket{conn: conn, view: view, log: log}, nil
}

// Run reads messages until the connection closes or ctx is done.
func (s *Socket) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	defer stop()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPingHandler(func(data string) error {
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
		err := s.conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read socket: %w", err)
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
		s.handle(data)
	}
}

func (s *Socket) handle(data []byte) {
	list, err := protocol.DecodeSongList(data)
	if err != nil {
		s.log.Warn("dropping malformed library update", zap.Error(err))
		return
	}
	s.view.Replace(list.Songs)
	s.log.Debug("library updated", zap.Int("songs", len(list.Songs)))
}

// Announce sends a NEW_TRACK message for a freshly decoded upload.
func (s *Socket) Announce(info protocol.AudioInformation) error {
	return s.send(protocol.Message{Action: protocol.ActionNewTrack, Payload: info})
}

func (s *Socket) send(msg protocol.Message) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Close sends a close frame and closes the connection.
func (s *Socket) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	return err
}
