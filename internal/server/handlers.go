package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/resonance-audio/resonance/internal/library"
	"github.com/resonance-audio/resonance/internal/protocol"
)

const maxActionBody = 64 << 10

var contentTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".flac": "audio/flac",
	".wav":  "audio/wav",
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleGetAudio(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	if title == "" {
		http.Error(w, "missing title", http.StatusBadRequest)
		return
	}
	path, err := s.lib.Path(r.Context(), title)
	switch {
	case errors.Is(err, library.ErrInvalidTitle):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, library.ErrNotFound):
		http.Error(w, "track not found", http.StatusNotFound)
		return
	case err != nil:
		s.log.Error("resolve track", zap.String("title", title), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		http.Error(w, "track not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(path))]; ok {
		w.Header().Set("Content-Type", ct)
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxActionBody))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}
	msg, err := protocol.DecodeMessage(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if title := r.URL.Query().Get("title"); title != "" && title != msg.Payload.Title {
		http.Error(w, "title does not match payload", http.StatusBadRequest)
		return
	}
	if err := s.apply(r.Context(), r.RemoteAddr, msg); err != nil {
		s.log.Error("record action", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	if title == "" {
		http.Error(w, "missing title", http.StatusBadRequest)
		return
	}

	track, err := s.lib.Save(r.Context(), title, r.Body, s.opts.MaxUploadBytes)
	var unsupported *library.UnsupportedError
	switch {
	case errors.Is(err, library.ErrInvalidTitle):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, library.ErrTooLarge):
		http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
		return
	case errors.As(err, &unsupported):
		http.Error(w, err.Error(), http.StatusUnsupportedMediaType)
		return
	case err != nil:
		s.log.Error("save upload", zap.String("title", title), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, protocol.AudioInformation{
		Title:    track.Title,
		Size:     track.Size,
		Duration: track.Duration,
	})
	s.broadcast(r.Context())
}

func (s *Server) handleSongs(w http.ResponseWriter, r *http.Request) {
	titles, err := s.lib.Titles(r.Context())
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, protocol.SongListMessage{Songs: titles})
}

type eventResponse struct {
	ID        int64   `json:"id"`
	Action    string  `json:"action"`
	Size      int64   `json:"size"`
	Duration  float64 `json:"duration"`
	Client    string  `json:"client,omitempty"`
	CreatedAt string  `json:"created_at"`
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	title, err := library.CleanTitle(mux.Vars(r)["title"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, 500)
	}

	events, err := s.lib.Store().Events(r.Context(), title, limit)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	out := make([]eventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, eventResponse{
			ID:        e.ID,
			Action:    e.Action,
			Size:      e.Size,
			Duration:  e.Duration,
			Client:    e.Client,
			CreatedAt: e.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleMessage receives messages sent over the socket.
func (s *Server) handleMessage(ctx context.Context, clientID string, msg protocol.Message) {
	if err := s.apply(ctx, clientID, msg); err != nil {
		s.log.Warn("apply client message",
			zap.String("client", clientID),
			zap.String("action", string(msg.Action)),
			zap.Error(err))
	}
}

// apply records msg and, for NEW_TRACK, stores the announced size and
// duration and rebroadcasts the library.
func (s *Server) apply(ctx context.Context, client string, msg protocol.Message) error {
	p := msg.Payload
	if msg.Action == protocol.ActionNewTrack {
		known, err := s.lib.Announce(ctx, p.Title, p.Size, p.Duration)
		if err != nil {
			return err
		}
		if !known {
			s.log.Warn("announcement for unknown track", zap.String("title", p.Title))
			return nil
		}
		defer s.broadcast(ctx)
	}
	return s.lib.Store().RecordEvent(ctx, library.Event{
		Title:    p.Title,
		Action:   string(msg.Action),
		Size:     p.Size,
		Duration: p.Duration,
		Client:   client,
	})
}
