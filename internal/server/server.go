// Package server exposes the music library over HTTP and keeps WebSocket
// clients in sync with it.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/resonance-audio/resonance/internal/hub"
	"github.com/resonance-audio/resonance/internal/library"
)

// Options configures a Server.
type Options struct {
	Addr            string
	Library         *library.Library
	MaxUploadBytes  int64
	AllowedOrigins  []string
	PingPeriod      time.Duration
	WatchDebounce   time.Duration
	ShutdownTimeout time.Duration
	Logger          *zap.Logger
}

// Server wires the library, the hub and the HTTP routes together.
type Server struct {
	opts   Options
	lib    *library.Library
	hub    *hub.Hub
	router *mux.Router
	log    *zap.Logger
}

// New creates a server. Nothing runs until Run or Serve.
func New(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 200 << 20
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	if opts.WatchDebounce <= 0 {
		opts.WatchDebounce = 500 * time.Millisecond
	}

	s := &Server{opts: opts, lib: opts.Library, log: log}
	s.hub = hub.New(hub.Options{
		AllowedOrigins: opts.AllowedOrigins,
		PingPeriod:     opts.PingPeriod,
		OnMessage:      s.handleMessage,
		Logger:         log.Named("hub"),
	})
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests, corsMiddleware(s.opts.AllowedOrigins))

	r.Handle("/ws", s.hub).Methods(http.MethodGet)
	r.HandleFunc("/get-audio", s.handleGetAudio).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/action", s.handleAction).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/upload", s.handleUpload).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/songs", s.handleSongs).Methods(http.MethodGet)
	r.HandleFunc("/tracks/{title}/events", s.handleEvents).Methods(http.MethodGet)
	return r
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler { return s.router }

// Hub returns the WebSocket hub.
func (s *Server) Hub() *hub.Hub { return s.hub }

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve scans the library, starts the hub and the directory watcher, and
// serves HTTP on ln until ctx is done. Shutdown waits up to the configured
// timeout for in-flight requests.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if res, err := s.lib.Scan(ctx); err != nil {
		s.log.Warn("initial scan failed", zap.Error(err))
	} else {
		s.log.Info("library scanned",
			zap.Int("added", len(res.Added)),
			zap.Int("updated", len(res.Updated)),
			zap.Int("removed", len(res.Removed)),
			zap.Int("skipped", len(res.Skipped)))
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.hub.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		err := s.lib.Watch(ctx, s.opts.WatchDebounce, func(res library.ScanResult) {
			s.log.Info("library changed",
				zap.Strings("added", res.Added),
				zap.Strings("removed", res.Removed))
			s.broadcast(ctx)
		})
		if err != nil {
			s.log.Warn("library watcher stopped", zap.Error(err))
		}
	}()
	s.broadcast(ctx)

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("server listening", zap.String("addr", ln.Addr().String()))
		errc <- srv.Serve(ln)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errc:
	}

	s.log.Info("shutting down server")
	shutdownCtx, stop := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ShutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Warn("forced shutdown", zap.Error(err))
	}
	cancel()
	wg.Wait()

	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return serveErr
	}
	s.log.Info("server stopped")
	return nil
}

// broadcast pushes the current song list to every client.
func (s *Server) broadcast(ctx context.Context) {
	titles, err := s.lib.Titles(ctx)
	if err != nil {
		s.log.Warn("list titles", zap.Error(err))
		return
	}
	if err := s.hub.BroadcastSongs(titles); err != nil {
		s.log.Warn("broadcast songs", zap.Error(err))
	}
}
