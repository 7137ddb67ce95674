package devserver

import (
	"context"
	_ "embed"
	"errors"
	"net"
	"net/http"
	"time"

	"go.trai.ch/weave/internal/core/domain"
	"go.trai.ch/zerr"
)

//go:embed client.js
var clientScript []byte

const shutdownTimeout = 5 * time.Second

// Server serves the output directory, the live-update endpoint and metrics.
type Server struct {
	srv *http.Server
}

// New creates a Server listening on addr. metrics may be nil.
func New(addr, outDir string, hub *Hub, metrics http.Handler) *Server {
	mux := http.NewServeMux()
	mux.Handle(domain.LiveUpdatePath, hub)
	mux.HandleFunc(domain.LiveClientPath, serveClient)
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}
	mux.Handle("/", noCache(http.FileServer(http.Dir(outDir))))

	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}}
}

// Handler returns the request router.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Serve listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrServerFailed.Error()), "addr", s.srv.Addr)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is cancelled.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return zerr.Wrap(err, domain.ErrServerFailed.Error())
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return zerr.Wrap(err, domain.ErrServerFailed.Error())
		}
		return nil
	}
}

func serveClient(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(clientScript)
}

func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
