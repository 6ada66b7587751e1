// Package server exposes the analysis engine over HTTP: an upload form, the
// analysis endpoint, fixed-playlist downloads, plus /healthz and /metrics.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/playlistdoctor/playlist-doctor/internal/fetch"
	"github.com/playlistdoctor/playlist-doctor/internal/playlist"
	"github.com/playlistdoctor/playlist-doctor/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Server runs the HTTP front end. All fields must be set before Run.
type Server struct {
	Addr        string
	BaseURL     string
	DefaultMode playlist.Mode
	ChannelCap  int
	Fetcher     *fetch.Fetcher
	Store       store.Store
	Metrics     *Metrics
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	if s.Fetcher == nil {
		s.Fetcher = &fetch.Fetcher{}
	}
	if s.Store == nil {
		s.Store = store.NewMemory()
	}
	if s.Metrics == nil {
		s.Metrics = NewMetrics()
	}

	mux := http.NewServeMux()
	mux.Handle("/", s.serveIndex())
	mux.Handle("/analyze", s.serveAnalyze())
	mux.Handle("/download/", s.serveDownload())
	mux.Handle("/healthz", s.serveHealth())
	mux.Handle("/metrics", s.Metrics.Handler())

	addr := s.Addr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{Addr: addr, Handler: logRequests(mux)}

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("Listening on %s (BaseURL %s)", addr, s.BaseURL)
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		log.Print("Shutting down ...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown: %v", err)
		}
		<-serverErr
		return nil
	}
}

// serveHealth returns an http.Handler for GET /healthz.
func (s *Server) serveHealth() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
}

type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *loggingResponseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *loggingResponseWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(p)
	w.bytes += n
	return n, err
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lw := &loggingResponseWriter{ResponseWriter: w}
		next.ServeHTTP(lw, r)
		status := lw.status
		if status == 0 {
			status = http.StatusOK
		}
		log.Printf(
			"http: %s %s status=%d bytes=%d dur=%s remote=%s",
			r.Method, r.URL.Path, status, lw.bytes, time.Since(start).Round(time.Millisecond), r.RemoteAddr,
		)
	})
}
