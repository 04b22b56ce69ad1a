// Package webserver serves the local read-only HTTP status API
package webserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shaharia-lab/audicord/internal/logger"
)

const shutdownTimeout = 10 * time.Second

// WebServer is a small HTTP server bound to localhost
type WebServer struct {
	Addr     string
	server   *http.Server
	router   *chi.Mux
	listener net.Listener
	log      logger.Logger
}

// NewWebServer creates a server on 127.0.0.1:port. Port 0 picks a free port.
func NewWebServer(port int, log logger.Logger) *WebServer {
	log = logger.OrDiscard(log).WithField("component", "http")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	return &WebServer{
		Addr:   net.JoinHostPort("127.0.0.1", strconv.Itoa(port)),
		router: r,
		log:    log,
	}
}

// Router returns the chi router to allow adding routes from outside
func (ws *WebServer) Router() *chi.Mux {
	return ws.router
}

// Start binds the address and serves in the background. Bind errors are
// returned directly.
func (ws *WebServer) Start() error {
	ln, err := net.Listen("tcp", ws.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", ws.Addr, err)
	}
	ws.listener = ln
	ws.Addr = ln.Addr().String()

	ws.server = &http.Server{
		Handler:           ws.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := ws.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			ws.log.Error("HTTP server stopped", map[string]interface{}{logger.ErrorKey: err})
		}
	}()

	ws.log.Info("HTTP status server listening", map[string]interface{}{"addr": ws.Addr})
	return nil
}

// Stop gracefully shuts down the server with a timeout
func (ws *WebServer) Stop() error {
	if ws.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return ws.server.Shutdown(ctx)
}

func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("HTTP request", map[string]interface{}{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"duration":   time.Since(start).String(),
				"request_id": middleware.GetReqID(r.Context()),
			})
		})
	}
}
