// Package server hosts the dispatcher on net/http: request/response
// glue, error mapping, access logging and lifecycle.
package server

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"example.com/dirserve/internal/config"
	"example.com/dirserve/internal/dispatch"
	"example.com/dirserve/internal/logger"
	"example.com/dirserve/internal/resolve"
	"example.com/dirserve/internal/respond"
)

const defaultShutdownTimeout = 30 * time.Second

// RequestHandler adapts the dispatcher to http.Handler. It owns the
// translation from dispatch outcomes and errors to HTTP status codes:
// invalid paths map to 404 (no information leak about what exists
// outside the root), permission failures to 403, handler and I/O
// failures to 500, and unhandled requests to the default 404 page.
type RequestHandler struct {
	dispatcher *dispatch.Dispatcher
	log        *logger.Logger
}

// NewRequestHandler wires a dispatcher into an http.Handler.
func NewRequestHandler(d *dispatch.Dispatcher, lg *logger.Logger) *RequestHandler {
	if lg == nil {
		lg = logger.NewDiscardLogger()
	}
	return &RequestHandler{dispatcher: d, log: lg}
}

func (h *RequestHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	start := time.Now()
	rs := dispatch.NewResponseState(w)

	switch req.Method {
	case http.MethodGet, http.MethodHead:
		h.serve(rs, req)
	default:
		rs.Header().Set("Allow", "GET, HEAD")
		respond.WriteError(rs, req, http.StatusMethodNotAllowed, "", h.log)
	}

	h.log.Access(req, rs.Status(), rs.BytesWritten(), time.Since(start))
}

func (h *RequestHandler) serve(rs *dispatch.ResponseState, req *http.Request) {
	outcome, err := h.dispatcher.Dispatch(rs, req)
	if err != nil {
		h.writeDispatchError(rs, req, err)
		return
	}

	if outcome == dispatch.OutcomeUnhandled {
		// Nothing matched and nothing was written: standard not-found.
		respond.WriteError(rs, req, http.StatusNotFound, "", h.log)
	}
}

func (h *RequestHandler) writeDispatchError(rs *dispatch.ResponseState, req *http.Request, err error) {
	var handlerErr *dispatch.HandlerError

	switch {
	case errors.Is(err, resolve.ErrInvalidPath):
		h.log.Warn("server: rejected invalid request path", logger.LogFields{
			"path":  req.URL.Path,
			"error": err.Error(),
		})
		respond.WriteError(rs, req, http.StatusNotFound, "", h.log)

	case errors.Is(err, fs.ErrPermission):
		h.log.Warn("server: permission denied", logger.LogFields{
			"path":  req.URL.Path,
			"error": err.Error(),
		})
		respond.WriteError(rs, req, http.StatusForbidden, "", h.log)

	case errors.As(err, &handlerErr):
		h.log.Error("server: content handler failed", logger.LogFields{
			"path":  req.URL.Path,
			"error": handlerErr.Err.Error(),
		})
		respond.WriteError(rs, req, http.StatusInternalServerError, "", h.log)

	default:
		h.log.Error("server: request failed", logger.LogFields{
			"path":  req.URL.Path,
			"error": err.Error(),
		})
		respond.WriteError(rs, req, http.StatusInternalServerError, "", h.log)
	}
}

// Server runs the hosting HTTP server with graceful shutdown.
type Server struct {
	cfg  *config.ServerConfig
	log  *logger.Logger
	http *http.Server
}

// NewServer builds a Server listening per cfg and serving handler.
func NewServer(cfg *config.ServerConfig, lg *logger.Logger, handler http.Handler) *Server {
	if lg == nil {
		lg = logger.NewDiscardLogger()
	}
	return &Server{
		cfg: cfg,
		log: lg,
		http: &http.Server{
			Addr:    cfg.Address,
			Handler: handler,
		},
	}
}

// Start listens and serves until SIGINT or SIGTERM, then shuts down
// gracefully within the configured timeout. It returns nil after a clean
// shutdown.
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server: listening", logger.LogFields{"address": s.http.Addr})
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("server: shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout(defaultShutdownTimeout))
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
