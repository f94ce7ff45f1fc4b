// Package api exposes capture operations and window telemetry over
// HTTP, plus a WebSocket stream of foreground-window changes.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/bryanchriswhite/snapmaster/internal/logger"
	"github.com/bryanchriswhite/snapmaster/internal/screenshot"
	"github.com/bryanchriswhite/snapmaster/internal/selector"
	"github.com/bryanchriswhite/snapmaster/internal/window"
)

// captureService is the slice of the screenshot manager the API uses
type captureService interface {
	CaptureFullscreen(opts screenshot.Options) (string, error)
	CaptureActiveWindow(opts screenshot.Options) (string, error)
	CaptureArea(opts screenshot.Options) (string, error)
	CaptureApp(appName string, opts screenshot.Options) (string, error)
	Stats() screenshot.Stats
}

// windowService is the slice of the window detector the API uses
type windowService interface {
	CurrentApp(useCache bool) (*window.Info, error)
	History() []*window.Info
	Capabilities() window.Capabilities
	AddUpdateCallback(window.UpdateCallback) func()
}

// Server serves the HTTP API
type Server struct {
	captures captureService
	windows  windowService
	log      *zerolog.Logger

	httpServer *http.Server
	upgrader   websocket.Upgrader
}

// NewServer creates an API server on the given port
func NewServer(port int, captures captureService, windows windowService) *Server {
	s := &Server{
		captures: captures,
		windows:  windows,
		log:      logger.WithComponent("api-server"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // WebSocket connections stay open
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/capabilities", s.handleCapabilities).Methods("GET")
	api.HandleFunc("/stats", s.handleStats).Methods("GET")

	api.HandleFunc("/window/current", s.handleCurrentWindow).Methods("GET")
	api.HandleFunc("/window/history", s.handleHistory).Methods("GET")
	api.HandleFunc("/window/stream", s.handleWindowStream).Methods("GET")

	api.HandleFunc("/capture/fullscreen", s.handleCapture(s.captures.CaptureFullscreen)).Methods("POST")
	api.HandleFunc("/capture/window", s.handleCapture(s.captures.CaptureActiveWindow)).Methods("POST")
	api.HandleFunc("/capture/area", s.handleCapture(s.captures.CaptureArea)).Methods("POST")
	api.HandleFunc("/capture/app", s.handleCaptureApp).Methods("POST")

	r.Use(s.corsMiddleware)
	return r
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Start begins serving. Blocks until the server stops.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("Starting API server")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCapabilities(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.windows.Capabilities())
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.captures.Stats())
}

func (s *Server) handleCurrentWindow(w http.ResponseWriter, _ *http.Request) {
	info, err := s.windows.CurrentApp(true)
	if err != nil {
		if errors.Is(err, window.ErrNoActiveWindow) {
			s.writeError(w, http.StatusNotFound, err)
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleHistory(w http.ResponseWriter, _ *http.Request) {
	history := s.windows.History()
	if history == nil {
		history = []*window.Info{}
	}
	s.writeJSON(w, http.StatusOK, history)
}

// captureRequest is the optional body of the capture endpoints
type captureRequest struct {
	App      string `json:"app,omitempty"`
	SavePath string `json:"save_path,omitempty"`
	Folder   string `json:"folder,omitempty"`
}

// decodeCaptureRequest tolerates an empty body; all fields are
// optional except where the handler says otherwise.
func decodeCaptureRequest(r *http.Request) captureRequest {
	var req captureRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	return req
}

// handleCapture adapts a capture operation into a handler. A running
// selection session maps to 409 so clients can retry later.
func (s *Server) handleCapture(op func(screenshot.Options) (string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := decodeCaptureRequest(r)
		path, err := op(screenshot.Options{SavePath: req.SavePath, Folder: req.Folder})
		if err != nil {
			switch {
			case errors.Is(err, selector.ErrSelectionInProgress):
				s.writeError(w, http.StatusConflict, err)
			case errors.Is(err, selector.ErrCanceled):
				s.writeJSON(w, http.StatusOK, map[string]bool{"canceled": true})
			case errors.Is(err, window.ErrNoActiveWindow):
				s.writeError(w, http.StatusNotFound, err)
			default:
				s.writeError(w, http.StatusInternalServerError, err)
			}
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{"path": path})
	}
}

func (s *Server) handleCaptureApp(w http.ResponseWriter, r *http.Request) {
	req := decodeCaptureRequest(r)
	if req.App == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("request must name an app"))
		return
	}

	path, err := s.captures.CaptureApp(req.App, screenshot.Options{SavePath: req.SavePath, Folder: req.Folder})
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"path": path})
}

// handleWindowStream upgrades to WebSocket and forwards foreground
// window changes until the client disconnects.
func (s *Server) handleWindowStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	updates := make(chan *window.Info, 16)
	unsubscribe := s.windows.AddUpdateCallback(func(info *window.Info) {
		select {
		case updates <- info:
		default: // drop rather than block the poll loop
		}
	})
	defer unsubscribe()

	// reader goroutine notices client disconnects
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if info, err := s.windows.CurrentApp(true); err == nil {
		if err := conn.WriteJSON(info); err != nil {
			return
		}
	}

	for {
		select {
		case <-closed:
			return
		case info := <-updates:
			if err := conn.WriteJSON(info); err != nil {
				return
			}
		}
	}
}
