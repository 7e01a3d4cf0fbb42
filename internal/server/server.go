package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/simaofelgueirasJM/flipper/internal/logging"
	"github.com/simaofelgueirasJM/flipper/internal/model"
	"github.com/simaofelgueirasJM/flipper/internal/overlay"
	"github.com/simaofelgueirasJM/flipper/internal/store"
)

// TransactionStore is what the API needs from the capture store.
type TransactionStore interface {
	Get(ctx context.Context, id string) (*model.Transaction, error)
	List(ctx context.Context, opts store.ListOptions) ([]*model.Transaction, error)
	Clear(ctx context.Context) error
	DiffBodies(ctx context.Context, baseID, headID string) (*store.DiffResult, error)
}

// Server is the HTTP + WebSocket inspection API.
type Server struct {
	cfg      Config
	store    TransactionStore
	hub      *Hub
	overlays *overlay.DrawableCache
	router   chi.Router
	upgrader websocket.Upgrader
	logger   logging.Logger
}

// NewServer wires the routes. hub may be nil, in which case a private hub is
// created; register it as a reporter via Hub() to stream captures.
func NewServer(cfg Config, st TransactionStore, hub *Hub, logger logging.Logger) (*Server, error) {
	if st == nil {
		return nil, errors.New("server: nil transaction store")
	}
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = logging.NewStdoutLogger("server")
	}
	if hub == nil {
		hub = NewHub(logger, cfg.ClientQueueSize, cfg.WriteTimeout)
	}

	s := &Server{
		cfg:      cfg,
		store:    st,
		hub:      hub,
		overlays: overlay.NewDrawableCache(),
		router:   chi.NewRouter(),
		logger:   logger,
		upgrader: websocket.Upgrader{
			// The API is meant for local developer tools.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.routes()
	return s, nil
}

// Hub returns the websocket broadcaster.
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) routes() {
	r := s.router

	r.Use(s.corsMiddleware)

	r.Options("/requests", s.optionsHandler("GET, DELETE"))
	r.Options("/requests/{id}", s.optionsHandler("GET"))
	r.Options("/overlay", s.optionsHandler("POST"))

	r.Get("/health", s.handleHealth)

	r.Get("/requests", s.handleListRequests)
	r.Delete("/requests", s.handleClearRequests)
	r.Get("/requests/{id}", s.handleGetRequest)
	r.Get("/requests/{base}/diff/{head}", s.handleDiff)

	r.Post("/overlay", s.handleOverlay)

	r.Get("/ws/network", s.handleNetworkWS)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fields := []logging.Field{
		{Key: "method", Value: r.Method},
		{Key: "path", Value: r.URL.Path},
	}

	if q := r.URL.Query(); len(q) > 0 {
		fields = append(fields, logging.Field{Key: "query", Value: q})
	}

	if r.Body != nil && r.Method == http.MethodPost {
		bodyBytes, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.logger.Warn("request body too large", append(fields, logging.Field{Key: "limit", Value: tooLarge.Limit})...)
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		if err == nil {
			fields = append(fields, logging.Field{Key: "body_bytes", Value: len(bodyBytes)})
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}
	}

	s.logger.Debug("http_request", fields...)

	s.router.ServeHTTP(w, r)
}

// Close disconnects websocket clients.
func (s *Server) Close() {
	s.hub.Close()
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0, // websocket streams are long-lived
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrNoResponse):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

// --- HTTP handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"clients": s.hub.Clients(),
	})
}

func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	opts := store.ListOptions{
		Limit:  queryInt(r, "limit", store.DefaultListLimit),
		Host:   r.URL.Query().Get("host"),
		Method: r.URL.Query().Get("method"),
	}
	txs, err := s.store.List(r.Context(), opts)
	if err != nil {
		s.logger.Warn("listing transactions", logging.Err(err))
		writeError(w, statusFor(err), err.Error())
		return
	}
	if txs == nil {
		txs = []*model.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	tx, err := s.store.Get(r.Context(), id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("getting transaction", logging.Field{Key: "id", Value: id}, logging.Err(err))
		}
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleClearRequests(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Clear(r.Context()); err != nil {
		s.logger.Warn("clearing transactions", logging.Err(err))
		writeError(w, statusFor(err), err.Error())
		return
	}
	s.logger.Info("cleared transactions")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	base, head := chi.URLParam(r, "base"), chi.URLParam(r, "head")
	res, err := s.store.DiffBodies(r.Context(), base, head)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleOverlay(w http.ResponseWriter, r *http.Request) {
	var body OverlayRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if body.Width <= 0 || body.Height <= 0 || body.Width > s.cfg.MaxOverlaySize || body.Height > s.cfg.MaxOverlaySize {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("width and height must be in 1..%d", s.cfg.MaxOverlaySize))
		return
	}
	if body.Density <= 0 {
		body.Density = s.cfg.OverlayDensity
	}
	bounds := model.BoundsSet{Margin: body.Margin, Padding: body.Padding, Content: body.Content}

	if r.URL.Query().Get("format") == "json" {
		var rec overlay.RecordingSurface
		s.overlays.Do(body.Density, bounds, &rec)
		writeJSON(w, http.StatusOK, rec.Lines)
		return
	}

	surface := overlay.NewRasterSurface(body.Width, body.Height)
	s.overlays.Do(body.Density, bounds, surface)

	var buf bytes.Buffer
	if err := surface.EncodePNG(&buf); err != nil {
		s.logger.Error("encoding overlay", logging.Err(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handleNetworkWS streams captures. ?replay=N first sends the N most recent
// stored transactions, oldest first.
func (s *Server) handleNetworkWS(w http.ResponseWriter, r *http.Request) {
	var backlog []Message
	if n := queryInt(r, "replay", 0); n > 0 {
		txs, err := s.store.List(r.Context(), store.ListOptions{Limit: n})
		if err != nil {
			s.logger.Warn("loading replay backlog", logging.Err(err))
		}
		for i := len(txs) - 1; i >= 0; i-- {
			backlog = append(backlog, newRequestMessage(txs[i].Request))
			if txs[i].Response != nil {
				backlog = append(backlog, newResponseMessage(*txs[i].Response))
			}
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", logging.Err(err))
		return
	}
	s.hub.Serve(conn, backlog)
}
