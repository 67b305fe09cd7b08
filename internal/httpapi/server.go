// Package httpapi serves the admin HTTP API of a meta participant: a
// read-only view of the active slot table plus a manual rebalance trigger.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arloliu/slotmap/internal/logging"
	"github.com/arloliu/slotmap/internal/rebalance"
	"github.com/arloliu/slotmap/types"
)

const (
	contentTypeJSON        = "application/json"
	defaultShutdownTimeout = 5 * time.Second
)

type iCoordinator interface {
	NodeID() string
	IsLeader() bool
	CurrentLeader(ctx context.Context) (string, error)
	Table() *types.SlotTable
	Slot(id int) (types.Slot, error)
	Route(key string) (types.Slot, error)
	Rebalance(ctx context.Context, kind rebalance.Kind) (rebalance.Outcome, error)
}

// Option configures a Server.
type Option func(*Server)

// WithGatherer serves /metrics from g instead of prometheus.DefaultGatherer.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithLogger sets the logger.
func WithLogger(logger types.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Server is the admin HTTP server.
type Server struct {
	coord    iCoordinator
	gatherer prometheus.Gatherer
	logger   types.Logger

	mu         sync.Mutex
	httpServer *http.Server
	addr       string
}

// NewServer creates a server over coord.
func NewServer(coord iCoordinator, opts ...Option) *Server {
	s := &Server{
		coord:    coord,
		gatherer: prometheus.DefaultGatherer,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/slots", s.handleTable)
		r.Get("/slots/{id}", s.handleSlot)
		r.Get("/route/{key}", s.handleRoute)
		r.Get("/leader", s.handleLeader)
		r.Post("/rebalance", s.handleRebalance)
	})

	return r
}

// Start listens on addr and serves in the background.
//
// Returns:
//   - error: Listen error
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: time.Second,
	}

	s.mu.Lock()
	s.httpServer = srv
	s.addr = ln.Addr().String()
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("admin HTTP server error", "error", err)
		}
	}()

	s.logger.Info("admin HTTP server started", "addr", s.addr)

	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.addr
}

// Stop shuts the server down, waiting up to five seconds for requests.
func (s *Server) Stop() error {
	s.mu.Lock()
	srv := s.httpServer
	s.httpServer = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("error encoding response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.writeJSON(w, statusFor(err), NewErrorResponse(err.Error()))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrNoTable), errors.Is(err, types.ErrNotStarted):
		return http.StatusServiceUnavailable
	case errors.Is(err, types.ErrSlotNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrUnknownTaskKind):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrInvalidConfiguration), errors.Is(err, types.ErrCommitRejected):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, NewOKResponse())
}

func (s *Server) handleTable(w http.ResponseWriter, _ *http.Request) {
	table := s.coord.Table()
	if table == nil {
		s.writeError(w, types.ErrNoTable)
		return
	}

	s.writeJSON(w, http.StatusOK, newTableResponse(table))
}

func (s *Server) handleSlot(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, NewErrorResponse("slot id must be an integer"))
		return
	}

	slot, err := s.coord.Slot(id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, SlotResponse{Status: StatusSuccess, Slot: slot})
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if key == "" {
		s.writeJSON(w, http.StatusBadRequest, NewErrorResponse("missing key"))
		return
	}

	slot, err := s.coord.Route(key)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, RouteResponse{Status: StatusSuccess, Key: key, Slot: slot})
}

func (s *Server) handleLeader(w http.ResponseWriter, r *http.Request) {
	leader, err := s.coord.CurrentLeader(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, LeaderResponse{
		Status:   StatusSuccess,
		Leader:   leader,
		NodeID:   s.coord.NodeID(),
		IsLeader: s.coord.IsLeader(),
	})
}

func (s *Server) handleRebalance(w http.ResponseWriter, r *http.Request) {
	kind := rebalance.KindIncremental
	if raw := r.URL.Query().Get("kind"); raw != "" {
		parsed, err := rebalance.ParseKind(raw)
		if err != nil {
			s.writeError(w, err)
			return
		}
		kind = parsed
	}

	outcome, err := s.coord.Rebalance(r.Context(), kind)
	resp := RebalanceResponse{
		Status:  StatusSuccess,
		Kind:    kind.String(),
		Outcome: outcome.String(),
	}
	if table := s.coord.Table(); table != nil {
		resp.Epoch = table.Epoch
	}

	if err != nil {
		s.logger.Warn("manual rebalance failed", "kind", kind.String(), "error", err)
		resp.Status = StatusError
		resp.Error = err.Error()
		s.writeJSON(w, statusFor(err), resp)

		return
	}

	status := http.StatusOK
	if outcome == rebalance.OutcomeSkippedNotLeader {
		status = http.StatusConflict
	}
	s.writeJSON(w, status, resp)
}
