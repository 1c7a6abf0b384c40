// Package httpapi serves the tokenomics snapshot over HTTP and WebSocket.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tokenomics-api/internal/domain"
	"tokenomics-api/internal/observability"
	"tokenomics-api/internal/storage"
	"tokenomics-api/internal/tokenomics"
)

// History limits for /api/tokenomics/history.
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// Window limits for /api/tokenomics/market-points.
const (
	DefaultMarketPointWindow = 24 * time.Hour
	MaxMarketPointWindow     = 7 * 24 * time.Hour
)

// SnapshotProvider returns the current snapshot. It must never fail.
type SnapshotProvider interface {
	GetTokenomicsSnapshot(ctx context.Context) *domain.Snapshot
}

// HistoryReader reads recorded snapshots and market points.
type HistoryReader interface {
	// Recent lists recorded snapshots, newest first.
	Recent(ctx context.Context, limit int) ([]*domain.SnapshotRecord, error)
	// Get returns one recorded snapshot or storage.ErrNotFound.
	Get(ctx context.Context, id string) (*domain.SnapshotRecord, error)
	// MarketPoints lists samples within [start, end] milliseconds, oldest first.
	MarketPoints(ctx context.Context, start, end int64) ([]*domain.MarketPoint, error)
}

// Config holds the server dependencies.
type Config struct {
	Snapshots    SnapshotProvider
	History      HistoryReader // optional
	PushInterval time.Duration
	Logger       zerolog.Logger
	Now          func() time.Time // defaults to time.Now
}

// Server routes the public API.
type Server struct {
	cfg     Config
	mux     *http.ServeMux
	handler http.Handler

	// mu orders stream registration against Close.
	mu      sync.Mutex
	closed  bool
	done    chan struct{}
	streams sync.WaitGroup
}

// New creates a Server with all routes and middleware installed.
func New(cfg Config) *Server {
	if cfg.PushInterval <= 0 {
		cfg.PushInterval = 5 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.Logger = cfg.Logger.With().Str("component", "httpapi").Logger()

	s := &Server{
		cfg:  cfg,
		mux:  http.NewServeMux(),
		done: make(chan struct{}),
	}

	s.mux.HandleFunc("GET /api/tokenomics", s.handleTokenomics)
	s.mux.HandleFunc("GET /api/tokenomics/history", s.handleHistory)
	s.mux.HandleFunc("GET /api/tokenomics/history/{id}", s.handleHistoryRecord)
	s.mux.HandleFunc("GET /api/tokenomics/market-points", s.handleMarketPoints)
	s.mux.HandleFunc("GET /ws/tokenomics", s.handleStream)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /metrics", observability.Handler())

	s.handler = withRequestID(cfg.Logger,
		withAccessLog(
			withSecurityHeaders(
				withCORS(s.mux))))
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Close stops all push streams and waits for them to finish.
// http.Server.Shutdown does not track hijacked connections, so call this alongside it.
func (s *Server) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.done)
	}
	s.mu.Unlock()
	s.streams.Wait()
}

// trackStream registers a stream unless Close has begun.
func (s *Server) trackStream() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.streams.Add(1)
	return true
}

func (s *Server) handleTokenomics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.cfg.Snapshots.GetTokenomicsSnapshot(r.Context()))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// historyItem is the wire shape of one recorded snapshot.
type historyItem struct {
	ID         string           `json:"id"`
	Mint       string           `json:"mint"`
	RecordedAt time.Time        `json:"recordedAt"`
	Snapshot   *domain.Snapshot `json:"snapshot"`
}

type historyResponse struct {
	Items []historyItem `json:"items"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if s.cfg.History == nil {
		writeJSON(w, r, http.StatusServiceUnavailable, errorResponse{Error: tokenomics.ErrHistoryDisabled.Error()})
		return
	}

	records, err := s.cfg.History.Recent(r.Context(), limit)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, tokenomics.ErrHistoryDisabled) {
			status = http.StatusServiceUnavailable
		}
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("list snapshot history")
		writeJSON(w, r, status, errorResponse{Error: "history unavailable"})
		return
	}

	resp := historyResponse{Items: make([]historyItem, 0, len(records))}
	for _, rec := range records {
		snap := rec.Snapshot
		resp.Items = append(resp.Items, historyItem{
			ID:         rec.ID,
			Mint:       rec.Mint,
			RecordedAt: rec.RecordedAt,
			Snapshot:   &snap,
		})
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) handleHistoryRecord(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: "invalid id"})
		return
	}
	if s.cfg.History == nil {
		writeJSON(w, r, http.StatusServiceUnavailable, errorResponse{Error: tokenomics.ErrHistoryDisabled.Error()})
		return
	}

	rec, err := s.cfg.History.Get(r.Context(), id)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeJSON(w, r, http.StatusNotFound, errorResponse{Error: "snapshot not found"})
		return
	case errors.Is(err, tokenomics.ErrHistoryDisabled):
		writeJSON(w, r, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	case err != nil:
		zerolog.Ctx(r.Context()).Error().Err(err).Str("id", id).Msg("get snapshot record")
		writeJSON(w, r, http.StatusInternalServerError, errorResponse{Error: "history unavailable"})
		return
	}

	snap := rec.Snapshot
	writeJSON(w, r, http.StatusOK, historyItem{
		ID:         rec.ID,
		Mint:       rec.Mint,
		RecordedAt: rec.RecordedAt,
		Snapshot:   &snap,
	})
}

// marketPointItem is the wire shape of one market sample. Decimals are JSON numbers.
type marketPointItem struct {
	TimestampMs       int64       `json:"timestampMs"`
	Price             json.Number `json:"price"`
	CirculatingSupply json.Number `json:"circulatingSupply"`
	MarketCap         json.Number `json:"marketCap"`
}

type marketPointsResponse struct {
	Mint  string            `json:"mint,omitempty"`
	From  int64             `json:"from"`
	To    int64             `json:"to"`
	Items []marketPointItem `json:"items"`
}

func (s *Server) handleMarketPoints(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to, err := parseWindow(q.Get("from"), q.Get("to"), s.cfg.Now())
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if s.cfg.History == nil {
		writeJSON(w, r, http.StatusServiceUnavailable, errorResponse{Error: tokenomics.ErrHistoryDisabled.Error()})
		return
	}

	points, err := s.cfg.History.MarketPoints(r.Context(), from, to)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, tokenomics.ErrHistoryDisabled) {
			status = http.StatusServiceUnavailable
		}
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("list market points")
		writeJSON(w, r, status, errorResponse{Error: "market points unavailable"})
		return
	}

	resp := marketPointsResponse{From: from, To: to, Items: make([]marketPointItem, 0, len(points))}
	for _, p := range points {
		resp.Mint = p.Mint
		resp.Items = append(resp.Items, marketPointItem{
			TimestampMs:       p.TimestampMs,
			Price:             json.Number(p.Price.String()),
			CirculatingSupply: json.Number(p.CirculatingSupply.String()),
			MarketCap:         json.Number(p.MarketCap.String()),
		})
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// parseWindow reads from/to in Unix milliseconds. A missing to means now and a missing
// from means DefaultMarketPointWindow before to. The window may not exceed MaxMarketPointWindow.
func parseWindow(rawFrom, rawTo string, now time.Time) (int64, int64, error) {
	parse := func(name, raw string, def int64) (int64, error) {
		if raw == "" {
			return def, nil
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%s must be a non-negative unix timestamp in milliseconds", name)
		}
		return n, nil
	}

	to, err := parse("to", rawTo, now.UnixMilli())
	if err != nil {
		return 0, 0, err
	}
	from, err := parse("from", rawFrom, max(to-DefaultMarketPointWindow.Milliseconds(), 0))
	if err != nil {
		return 0, 0, err
	}
	if from > to {
		return 0, 0, errors.New("from must not be after to")
	}
	if to-from > MaxMarketPointWindow.Milliseconds() {
		return 0, 0, fmt.Errorf("window must not exceed %s", MaxMarketPointWindow)
	}
	return from, to, nil
}

// parseLimit accepts an empty value (default) or an integer in [1, MaxHistoryLimit].
func parseLimit(raw string) (int, error) {
	if raw == "" {
		return DefaultHistoryLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > MaxHistoryLimit {
		return 0, errors.New("limit must be an integer between 1 and " + strconv.Itoa(MaxHistoryLimit))
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("write response")
	}
}
