// Package api provides the HTTP and WebSocket endpoints of the rate oracle.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aetherpay/rateoracle/pkg/logging"
	"github.com/aetherpay/rateoracle/pkg/metrics"
	"github.com/aetherpay/rateoracle/pkg/oracle/aggregator"
	"github.com/aetherpay/rateoracle/pkg/oracle/sources"
	"github.com/aetherpay/rateoracle/pkg/version"
)

// defaultNotionalUSD is assumed when a request omits the amount parameter.
var defaultNotionalUSD = decimal.NewFromInt(1000)

// Server represents the HTTP API server.
type Server struct {
	addr     string
	engine   *aggregator.Engine
	server   *http.Server
	logger   *logging.Logger
	wsServer *WebSocketServer // Optional WebSocket server for streaming
}

// NewServer creates a new HTTP API server.
func NewServer(addr string, engine *aggregator.Engine, logger *logging.Logger) *Server {
	return &Server{
		addr:   addr,
		engine: engine,
		logger: logger,
	}
}

// SetWebSocketServer sets the WebSocket server for streaming updates.
func (s *Server) SetWebSocketServer(ws *WebSocketServer) {
	s.wsServer = ws
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/v1/price", s.handlePrice)
	mux.HandleFunc("/v1/settlement-path", s.handleSettlementPath)
	mux.HandleFunc("/v1/settlement-paths/compare", s.handleComparePaths)

	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("Starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		s.logger.Info("Stopping HTTP server")
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleHealth handles the /health endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	start := time.Now()
	defer func() {
		metrics.RecordHTTPRequest("/health", "200", time.Since(start))
	}()

	s.sendJSON(w, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

// handlePrice handles /v1/price?pair=USDC/EUR&amount=1000.
func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "200"
	defer func() {
		metrics.RecordHTTPRequest("/v1/price", status, time.Since(start))
	}()

	pair, notional, err := parsePairAndAmount(r)
	if err != nil {
		status = "400"
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	agg, err := s.engine.GetAggregatedPrice(r.Context(), pair, notional)
	if err != nil {
		if errors.Is(err, aggregator.ErrAllSourcesFailed) {
			status = "503"
			s.logger.Error("Aggregation failed", "pair", pair, "error", err.Error())
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		status = "400"
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if s.wsServer != nil {
		s.wsServer.SendUpdate(agg)
	}

	s.sendJSON(w, agg)
}

// handleSettlementPath handles /v1/settlement-path?pair=&amount=&confidence=.
func (s *Server) handleSettlementPath(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "200"
	defer func() {
		metrics.RecordHTTPRequest("/v1/settlement-path", status, time.Since(start))
	}()

	pair, notional, err := parsePairAndAmount(r)
	if err != nil {
		status = "400"
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	confidence, err := parseConfidence(r)
	if err != nil {
		status = "400"
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	path, err := s.engine.GetSettlementPath(r.Context(), pair, notional, confidence)
	if err != nil {
		status = "400"
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	metrics.RecordSettlementSelection(path.Protocol, path.IsRealtime)
	s.sendJSON(w, path)
}

// handleComparePaths handles /v1/settlement-paths/compare?pair=&amount=&confidence=.
func (s *Server) handleComparePaths(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "200"
	defer func() {
		metrics.RecordHTTPRequest("/v1/settlement-paths/compare", status, time.Since(start))
	}()

	pair, notional, err := parsePairAndAmount(r)
	if err != nil {
		status = "400"
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	confidence, err := parseConfidence(r)
	if err != nil {
		status = "400"
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.sendJSON(w, s.engine.ComparePaths(pair, notional, confidence))
}

// parsePairAndAmount extracts and validates the pair and amount parameters.
func parsePairAndAmount(r *http.Request) (string, decimal.Decimal, error) {
	pair := r.URL.Query().Get("pair")
	if pair == "" {
		return "", decimal.Zero, errors.New("missing required parameter: pair")
	}
	if err := sources.ValidateSymbolFormat(pair); err != nil {
		return "", decimal.Zero, fmt.Errorf("invalid pair %q: %w", pair, err)
	}

	notional := defaultNotionalUSD
	if raw := r.URL.Query().Get("amount"); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil {
			return "", decimal.Zero, fmt.Errorf("invalid amount %q", raw)
		}
		if parsed.Sign() <= 0 {
			return "", decimal.Zero, fmt.Errorf("amount must be positive, got %s", parsed)
		}
		notional = parsed
	}

	return pair, notional, nil
}

// parseConfidence extracts the optional confidence parameter in (0, 1].
func parseConfidence(r *http.Request) (float64, error) {
	raw := r.URL.Query().Get("confidence")
	if raw == "" {
		return 0, nil
	}
	confidence, err := strconv.ParseFloat(raw, 64)
	if err != nil || confidence <= 0 || confidence > 1 {
		return 0, fmt.Errorf("invalid confidence %q, expected a value in (0, 1]", raw)
	}
	return confidence, nil
}

// sendJSON sends a JSON response.
func (s *Server) sendJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response", "error", err)
	}
}
