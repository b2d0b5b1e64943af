package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"yupan/internal/domain"
	"yupan/internal/engine"
	"yupan/internal/strategy"
	"yupan/internal/sweep"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Handler returns an http.Handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/modes", s.handleModes)
	mux.HandleFunc("POST /api/backtest", s.handleBacktest)
	mux.HandleFunc("POST /api/predict", s.handlePredict)
	mux.Handle("GET /metrics", s.metrics.Handler())
	return corsMiddleware(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, HealthResponse{Status: "ok", Market: s.cfg.Storage.Market})
}

func (s *Server) handleModes(w http.ResponseWriter, r *http.Request) {
	catalog := s.runner.Catalog()
	resp := ModesResponse{Default: s.cfg.Strategy.DefaultMode}
	for _, name := range catalog.List() {
		m, err := catalog.Get(name)
		if err != nil {
			continue
		}
		resp.Modes = append(resp.Modes, ModeJSON{
			Name:           name,
			Description:    m.Description,
			Execution:      string(m.Policy.Execution),
			Composition:    string(m.Policy.Composition),
			OpenPosition:   string(m.Policy.OpenPosition),
			MarketCapFloor: m.Policy.MarketCapFloor,
			DefaultBuy:     m.Policy.DefaultBuy,
			DefaultSell:    m.Policy.DefaultSell,
			Buy:            m.Buy.List(),
			Sell:           m.Sell.List(),
		})
	}
	writeJSON(w, resp)
}

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	var req engine.Request
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}
	if _, err := strategy.ParseExecution(string(req.Execution)); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Operate = strategy.OperateBacktest

	rep, err := s.runner.Backtest(r.Context(), req)
	if err != nil {
		s.logger.Debug("backtest failed", "symbol", req.Symbol, "error", err)
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, rep)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var body PredictRequest
	if !decodeBody(w, r, &body) {
		return
	}
	selector := body.Selector
	if selector == "" {
		selector = body.Request.Symbol
	}
	if selector == "" {
		writeError(w, http.StatusBadRequest, "selector or request.symbol is required")
		return
	}
	if body.Request.Operate == "" {
		body.Request.Operate = strategy.OperateBuy
	}
	if _, err := strategy.ParseOperate(string(body.Request.Operate)); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := strategy.ParseExecution(string(body.Request.Execution)); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rep, err := s.sweeper.Run(r.Context(), sweep.Request{
		Selector: selector,
		Template: body.Request,
		NoCache:  body.NoCache,
	})
	if err != nil && rep == nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	if err != nil {
		s.logger.Warn("predict sweep interrupted", "selector", selector, "error", err)
	}
	writeJSON(w, rep)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return false
	}
	return true
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrDateNotFound), errors.Is(err, domain.ErrDataUnavailable):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrThresholdUnmet):
		return http.StatusUnprocessableEntity
	case errors.Is(err, strategy.ErrUnknownMode), errors.Is(err, strategy.ErrInvalidPolicy):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
