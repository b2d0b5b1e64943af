package api

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"yupan/internal/config"
	"yupan/internal/domain"
	"yupan/internal/engine"
	"yupan/internal/indicator"
	"yupan/internal/loader"
	"yupan/internal/metrics"
	"yupan/internal/store"
	"yupan/internal/strategy"
	"yupan/internal/sweep"
	"yupan/internal/util"
)

type fn = strategy.PredicateFunc

// testMode buys on index 22 and sells after three sessions.
func testMode() *strategy.Mode {
	return &strategy.Mode{
		Name: "test",
		Buy: strategy.NewRegistry("test/buy", map[string]strategy.Predicate{
			"1": fn(func(r *indicator.Row, _ *strategy.RunState) (bool, string) { return r.Index == 22, "index 22" }),
		}),
		Sell: strategy.NewRegistry("test/sell", map[string]strategy.Predicate{
			"1": fn(func(_ *indicator.Row, st *strategy.RunState) (bool, string) { return st.DaysHeld >= 3, "three days" }),
		}),
		Policy: strategy.Policy{DefaultBuy: "1", DefaultSell: "1"},
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	ctx := context.Background()
	ps := store.NewParquetStore(dir)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]domain.Bar, 30)
	for i := range bars {
		c := 10 + float64(i)
		bars[i] = domain.Bar{Symbol: "600000.SH", Timestamp: start.AddDate(0, 0, i),
			Open: c - 0.5, High: c + 0.5, Low: c - 1, Close: c, Volume: 1000, Amount: 1e4}
	}
	if err := ps.WriteBars(ctx, domain.MarketCN, domain.IntervalDaily, bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}
	info := domain.StockInfo{Symbol: "600000.SH", Name: "Pudong", Shares: 1e9, ChangeDate: start}
	if err := ps.WriteInfo(ctx, domain.MarketCN, []domain.StockInfo{info}); err != nil {
		t.Fatalf("WriteInfo: %v", err)
	}

	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Strategy.DefaultMode = "test"
	ld := loader.New(ps, ps, domain.MarketCN, util.Discard())
	runner := engine.NewRunner(cfg, strategy.NewCatalog(testMode()), ld, nil, util.Discard())
	m := metrics.New(nil)
	sw := sweep.New(runner, sweep.Options{Bars: ps, Market: domain.MarketCN, Metrics: m}, util.Discard())
	return NewServer(cfg, runner, sw, m, util.Discard())
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndModes(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := do(t, h, http.MethodGet, "/healthz", "")
	var health HealthResponse
	if rec.Code != http.StatusOK || json.Unmarshal(rec.Body.Bytes(), &health) != nil || health.Status != "ok" {
		t.Errorf("GET /healthz = %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodGet, "/api/modes", "")
	var modes ModesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &modes); err != nil {
		t.Fatalf("decoding modes: %v", err)
	}
	if modes.Default != "test" || len(modes.Modes) != 1 {
		t.Fatalf("modes = %+v", modes)
	}
	if got := modes.Modes[0]; got.Name != "test" || len(got.Buy) != 1 || got.DefaultSell != "1" {
		t.Errorf("mode = %+v", got)
	}

	rec = do(t, h, http.MethodOptions, "/api/backtest", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("OPTIONS status = %d, want 204", rec.Code)
	}
}

func TestBacktestHandler(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := do(t, h, http.MethodPost, "/api/backtest", `{"symbol":"600000.SH"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var rep engine.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &rep); err != nil {
		t.Fatalf("decoding report: %v", err)
	}
	if rep.Mode != "test" || len(rep.Trades) != 2 || rep.Summary.Operations != 2 {
		t.Errorf("report = %+v", rep)
	}

	tests := []struct {
		name, body string
		want       int
	}{
		{"missing symbol", `{}`, http.StatusBadRequest},
		{"bad json", `{`, http.StatusBadRequest},
		{"unknown field", `{"symbol":"600000.SH","bogus":1}`, http.StatusBadRequest},
		{"unknown mode", `{"symbol":"600000.SH","mode":"nope"}`, http.StatusBadRequest},
		{"bad execution", `{"symbol":"600000.SH","execution":"nextopen"}`, http.StatusBadRequest},
		{"below floor", `{"symbol":"600000.SH","condition":"50000000000"}`, http.StatusUnprocessableEntity},
		{"missing symbol data", `{"symbol":"000001.SZ"}`, http.StatusNotFound},
		{"missing target date", `{"symbol":"600000.SH","target_date":"2023-06-01"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/backtest", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestPredictHandler(t *testing.T) {
	h := newTestServer(t).Handler()

	body := `{"request":{"symbol":"600000.SH","operate":"buy","target_date":"2024-01-23"}}`
	rec := do(t, h, http.MethodPost, "/api/predict", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var rep sweep.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &rep); err != nil {
		t.Fatalf("decoding sweep report: %v", err)
	}
	if len(rep.Recommendations) != 1 || rep.Recommendations[0].Close != 32 {
		t.Errorf("recommendations = %+v", rep.Recommendations)
	}

	if rec := do(t, h, http.MethodPost, "/api/predict", `{"request":{"operate":"buy"}}`); rec.Code != http.StatusBadRequest {
		t.Errorf("no selector: status = %d, want 400", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/api/predict", `{"selector":"600000.SH","request":{"operate":"hold"}}`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad operate: status = %d, want 400", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/api/predict", `{"selector":"600000.SH","request":{"execution":"nextopen"}}`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad execution: status = %d, want 400", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "yupan_recommendations_total") {
		t.Errorf("GET /metrics = %d, missing yupan_recommendations_total", rec.Code)
	}
}

func TestServeAndShutdown(t *testing.T) {
	s := newTestServer(t)
	httpLn, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	grpcLn, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, httpLn, grpcLn) }()

	resp, err := http.Get("http://" + httpLn.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	conn, err := grpc.NewClient(grpcLn.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("grpc client: %v", err)
	}
	cctx, ccancel := context.WithTimeout(ctx, 5*time.Second)
	defer ccancel()
	hr, err := healthpb.NewHealthClient(conn).Check(cctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatalf("health check: %v", err)
	}
	if hr.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("health status = %v, want SERVING", hr.GetStatus())
	}

	conn.Close()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
