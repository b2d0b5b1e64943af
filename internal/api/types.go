package api

import "yupan/internal/engine"

// HealthResponse is returned by GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
	Market string `json:"market"`
}

// ModeJSON describes one strategy mode for GET /api/modes.
type ModeJSON struct {
	Name           string   `json:"name"`
	Description    string   `json:"description,omitempty"`
	Execution      string   `json:"execution"`
	Composition    string   `json:"composition"`
	OpenPosition   string   `json:"open_position"`
	MarketCapFloor float64  `json:"market_cap_floor,omitempty"`
	DefaultBuy     string   `json:"default_buy"`
	DefaultSell    string   `json:"default_sell"`
	Buy            []string `json:"buy"`
	Sell           []string `json:"sell"`
}

// ModesResponse is returned by GET /api/modes.
type ModesResponse struct {
	Default string     `json:"default"`
	Modes   []ModeJSON `json:"modes"`
}

// PredictRequest is the body of POST /api/predict. Either Selector or
// Request.Symbol names the symbols.
type PredictRequest struct {
	Selector string         `json:"selector,omitempty"`
	Request  engine.Request `json:"request"`
	NoCache  bool           `json:"no_cache,omitempty"`
}
