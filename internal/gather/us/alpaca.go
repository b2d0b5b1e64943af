package us

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"golang.org/x/time/rate"

	"yupan/internal/domain"
	"yupan/internal/gather"
)

// ---------------------------------------------------------------------------
// Compile-time interface check
// ---------------------------------------------------------------------------

var _ gather.Fetcher = (*AlpacaFetcher)(nil)

// barsClient is the subset of the Alpaca market-data client the fetcher
// uses.
type barsClient interface {
	GetMultiBars(symbols []string, req marketdata.GetBarsRequest) (map[string][]marketdata.Bar, error)
}

// AlpacaFetcher fetches daily, weekly or monthly bars for US equities via
// the Alpaca market-data API. Requests are paced by a token bucket.
type AlpacaFetcher struct {
	client   barsClient
	limiter  *rate.Limiter
	feed     string
	interval domain.Interval
	log      *slog.Logger
}

// NewAlpacaFetcher creates an AlpacaFetcher. ratePerMin <= 0 disables
// pacing.
func NewAlpacaFetcher(apiKey, apiSecret, dataURL, feed string, interval domain.Interval, ratePerMin int, logger *slog.Logger) *AlpacaFetcher {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	return newAlpacaFetcher(marketdata.NewClient(opts), feed, interval, ratePerMin, logger)
}

func newAlpacaFetcher(client barsClient, feed string, interval domain.Interval, ratePerMin int, logger *slog.Logger) *AlpacaFetcher {
	limit := rate.Inf
	if ratePerMin > 0 {
		limit = rate.Every(time.Minute / time.Duration(ratePerMin))
	}
	if feed == "" {
		feed = "sip"
	}
	if interval == "" {
		interval = domain.IntervalDaily
	}
	return &AlpacaFetcher{
		client:   client,
		limiter:  rate.NewLimiter(limit, 1),
		feed:     feed,
		interval: interval,
		log:      logger.With("fetcher", "alpaca"),
	}
}

// Name returns the fetcher identifier.
func (f *AlpacaFetcher) Name() string { return "us-alpaca" }

// Fetch fetches bars for multiple symbols in a single API call. Results are
// sorted by symbol and then by session, with PreClose and ChangePct
// derived from the previous session in the batch.
func (f *AlpacaFetcher) Fetch(ctx context.Context, symbols []string, r gather.DateRange) ([]domain.Bar, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	multiBars, err := f.client.GetMultiBars(symbols, marketdata.GetBarsRequest{
		TimeFrame: timeFrame(f.interval),
		Start:     r.Start,
		End:       r.End,
		Feed:      marketdata.Feed(f.feed),
	})
	if err != nil {
		return nil, fmt.Errorf("GetMultiBars: %w", err)
	}

	keys := make([]string, 0, len(multiBars))
	for symbol := range multiBars {
		keys = append(keys, symbol)
	}
	sort.Strings(keys)

	var bars []domain.Bar
	for _, symbol := range keys {
		for _, ab := range multiBars[symbol] {
			bars = append(bars, domain.Bar{
				Symbol:    strings.ToUpper(symbol),
				Timestamp: ab.Timestamp,
				Open:      ab.Open,
				High:      ab.High,
				Low:       ab.Low,
				Close:     ab.Close,
				Volume:    float64(ab.Volume),
				Amount:    ab.VWAP * float64(ab.Volume),
			})
		}
	}
	gather.FillDerived(bars)
	f.log.Debug("fetched", "symbols", len(symbols), "hits", len(keys), "bars", len(bars))
	return bars, nil
}

func timeFrame(i domain.Interval) marketdata.TimeFrame {
	switch i {
	case domain.IntervalWeekly:
		return marketdata.OneWeek
	case domain.IntervalMonthly:
		return marketdata.OneMonth
	default:
		return marketdata.OneDay
	}
}
