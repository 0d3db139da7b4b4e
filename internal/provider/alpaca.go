package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"tdxtools/internal/domain"
	"tdxtools/internal/util"
)

// Compile-time interface check.
var _ Provider = (*AlpacaProvider)(nil)

// AlpacaProvider fetches daily bars from the Alpaca market-data API, with
// client-side rate limiting and retry on transient failures.
type AlpacaProvider struct {
	client      *marketdata.Client
	limiter     *util.RateLimiter
	maxAttempts int
	log         *slog.Logger
}

// NewAlpacaProvider creates an AlpacaProvider with the given credentials.
// dataURL may be empty to use the default endpoint.
func NewAlpacaProvider(apiKey, apiSecret, dataURL string, rateLimitPerMin, maxAttempts int) *AlpacaProvider {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	if rateLimitPerMin <= 0 {
		rateLimitPerMin = util.FetchPerMinute
	}
	if maxAttempts <= 0 {
		maxAttempts = util.FetchAttempts
	}

	return &AlpacaProvider{
		client:      marketdata.NewClient(opts),
		limiter:     util.NewRateLimiter(rateLimitPerMin),
		maxAttempts: maxAttempts,
		log:         slog.Default().With("provider", "alpaca"),
	}
}

// DailyBars fetches daily bars for the symbol within [start, end].
func (p *AlpacaProvider) DailyBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var alpacaBars []marketdata.Bar
	fetch := func() error {
		var err error
		alpacaBars, err = p.client.GetBars(strings.ToUpper(symbol), marketdata.GetBarsRequest{
			TimeFrame: marketdata.OneDay,
			Start:     start,
			End:       end,
			Feed:      "sip",
		})
		return err
	}
	if err := util.Retry(ctx, p.maxAttempts, util.FetchBaseDelay, fetch); err != nil {
		return nil, fmt.Errorf("GetBars %s: %w", symbol, err)
	}

	bars := make([]domain.Bar, 0, len(alpacaBars))
	for _, ab := range alpacaBars {
		bars = append(bars, domain.Bar{
			Symbol: strings.ToUpper(symbol),
			Date:   domain.Day(ab.Timestamp),
			Open:   ab.Open,
			High:   ab.High,
			Low:    ab.Low,
			Close:  ab.Close,
			Volume: int64(ab.Volume),
			Amount: ab.VWAP * float64(ab.Volume),
		})
	}
	p.log.Debug("fetched bars", "symbol", symbol, "count", len(bars))
	return bars, nil
}
