package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/adamantos/aide/internal/orchestrator"
)

// Collector handles data_collection jobs: it pulls current quotes for the
// requested symbols from the market-data collaborator service.
type Collector struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewCollector creates a data collection handler.
func NewCollector(baseURL string, log zerolog.Logger) *Collector {
	return &Collector{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		log:     log.With().Str("handler", "data_collection").Logger(),
	}
}

// Handle fetches a quote per symbol, reporting per-symbol progress.
// Individual symbol failures fail the whole job so the retry policy can
// re-run it; partial results are not stored.
func (c *Collector) Handle(ctx context.Context, job *orchestrator.Job) (map[string]interface{}, error) {
	symbols := stringSlice(job.Payload["symbols"])
	if len(symbols) == 0 {
		return nil, fmt.Errorf("payload has no symbols to collect")
	}

	quotes := make(map[string]interface{}, len(symbols))
	for i, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		quote, err := c.fetchQuote(ctx, symbol)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch quote for %s: %w", symbol, err)
		}
		quotes[symbol] = quote

		job.ReportProgress((i+1)*100/len(symbols), fmt.Sprintf("collected %s", symbol))
	}

	c.log.Debug().Int("symbols", len(symbols)).Msg("Collection finished")
	return map[string]interface{}{
		"quotes":    quotes,
		"collected": len(symbols),
	}, nil
}

func (c *Collector) fetchQuote(ctx context.Context, symbol string) (map[string]interface{}, error) {
	endpoint := fmt.Sprintf("%s/api/quotes?symbol=%s", c.baseURL, url.QueryEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("market-data service returned status %d", resp.StatusCode)
	}

	var quote map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return nil, fmt.Errorf("failed to decode quote: %w", err)
	}
	return quote, nil
}
