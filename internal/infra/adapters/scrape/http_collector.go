package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"event-keyword-monitor/internal/domain/ports/adapter"

	"github.com/rs/zerolog"
)

var _ adapter.DataCollector = (*HTTPCollector)(nil)

// HTTPCollector pulls the current event batch from the external scraper
// service. The scraping itself is that service's concern; here it is an
// opaque JSON endpoint.
type HTTPCollector struct {
	baseURL string
	client  *http.Client
	log     *zerolog.Logger
}

func NewHTTPCollector(baseURL string, timeout time.Duration, logger *zerolog.Logger) *HTTPCollector {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	compLog := logger.With().Str("component", "HTTPCollector").Logger()
	return &HTTPCollector{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		log:     &compLog,
	}
}

type eventsResponse struct {
	Events []struct {
		Title    string  `json:"title"`
		StartsOn string  `json:"starts_on"`
		EndsOn   *string `json:"ends_on"`
	} `json:"events"`
}

func (c *HTTPCollector) Fetch(ctx context.Context) ([]adapter.CollectedEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/events/current", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("collector request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("collector responded %d", resp.StatusCode)
	}

	var body eventsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("collector decode: %w", err)
	}

	out := make([]adapter.CollectedEvent, 0, len(body.Events))
	for _, ev := range body.Events {
		starts, err := time.Parse("2006-01-02", ev.StartsOn)
		if err != nil {
			c.log.Warn().Str("title", ev.Title).Str("starts_on", ev.StartsOn).Msg("skipping event with malformed start date")
			continue
		}
		collected := adapter.CollectedEvent{Title: ev.Title, StartsOn: starts}
		if ev.EndsOn != nil {
			if ends, err := time.Parse("2006-01-02", *ev.EndsOn); err == nil {
				collected.EndsOn = &ends
			}
		}
		out = append(out, collected)
	}
	return out, nil
}
