package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// GammaClient is the REST client for the Polymarket Gamma API, which
// groups markets into events.
type GammaClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewGammaClient creates a new Gamma API client.
//
// baseURL is the Gamma API root, e.g. "https://gamma-api.polymarket.com".
func NewGammaClient(baseURL string) *GammaClient {
	return &GammaClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// EventsQuery selects a page of events.
type EventsQuery struct {
	Limit     int
	Offset    int
	Order     string
	Ascending bool
}

// EventURL is the API address of a single event, used in operator output.
func (g *GammaClient) EventURL(id uint64) string {
	return g.baseURL + "/events/" + strconv.FormatUint(id, 10)
}

// GetEvents returns a page of events.
func (g *GammaClient) GetEvents(ctx context.Context, q EventsQuery) ([]Event, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(q.Limit))
	params.Set("offset", strconv.Itoa(q.Offset))
	if q.Order != "" {
		params.Set("order", q.Order)
		params.Set("ascending", strconv.FormatBool(q.Ascending))
	}

	events, err := g.getEvents(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("polymarket/gamma: get events offset=%d: %w", q.Offset, err)
	}
	return events, nil
}

// GetEventsByID returns the events with the given ids in a single request.
// Unknown ids are silently absent from the result.
func (g *GammaClient) GetEventsByID(ctx context.Context, ids []uint64) ([]Event, error) {
	params := url.Values{}
	for _, id := range ids {
		params.Add("id", strconv.FormatUint(id, 10))
	}
	params.Set("limit", strconv.Itoa(len(ids)))

	events, err := g.getEvents(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("polymarket/gamma: get %d events by id: %w", len(ids), err)
	}
	return events, nil
}

func (g *GammaClient) getEvents(ctx context.Context, params url.Values) ([]Event, error) {
	body, err := g.doGet(ctx, "/events?"+params.Encode())
	if err != nil {
		return nil, err
	}
	var events []Event
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	return events, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doGet sends an unauthenticated GET request to the Gamma API.
func (g *GammaClient) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	return body, nil
}
