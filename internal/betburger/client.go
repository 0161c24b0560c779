package betburger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/oskarlindgren/valuebets/internal/pkg/config"
	"github.com/oskarlindgren/valuebets/internal/pkg/models"
)

const searchPath = "/api/v1/valuebets/bot_pro_search"

// ErrUpstream marks any failure talking to the valuebets API: network
// errors, non-2xx responses and malformed JSON all wrap it.
var ErrUpstream = errors.New("betburger upstream error")

// Client fetches value bets from the aggregation API and normalizes them
// into BetRecords.
type Client struct {
	baseURL       string
	entityIDsURL  string
	token         string
	filterID      string
	perPage       int
	minOddsFactor float64
	urlTemplates  map[int]string

	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker

	now func() time.Time
}

// NewClient creates an API client from config.
func NewClient(cfg *config.BetBurgerConfig, minOddsFactor float64, urlTemplates map[int]string) *Client {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "BetBurgerAPI",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})

	return &Client{
		baseURL:       strings.TrimSuffix(cfg.BaseURL, "/"),
		entityIDsURL:  cfg.EntityIDsURL,
		token:         cfg.Token,
		filterID:      cfg.FilterID,
		perPage:       cfg.PerPage,
		minOddsFactor: minOddsFactor,
		urlTemplates:  urlTemplates,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		breaker: breaker,
		now:     time.Now,
	}
}

// FetchValueBets performs one retrieval: it calls the search endpoint,
// joins outcomes with their market-consensus rows, and enriches the result
// into BetRecords. An empty upstream result set yields an empty slice, not
// an error.
func (c *Client) FetchValueBets(ctx context.Context) ([]models.BetRecord, error) {
	resp, err := c.search(ctx)
	if err != nil {
		return nil, err
	}

	if len(resp.Bets) == 0 {
		return []models.BetRecord{}, nil
	}

	// The outcome-name mapping degrades to "Unknown" on any failure, it
	// never blocks a retrieval.
	mapping := c.fetchEntityMapping(ctx)

	return buildRecords(resp.Bets, resp.Source.ValueBets, mapping, c.urlTemplates, c.minOddsFactor, c.now().UTC()), nil
}

func (c *Client) search(ctx context.Context) (*searchResponse, error) {
	form := url.Values{}
	form.Set("access_token", c.token)
	form.Set("search_filter[]", c.filterID)
	form.Set("per_page", strconv.Itoa(c.perPage))

	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+searchPath, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
		}

		var searchResp searchResponse
		if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		return &searchResp, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	return result.(*searchResponse), nil
}
