package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api/geocode/json"

// ErrNoResults is returned when the address resolves to nothing.
var ErrNoResults = errors.New("no results found")

// Result is a resolved address.
type Result struct {
	Lat              float64
	Lng              float64
	FormattedAddress string
}

// Client resolves free-text addresses through the Google Geocoding API.
type Client struct {
	http    *http.Client
	apiKey  string
	baseURL string
}

func NewClient(apiKey string) *Client {
	return &Client{
		http:    &http.Client{Timeout: 10 * time.Second},
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
	}
}

type geocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Geocode resolves an address into coordinates and a formatted address.
func (c *Client) Geocode(ctx context.Context, address string) (Result, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Result{}, errors.New("address must be a non-empty string")
	}

	q := url.Values{}
	q.Set("address", address)
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return Result{}, fmt.Errorf("building request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("geocoding returned status %d", resp.StatusCode)
	}

	var payload geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Result{}, fmt.Errorf("decoding geocoding response: %w", err)
	}

	switch {
	case payload.Status == "OK" && len(payload.Results) > 0:
		first := payload.Results[0]
		return Result{
			Lat:              first.Geometry.Location.Lat,
			Lng:              first.Geometry.Location.Lng,
			FormattedAddress: first.FormattedAddress,
		}, nil
	case payload.Status == "ZERO_RESULTS":
		return Result{}, fmt.Errorf("%w for %q", ErrNoResults, address)
	default:
		reason := payload.ErrorMessage
		if reason == "" {
			reason = fmt.Sprintf("API returned status %s", payload.Status)
		}
		return Result{}, fmt.Errorf("geocoding %q: %s", address, reason)
	}
}
