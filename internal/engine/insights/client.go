package insights

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"

	"github.com/mfigueredo/placegrid/internal/model"
)

const defaultBaseURL = "https://areainsights.googleapis.com/v1:computeInsights"

// Insight kinds accepted by the Area Insights API. Polygon-shaped queries
// only support the count insight; the client enforces that.
const (
	InsightCount  = "INSIGHT_COUNT"
	InsightPlaces = "INSIGHT_PLACES"
)

// ErrInvalidRequest is returned for requests the API could never serve,
// before anything goes on the wire.
var ErrInvalidRequest = errors.New("invalid insights request")

// APIError reports a failed Area Insights API call.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("area insights: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("area insights: status %d", e.StatusCode)
}

// Circle is a point-radius location filter.
type Circle struct {
	Center       orb.Point
	RadiusMeters float64
}

// Request describes one computeInsights call. Exactly one of Circle or
// Polygon must be set. A polygon forces the insight set to count-only,
// regardless of what was requested.
type Request struct {
	Insights []string
	Circle   *Circle
	Polygon  orb.Ring
	Filters  model.PlaceFilters
}

// Client calls the Google Area Insights API.
type Client struct {
	http    *http.Client
	apiKey  string
	baseURL string
}

func NewClient(apiKey string) *Client {
	return &Client{
		http:    &http.Client{Timeout: 15 * time.Second},
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
	}
}

// Wire format for the computeInsights endpoint.

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type wireCircle struct {
	LatLng latLng  `json:"latLng"`
	Radius float64 `json:"radius"`
}

type wirePolygon struct {
	Coordinates []latLng `json:"coordinates"`
}

type wireCustomArea struct {
	Polygon wirePolygon `json:"polygon"`
}

type wireLocationFilter struct {
	CustomArea *wireCustomArea `json:"customArea,omitempty"`
	Circle     *wireCircle     `json:"circle,omitempty"`
}

type wireTypeFilter struct {
	IncludedTypes []string `json:"includedTypes"`
	ExcludedTypes []string `json:"excludedTypes,omitempty"`
}

type wireRatingFilter struct {
	MinRating float64 `json:"minRating,omitempty"`
	MaxRating float64 `json:"maxRating,omitempty"`
}

type wireFilter struct {
	LocationFilter  wireLocationFilter `json:"locationFilter"`
	TypeFilter      wireTypeFilter     `json:"typeFilter"`
	OperatingStatus []string           `json:"operatingStatus,omitempty"`
	PriceLevels     []string           `json:"priceLevels,omitempty"`
	RatingFilter    *wireRatingFilter  `json:"ratingFilter,omitempty"`
}

type wireRequest struct {
	Insights []string   `json:"insights"`
	Filter   wireFilter `json:"filter"`
}

// flexCount coerces the count field, which the API returns as a string but
// is documented as a number. Absent counts stay 0.
type flexCount int64

func (c *flexCount) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil {
			return fmt.Errorf("parse count %q: %w", text, err)
		}
		*c = flexCount(n)
		return nil
	}

	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*c = flexCount(n)
		return nil
	}

	return fmt.Errorf("count must be a string or number")
}

// PlaceInsight identifies one matching place, returned for circle queries
// that request INSIGHT_PLACES.
type PlaceInsight struct {
	Place string `json:"place"`
}

// Response is a decoded computeInsights result.
type Response struct {
	Count         int64
	PlaceInsights []PlaceInsight
}

type wireResponse struct {
	Count         flexCount      `json:"count"`
	PlaceInsights []PlaceInsight `json:"placeInsights"`
}

type wireError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// ComputeInsights issues one computeInsights call. No retries: a failed call
// is final.
func (c *Client) ComputeInsights(ctx context.Context, req Request) (*Response, error) {
	body, err := encodeRequest(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Goog-Api-Key", c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var envelope wireError
		if data, err := io.ReadAll(resp.Body); err == nil {
			if json.Unmarshal(data, &envelope) == nil {
				apiErr.Message = envelope.Error.Message
			}
		}
		return nil, apiErr
	}

	var wr wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return &Response{Count: int64(wr.Count), PlaceInsights: wr.PlaceInsights}, nil
}

func encodeRequest(req Request) ([]byte, error) {
	insights := req.Insights
	if len(insights) == 0 {
		insights = []string{InsightCount}
	}

	var location wireLocationFilter
	switch {
	case len(req.Polygon) > 0:
		coords := make([]latLng, len(req.Polygon))
		for i, p := range req.Polygon {
			coords[i] = latLng{Latitude: p.Lat(), Longitude: p.Lon()}
		}
		location.CustomArea = &wireCustomArea{Polygon: wirePolygon{Coordinates: coords}}
		// The API rejects anything but the count insight for custom areas.
		insights = []string{InsightCount}
	case req.Circle != nil:
		location.Circle = &wireCircle{
			LatLng: latLng{Latitude: req.Circle.Center.Lat(), Longitude: req.Circle.Center.Lon()},
			Radius: req.Circle.RadiusMeters,
		}
	default:
		return nil, fmt.Errorf("%w: either a circle or a polygon location filter is required", ErrInvalidRequest)
	}

	filter := wireFilter{
		LocationFilter:  location,
		TypeFilter:      wireTypeFilter{IncludedTypes: req.Filters.IncludedTypes, ExcludedTypes: req.Filters.ExcludedTypes},
		OperatingStatus: req.Filters.OperatingStatus,
		PriceLevels:     req.Filters.PriceLevels,
	}
	if req.Filters.MinRating > 0 || req.Filters.MaxRating > 0 {
		filter.RatingFilter = &wireRatingFilter{
			MinRating: req.Filters.MinRating,
			MaxRating: req.Filters.MaxRating,
		}
	}

	return json.Marshal(wireRequest{Insights: insights, Filter: filter})
}
