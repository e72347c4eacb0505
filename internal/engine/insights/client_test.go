package insights

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/paulmach/orb"

	"github.com/mfigueredo/placegrid/internal/model"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(t *testing.T, statusCode int, responseBody string, captured *wireRequest) *Client {
	t.Helper()
	return &Client{
		http: &http.Client{
			Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
				if got := req.Header.Get("X-Goog-Api-Key"); got != "test-key" {
					t.Fatalf("expected api key header, got %q", got)
				}
				if captured != nil {
					if err := json.NewDecoder(req.Body).Decode(captured); err != nil {
						t.Fatalf("decoding outgoing request: %v", err)
					}
				}
				return &http.Response{
					StatusCode: statusCode,
					Header:     make(http.Header),
					Body:       io.NopCloser(strings.NewReader(responseBody)),
				}, nil
			}),
		},
		apiKey:  "test-key",
		baseURL: "https://areainsights.test/v1:computeInsights",
	}
}

var testRing = orb.Ring{{-122.42, 37.77}, {-122.41, 37.77}, {-122.41, 37.78}, {-122.42, 37.78}, {-122.42, 37.77}}

func TestComputeInsightsForcesCountForPolygons(t *testing.T) {
	var sent wireRequest
	client := newTestClient(t, http.StatusOK, `{"count":"12"}`, &sent)

	resp, err := client.ComputeInsights(context.Background(), Request{
		Insights: []string{InsightPlaces, InsightCount},
		Polygon:  testRing,
		Filters:  model.PlaceFilters{IncludedTypes: []string{"cafe"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Count != 12 {
		t.Fatalf("expected count 12, got %d", resp.Count)
	}

	if len(sent.Insights) != 1 || sent.Insights[0] != InsightCount {
		t.Fatalf("polygon request must be count-only, got %v", sent.Insights)
	}
	if sent.Filter.LocationFilter.CustomArea == nil {
		t.Fatal("expected a customArea location filter")
	}
	coords := sent.Filter.LocationFilter.CustomArea.Polygon.Coordinates
	if len(coords) != 5 {
		t.Fatalf("expected closed 5-point ring on the wire, got %d points", len(coords))
	}
	if coords[0] != coords[4] {
		t.Fatalf("wire ring is not closed: %v != %v", coords[0], coords[4])
	}
}

func TestComputeInsightsCircleKeepsRequestedInsights(t *testing.T) {
	var sent wireRequest
	client := newTestClient(t, http.StatusOK, `{"count":3,"placeInsights":[{"place":"places/abc"}]}`, &sent)

	resp, err := client.ComputeInsights(context.Background(), Request{
		Insights: []string{InsightCount, InsightPlaces},
		Circle:   &Circle{Center: orb.Point{-122.4194, 37.7749}, RadiusMeters: 500},
		Filters:  model.PlaceFilters{IncludedTypes: []string{"restaurant"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Count != 3 {
		t.Fatalf("expected numeric count 3, got %d", resp.Count)
	}
	if len(resp.PlaceInsights) != 1 || resp.PlaceInsights[0].Place != "places/abc" {
		t.Fatalf("unexpected place insights: %+v", resp.PlaceInsights)
	}

	if len(sent.Insights) != 2 {
		t.Fatalf("circle request must keep requested insights, got %v", sent.Insights)
	}
	circle := sent.Filter.LocationFilter.Circle
	if circle == nil || circle.Radius != 500 || circle.LatLng.Latitude != 37.7749 {
		t.Fatalf("unexpected circle on the wire: %+v", circle)
	}
}

func TestComputeInsightsMissingCountDefaultsToZero(t *testing.T) {
	client := newTestClient(t, http.StatusOK, `{}`, nil)
	resp, err := client.ComputeInsights(context.Background(), Request{Polygon: testRing})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Count != 0 {
		t.Fatalf("expected zero count, got %d", resp.Count)
	}
}

func TestComputeInsightsOptionalFilters(t *testing.T) {
	var sent wireRequest
	client := newTestClient(t, http.StatusOK, `{"count":"0"}`, &sent)

	_, err := client.ComputeInsights(context.Background(), Request{
		Polygon: testRing,
		Filters: model.PlaceFilters{
			IncludedTypes:   []string{"cafe"},
			ExcludedTypes:   []string{"bakery"},
			MinRating:       4.0,
			OperatingStatus: []string{"OPERATING_STATUS_OPERATIONAL"},
			PriceLevels:     []string{"PRICE_LEVEL_INEXPENSIVE"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sent.Filter.RatingFilter == nil || sent.Filter.RatingFilter.MinRating != 4.0 {
		t.Fatalf("rating filter missing: %+v", sent.Filter.RatingFilter)
	}
	if len(sent.Filter.TypeFilter.ExcludedTypes) != 1 || len(sent.Filter.OperatingStatus) != 1 || len(sent.Filter.PriceLevels) != 1 {
		t.Fatalf("optional filters dropped: %+v", sent.Filter)
	}
}

func TestComputeInsightsAPIError(t *testing.T) {
	body := `{"error":{"code":400,"message":"Unsupported insight for custom area.","status":"INVALID_ARGUMENT"}}`
	client := newTestClient(t, http.StatusBadRequest, body, nil)

	_, err := client.ComputeInsights(context.Background(), Request{Polygon: testRing})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", apiErr.StatusCode)
	}
	if !strings.Contains(apiErr.Message, "Unsupported insight") {
		t.Fatalf("expected extracted message, got %q", apiErr.Message)
	}
}

func TestComputeInsightsRequiresLocation(t *testing.T) {
	client := newTestClient(t, http.StatusOK, `{}`, nil)
	_, err := client.ComputeInsights(context.Background(), Request{Insights: []string{InsightCount}})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}
