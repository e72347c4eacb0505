package insights

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/paulmach/orb"

	"github.com/mfigueredo/placegrid/internal/engine/geo"
	"github.com/mfigueredo/placegrid/internal/model"
)

// querierFunc adapts a function to the Querier interface.
type querierFunc func(ctx context.Context, req Request) (*Response, error)

func (f querierFunc) ComputeInsights(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

var gridCenter = orb.Point{-122.4194, 37.7749}

func TestComputeGridInsightsPartialFailure(t *testing.T) {
	var mu sync.Mutex
	calls := 0

	client := querierFunc(func(ctx context.Context, req Request) (*Response, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		// Third of four tiles fails; the rest return distinct counts.
		if n == 3 {
			return nil, &APIError{StatusCode: 500, Message: "backend unavailable"}
		}
		return &Response{Count: int64(10 + n)}, nil
	})

	results, err := ComputeGridInsights(context.Background(), client, GridRequest{
		Center:        gridCenter,
		BoxSizeMeters: 1000,
		TileCount:     4,
		Filters:       model.PlaceFilters{IncludedTypes: []string{"cafe"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	for i, r := range results {
		if r.TileID != i {
			t.Fatalf("result %d has tile id %d", i, r.TileID)
		}
	}

	failed := results[2]
	if failed.Success || failed.Count != 0 {
		t.Fatalf("failed tile must report success=false count=0, got %+v", failed)
	}
	if failed.Reason == "" {
		t.Fatal("failed tile must preserve the failure reason")
	}
	for _, i := range []int{0, 1, 3} {
		if !results[i].Success || results[i].Count == 0 {
			t.Fatalf("tile %d lost its value to a sibling failure: %+v", i, results[i])
		}
	}
}

func TestComputeGridInsightsSendsCountOnlyPolygonQueries(t *testing.T) {
	client := querierFunc(func(ctx context.Context, req Request) (*Response, error) {
		if len(req.Polygon) != 5 {
			t.Fatalf("expected closed tile ring, got %d points", len(req.Polygon))
		}
		if len(req.Insights) != 1 || req.Insights[0] != InsightCount {
			t.Fatalf("expected count-only insight set, got %v", req.Insights)
		}
		return &Response{Count: 1}, nil
	})

	results, err := ComputeGridInsights(context.Background(), client, GridRequest{
		Center:        gridCenter,
		BoxSizeMeters: 500,
		TileCount:     9,
		Filters:       model.PlaceFilters{IncludedTypes: []string{"cafe"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 9 {
		t.Fatalf("expected 9 results, got %d", len(results))
	}
}

func TestComputeGridInsightsStructuralErrorsAbort(t *testing.T) {
	calls := 0
	client := querierFunc(func(ctx context.Context, req Request) (*Response, error) {
		calls++
		return &Response{}, nil
	})

	cases := []GridRequest{
		{Center: gridCenter, BoxSizeMeters: 0, TileCount: 16},
		{Center: gridCenter, BoxSizeMeters: -100, TileCount: 16},
		{Center: gridCenter, BoxSizeMeters: 1000, TileCount: 0},
	}
	for i, req := range cases {
		_, err := ComputeGridInsights(context.Background(), client, req)
		if !errors.Is(err, geo.ErrInvalidArgument) {
			t.Fatalf("case %d: expected ErrInvalidArgument, got %v", i, err)
		}
	}
	if calls != 0 {
		t.Fatalf("structural errors must abort before any remote call, saw %d calls", calls)
	}
}

func TestComputeGridInsightsRecoversPanics(t *testing.T) {
	client := querierFunc(func(ctx context.Context, req Request) (*Response, error) {
		panic("corrupt payload")
	})

	results, err := ComputeGridInsights(context.Background(), client, GridRequest{
		Center:        gridCenter,
		BoxSizeMeters: 1000,
		TileCount:     4,
	})
	if err != nil {
		t.Fatalf("a per-tile panic must not abort the grid: %v", err)
	}
	for _, r := range results {
		if r.Success || r.Count != 0 || r.Reason == "" {
			t.Fatalf("expected recovered failure with reason, got %+v", r)
		}
	}
}

func TestComputeGridInsightsConcurrentOrderByTileID(t *testing.T) {
	client := querierFunc(func(ctx context.Context, req Request) (*Response, error) {
		// Derive a count from the tile's south-west corner so each tile is
		// distinguishable no matter which goroutine finishes first.
		return &Response{Count: int64(req.Polygon[0].Lat() * 1e6)}, nil
	})

	seq, err := ComputeGridInsights(context.Background(), client, GridRequest{
		Center: gridCenter, BoxSizeMeters: 2000, TileCount: 16,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	par, err := ComputeGridInsights(context.Background(), client, GridRequest{
		Center: gridCenter, BoxSizeMeters: 2000, TileCount: 16, Concurrency: 8,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(seq) != len(par) {
		t.Fatalf("sequential and concurrent runs disagree on length: %d vs %d", len(seq), len(par))
	}
	for i := range seq {
		if seq[i] != par[i] {
			t.Fatalf("result %d differs between sequential and concurrent runs: %+v vs %+v", i, seq[i], par[i])
		}
	}
}

func TestComputeGridInsightsStatsAndCallback(t *testing.T) {
	client := querierFunc(func(ctx context.Context, req Request) (*Response, error) {
		return &Response{Count: 2}, nil
	})

	var stats Stats
	seen := 0
	_, err := ComputeGridInsights(context.Background(), client, GridRequest{
		Center:        gridCenter,
		BoxSizeMeters: 1000,
		TileCount:     4,
		Stats:         &stats,
		OnTile:        func(model.TileResult) { seen++ },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.TilesTotal != 4 || stats.TilesDone.Load() != 4 {
		t.Fatalf("stats out of sync: total=%d done=%d", stats.TilesTotal, stats.TilesDone.Load())
	}
	if stats.Succeeded.Load() != 4 || stats.Failed.Load() != 0 || stats.Places.Load() != 8 {
		t.Fatalf("unexpected counters: %+v", &stats)
	}
	if seen != 4 {
		t.Fatalf("OnTile called %d times, want 4", seen)
	}
}

func TestComputeGridInsightsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := querierFunc(func(ctx context.Context, req Request) (*Response, error) {
		t.Fatal("no remote call expected after cancellation")
		return nil, nil
	})

	results, err := ComputeGridInsights(ctx, client, GridRequest{
		Center: gridCenter, BoxSizeMeters: 1000, TileCount: 4,
	})
	if err != nil {
		t.Fatalf("cancellation is reported per tile, not as a fatal error: %v", err)
	}
	for _, r := range results {
		if r.Success {
			t.Fatalf("tile %d succeeded after cancellation", r.TileID)
		}
	}
}
