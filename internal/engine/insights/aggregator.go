package insights

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/paulmach/orb"

	"github.com/mfigueredo/placegrid/internal/engine/geo"
	"github.com/mfigueredo/placegrid/internal/model"
)

// Querier is the one capability the aggregator needs from the remote
// insights service.
type Querier interface {
	ComputeInsights(ctx context.Context, req Request) (*Response, error)
}

// Stats tracks live progress of a grid scan.
type Stats struct {
	TilesTotal int
	TilesDone  atomic.Int64
	Succeeded  atomic.Int64
	Failed     atomic.Int64
	Places     atomic.Int64
}

// GridRequest drives one grid scan.
type GridRequest struct {
	Center        orb.Point
	BoxSizeMeters float64
	TileCount     int
	Filters       model.PlaceFilters

	// Concurrency > 1 queries tiles in parallel. Result order is by tile
	// id either way.
	Concurrency int

	// Stats, if set, is updated as tiles finish. Used by the TUI.
	Stats *Stats
	// OnTile, if set, is called once per finished tile, in completion order.
	OnTile func(model.TileResult)
}

// ComputeGridInsights builds the bounding box and tile grid for the request
// and issues one count query per tile.
//
// Structural errors (bad sizes, bad counts) abort before any remote call.
// A single tile's failure never discards the other tiles: the returned slice
// always has exactly one entry per generated tile, ordered by tile id, with
// failures marked individually.
func ComputeGridInsights(ctx context.Context, client Querier, req GridRequest) ([]model.TileResult, error) {
	bounds, err := geo.BoundsFromCenter(req.Center, req.BoxSizeMeters)
	if err != nil {
		return nil, err
	}
	tiles, err := geo.GenerateTiles(bounds, req.TileCount)
	if err != nil {
		return nil, err
	}

	stats := req.Stats
	if stats == nil {
		stats = &Stats{}
	}
	stats.TilesTotal = len(tiles)

	results := make([]model.TileResult, len(tiles))

	if req.Concurrency > 1 {
		var wg sync.WaitGroup
		sem := make(chan struct{}, req.Concurrency)
		for _, tile := range tiles {
			sem <- struct{}{}
			wg.Add(1)
			go func(t model.Tile) {
				defer wg.Done()
				defer func() { <-sem }()
				results[t.ID] = queryTile(ctx, client, t, req, stats)
			}(tile)
		}
		wg.Wait()
	} else {
		for _, tile := range tiles {
			results[tile.ID] = queryTile(ctx, client, tile, req, stats)
		}
	}

	return results, nil
}

func queryTile(ctx context.Context, client Querier, tile model.Tile, req GridRequest, stats *Stats) (res model.TileResult) {
	res = model.TileResult{
		TileID:   tile.ID,
		Lat:      tile.Centroid.Lat(),
		Lon:      tile.Centroid.Lon(),
		AreaSqKm: tile.AreaSqKm,
	}

	defer func() {
		if r := recover(); r != nil {
			res.Success = false
			res.Count = 0
			res.Reason = fmt.Sprintf("panic: %v", r)
		}
		stats.TilesDone.Add(1)
		if res.Success {
			stats.Succeeded.Add(1)
			stats.Places.Add(int64(res.Count))
		} else {
			stats.Failed.Add(1)
		}
		if req.OnTile != nil {
			req.OnTile(res)
		}
	}()

	if err := ctx.Err(); err != nil {
		res.Reason = err.Error()
		return res
	}

	resp, err := client.ComputeInsights(ctx, Request{
		Insights: []string{InsightCount},
		Polygon:  tile.Polygon,
		Filters:  req.Filters,
	})
	if err != nil {
		res.Reason = err.Error()
		return res
	}

	res.Success = true
	res.Count = int(resp.Count)
	return res
}
