package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/mfigueredo/placegrid/internal/model"
)

// epsilon absorbs floating-point accumulation in the row/column loops, which
// would otherwise drop or duplicate a final row or column.
const epsilon = 1e-9

// GenerateTiles divides bounds into a near-square grid of roughly
// targetTileCount cells, emitted row-major: south to north, then west to
// east, with sequential ids from 0.
//
// The count is a target, not a guarantee: tiles per side is the real-valued
// square root of the target, so the emitted count depends on how the cell
// sizes accumulate across the box.
func GenerateTiles(bounds orb.Bound, targetTileCount int) ([]model.Tile, error) {
	if targetTileCount <= 0 {
		return nil, fmt.Errorf("%w: target tile count must be positive, got %d", ErrInvalidArgument, targetTileCount)
	}
	if err := ValidateBounds(bounds); err != nil {
		return nil, err
	}

	tilesPerSide := math.Sqrt(float64(targetTileCount))
	latSize := (bounds.Max.Lat() - bounds.Min.Lat()) / tilesPerSide
	lngSize := (bounds.Max.Lon() - bounds.Min.Lon()) / tilesPerSide

	var tiles []model.Tile
	id := 0
	for lat := bounds.Min.Lat(); lat < bounds.Max.Lat()-epsilon; lat += latSize {
		for lng := bounds.Min.Lon(); lng < bounds.Max.Lon()-epsilon; lng += lngSize {
			centroid := orb.Point{lng + lngSize/2, lat + latSize/2}

			// The centroid latitude drives the longitude scale for the whole
			// cell; slightly overstates area away from the equator-ward edge.
			heightM := latSize * metersPerDegLat
			widthM := lngSize * metersPerDegLngEquator * math.Cos(centroid.Lat()*math.Pi/180.0)
			areaSqM := heightM * widthM

			tiles = append(tiles, model.Tile{
				ID:       id,
				Centroid: centroid,
				Polygon: orb.Ring{
					{lng, lat},
					{lng + lngSize, lat},
					{lng + lngSize, lat + latSize},
					{lng, lat + latSize},
					{lng, lat},
				},
				AreaSqMeters: areaSqM,
				AreaSqKm:     areaSqM / 1_000_000,
			})
			id++
		}
	}

	return tiles, nil
}
