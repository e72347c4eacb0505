package model

import "github.com/paulmach/orb"

// Tile is one rectangular cell of a grid overlaid on a bounding box.
// Tiles are created once by the grid generator and never mutated.
type Tile struct {
	ID           int
	Centroid     orb.Point // orb.Point is [lng, lat]
	Polygon      orb.Ring  // closed: first point repeated as last
	AreaSqMeters float64
	AreaSqKm     float64
}

// TileResult is the simplified outcome of one tile's insights query.
type TileResult struct {
	TileID   int     `json:"tile_id"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	AreaSqKm float64 `json:"tile_area_sq_km"`
	Success  bool    `json:"success"`
	Count    int     `json:"count"`
	Reason   string  `json:"reason,omitempty"`
}
