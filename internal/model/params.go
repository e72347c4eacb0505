package model

// PlaceFilters narrows which places an insights query counts.
type PlaceFilters struct {
	IncludedTypes   []string
	ExcludedTypes   []string
	MinRating       float64 // 0 = no filter
	MaxRating       float64 // 0 = no filter
	OperatingStatus []string
	PriceLevels     []string
}

// ScanParams holds all configuration for a grid scan session.
type ScanParams struct {
	// Mode 1: free-text address, resolved through the geocoder
	Address string

	// Mode 2: explicit coordinates
	Lat float64
	Lng float64

	BoxSizeMeters float64 // full width/height of the scanned square
	TileTarget    int     // approximate number of grid cells

	Filters     PlaceFilters
	Concurrency int
	APIKey      string
	DBPath      string
	Plain       bool // disable the TUI progress view
}

func (p *ScanParams) IsCoordMode() bool {
	return p.Lat != 0 || p.Lng != 0
}
