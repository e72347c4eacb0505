package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/paulmach/orb"

	"github.com/mfigueredo/placegrid/internal/config"
	"github.com/mfigueredo/placegrid/internal/engine/geocode"
	"github.com/mfigueredo/placegrid/internal/engine/insights"
	"github.com/mfigueredo/placegrid/internal/model"
)

func runNearby(args []string) error {
	var address, typesStr, excludedStr, insightsStr, apiKeyFlag string
	var lat, lng, radius, minRating, maxRating float64

	fs := flag.NewFlagSet("nearby", flag.ExitOnError)
	fs.StringVar(&address, "address", "", "Free-text location, resolved via geocoding")
	fs.Float64Var(&lat, "lat", 0, "Center latitude")
	fs.Float64Var(&lng, "lng", 0, "Center longitude")
	fs.Float64Var(&radius, "radius", 500, "Search radius in meters")
	fs.StringVar(&typesStr, "types", "cafe", "Comma-separated place types to count")
	fs.StringVar(&excludedStr, "excluded-types", "", "Comma-separated place types to exclude")
	fs.Float64Var(&minRating, "min-rating", 0, "Minimum star rating filter")
	fs.Float64Var(&maxRating, "max-rating", 0, "Maximum star rating filter")
	fs.StringVar(&insightsStr, "insights", insights.InsightCount+","+insights.InsightPlaces, "Comma-separated insight kinds")
	fs.StringVar(&apiKeyFlag, "api-key", "", "Google Maps API key (default: GOOGLE_MAPS_API_KEY)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: placegrid nearby [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  placegrid nearby -address \"Shibuya, Tokyo\" -radius 800 -types cafe\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if address == "" && lat == 0 && lng == 0 {
		return fmt.Errorf("either -address or -lat/-lng is required")
	}

	apiKey, err := config.APIKey(apiKeyFlag)
	if err != nil {
		return err
	}

	ctx := context.Background()

	center := orb.Point{lng, lat}
	if address != "" {
		res, err := geocode.NewClient(apiKey).Geocode(ctx, address)
		if err != nil {
			return fmt.Errorf("geocoding %q: %w", address, err)
		}
		center = orb.Point{res.Lng, res.Lat}
		fmt.Fprintf(os.Stderr, "Geocoded: %s (%.4f, %.4f)\n", res.FormattedAddress, res.Lat, res.Lng)
	}

	resp, err := insights.NewClient(apiKey).ComputeInsights(ctx, insights.Request{
		Insights: splitCSV(insightsStr),
		Circle:   &insights.Circle{Center: center, RadiusMeters: radius},
		Filters: model.PlaceFilters{
			IncludedTypes: splitCSV(typesStr),
			ExcludedTypes: splitCSV(excludedStr),
			MinRating:     minRating,
			MaxRating:     maxRating,
		},
	})
	if err != nil {
		return err
	}

	fmt.Printf("count: %d\n", resp.Count)
	for _, p := range resp.PlaceInsights {
		fmt.Println(p.Place)
	}
	return nil
}
