package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/paulmach/orb"

	"github.com/mfigueredo/placegrid/internal/config"
	"github.com/mfigueredo/placegrid/internal/engine/geo"
	"github.com/mfigueredo/placegrid/internal/engine/geocode"
	"github.com/mfigueredo/placegrid/internal/engine/insights"
	"github.com/mfigueredo/placegrid/internal/engine/storage"
	"github.com/mfigueredo/placegrid/internal/model"
	"github.com/mfigueredo/placegrid/internal/tui"
)

func runScan(args []string) error {
	var params model.ScanParams
	var typesStr, excludedStr, statusStr, priceStr string
	var profilePath, outputDir, apiKeyFlag string

	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	fs.StringVar(&outputDir, "output", "", "Output directory for scan files (required)")
	fs.StringVar(&params.Address, "address", "", "Free-text location, resolved via geocoding")
	fs.Float64Var(&params.Lat, "lat", 0, "Center latitude")
	fs.Float64Var(&params.Lng, "lng", 0, "Center longitude")
	fs.Float64Var(&params.BoxSizeMeters, "box", 1000, "Scanned square size in meters (full width/height)")
	fs.IntVar(&params.TileTarget, "tiles", 16, "Approximate number of grid tiles")
	fs.StringVar(&typesStr, "types", "cafe", "Comma-separated place types to count")
	fs.StringVar(&excludedStr, "excluded-types", "", "Comma-separated place types to exclude")
	fs.Float64Var(&params.Filters.MinRating, "min-rating", 0, "Minimum star rating filter")
	fs.Float64Var(&params.Filters.MaxRating, "max-rating", 0, "Maximum star rating filter")
	fs.StringVar(&statusStr, "status", "", "Comma-separated operating status filters")
	fs.StringVar(&priceStr, "price-levels", "", "Comma-separated price level filters")
	fs.IntVar(&params.Concurrency, "concurrency", 1, "Parallel tile queries (1 = sequential)")
	fs.StringVar(&profilePath, "profile", "", "YAML search profile")
	fs.StringVar(&apiKeyFlag, "api-key", "", "Google Maps API key (default: GOOGLE_MAPS_API_KEY)")
	fs.BoolVar(&params.Plain, "plain", false, "Disable the TUI progress view")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: placegrid scan [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  placegrid scan -address \"Mission District, San Francisco\" -output ./scans\n")
		fmt.Fprintf(os.Stderr, "  placegrid scan -lat 37.7749 -lng -122.4194 -box 1000 -tiles 16 -types cafe -output ./scans\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if outputDir == "" {
		return fmt.Errorf("-output is required")
	}
	if params.Address == "" && !params.IsCoordMode() {
		return fmt.Errorf("either -address or -lat/-lng is required")
	}

	// Profile values fill in for flags the user did not set explicitly.
	if profilePath != "" {
		visited := map[string]bool{}
		fs.Visit(func(f *flag.Flag) { visited[f.Name] = true })

		prof, err := config.LoadProfile(profilePath)
		if err != nil {
			return err
		}
		if !visited["types"] && len(prof.PlaceTypes) > 0 {
			typesStr = strings.Join(prof.PlaceTypes, ",")
		}
		if !visited["excluded-types"] && len(prof.ExcludedTypes) > 0 {
			excludedStr = strings.Join(prof.ExcludedTypes, ",")
		}
		if !visited["min-rating"] && prof.MinRating > 0 {
			params.Filters.MinRating = prof.MinRating
		}
		if !visited["max-rating"] && prof.MaxRating > 0 {
			params.Filters.MaxRating = prof.MaxRating
		}
		if !visited["status"] && len(prof.OperatingStatus) > 0 {
			statusStr = strings.Join(prof.OperatingStatus, ",")
		}
		if !visited["price-levels"] && len(prof.PriceLevels) > 0 {
			priceStr = strings.Join(prof.PriceLevels, ",")
		}
		if !visited["box"] && prof.BoxSizeMeters > 0 {
			params.BoxSizeMeters = prof.BoxSizeMeters
		}
		if !visited["tiles"] && prof.TileTarget > 0 {
			params.TileTarget = prof.TileTarget
		}
		if !visited["concurrency"] && prof.Concurrency > 0 {
			params.Concurrency = prof.Concurrency
		}
	}

	params.Filters.IncludedTypes = splitCSV(typesStr)
	params.Filters.ExcludedTypes = splitCSV(excludedStr)
	params.Filters.OperatingStatus = splitCSV(statusStr)
	params.Filters.PriceLevels = splitCSV(priceStr)

	apiKey, err := config.APIKey(apiKeyFlag)
	if err != nil {
		return err
	}
	params.APIKey = apiKey

	// Create output directory
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	// Generate timestamped filenames
	ts := time.Now().Format("20060102_150405")
	baseName := fmt.Sprintf("placegrid_%s", ts)
	params.DBPath = filepath.Join(outputDir, baseName+".db")
	logPath := filepath.Join(outputDir, baseName+".log")

	// Setup log file
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	defer logFile.Close()
	logger := log.New(logFile, "", log.LstdFlags)
	logger.Printf("=== Session start: address=%q lat=%.4f lng=%.4f box=%.0fm tiles=%d types=%v concurrency=%d ===",
		params.Address, params.Lat, params.Lng, params.BoxSizeMeters, params.TileTarget,
		params.Filters.IncludedTypes, params.Concurrency)

	fmt.Fprintf(os.Stderr, "Log: %s\n", logPath)

	// Setup context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down gracefully...")
		cancel()
	}()

	startTime := time.Now()

	// Resolve the center point
	center := orb.Point{params.Lng, params.Lat}
	target := fmt.Sprintf("%.4f, %.4f", params.Lat, params.Lng)
	if !params.IsCoordMode() {
		res, err := geocode.NewClient(apiKey).Geocode(ctx, params.Address)
		if err != nil {
			return fmt.Errorf("geocoding %q: %w", params.Address, err)
		}
		center = orb.Point{res.Lng, res.Lat}
		target = res.FormattedAddress
		logger.Printf("GEOCODE query=%q lat=%.6f lng=%.6f address=%q", params.Address, res.Lat, res.Lng, res.FormattedAddress)
		fmt.Fprintf(os.Stderr, "Geocoded: %s (%.4f, %.4f)\n", res.FormattedAddress, res.Lat, res.Lng)
	}

	// Generate the grid up front: validates the inputs before any remote
	// call and keeps the polygons around for persistence.
	bounds, err := geo.BoundsFromCenter(center, params.BoxSizeMeters)
	if err != nil {
		return err
	}
	tiles, err := geo.GenerateTiles(bounds, params.TileTarget)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Grid: %d tiles over %.0fm x %.0fm\n", len(tiles), params.BoxSizeMeters, params.BoxSizeMeters)

	// Open storage
	store, err := storage.NewStore(params.DBPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	scanID, err := store.CreateScan(params.Address, center, params.BoxSizeMeters, params.TileTarget, params.Filters.IncludedTypes)
	if err != nil {
		return fmt.Errorf("recording scan: %w", err)
	}

	stats := &insights.Stats{}
	gridReq := insights.GridRequest{
		Center:        center,
		BoxSizeMeters: params.BoxSizeMeters,
		TileCount:     params.TileTarget,
		Filters:       params.Filters,
		Concurrency:   params.Concurrency,
		Stats:         stats,
		OnTile: func(r model.TileResult) {
			logger.Printf("TILE id=%d success=%v count=%d reason=%q", r.TileID, r.Success, r.Count, r.Reason)
			if params.Plain {
				fmt.Fprintf(os.Stderr, "\r[%d/%d tiles] %d places | %d errors",
					stats.TilesDone.Load(), stats.TilesTotal, stats.Places.Load(), stats.Failed.Load())
			}
		},
	}

	client := insights.NewClient(apiKey)

	var results []model.TileResult
	scan := func() error {
		var err error
		results, err = insights.ComputeGridInsights(ctx, client, gridReq)
		return err
	}

	if params.Plain {
		err = scan()
		fmt.Fprintln(os.Stderr)
	} else {
		err = tui.Run(tui.ScanInfo{
			Target:        target,
			PlaceTypes:    strings.Join(params.Filters.IncludedTypes, ", "),
			BoxSizeMeters: params.BoxSizeMeters,
			TileTarget:    len(tiles),
		}, stats, cancel, scan)
	}
	if err != nil {
		return fmt.Errorf("scanning: %w", err)
	}

	stored, err := store.InsertResults(scanID, tiles, results)
	if err != nil {
		return fmt.Errorf("storing results: %w", err)
	}
	logger.Printf("Done: tiles=%d ok=%d failed=%d places=%d stored=%d",
		stats.TilesTotal, stats.Succeeded.Load(), stats.Failed.Load(), stats.Places.Load(), stored)

	duration := time.Since(startTime).Truncate(time.Second)

	// Print final summary
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  PlaceGrid Complete\n")
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Target:     %s\n", target)
	fmt.Fprintf(os.Stderr, "  Types:      %s\n", strings.Join(params.Filters.IncludedTypes, ", "))
	fmt.Fprintf(os.Stderr, "  Tiles:      %d (%.4f km² each)\n", len(tiles), tiles[0].AreaSqKm)
	fmt.Fprintf(os.Stderr, "  Places:     %d\n", stats.Places.Load())
	fmt.Fprintf(os.Stderr, "  Failed:     %d\n", stats.Failed.Load())
	fmt.Fprintf(os.Stderr, "  Duration:   %s\n", duration)
	fmt.Fprintf(os.Stderr, "  Database:   %s\n", params.DBPath)
	fmt.Fprintf(os.Stderr, "  Log:        %s\n", logPath)
	fmt.Fprintf(os.Stderr, "══════════════════════════════\n")

	// Per-tile breakdown, row-major from the south-west corner
	fmt.Fprintf(os.Stderr, "\n  tile        lat          lon    count\n")
	for _, r := range results {
		status := fmt.Sprintf("%5d", r.Count)
		if !r.Success {
			status = " FAIL"
		}
		fmt.Fprintf(os.Stderr, "  %4d  %9.5f  %11.5f  %s\n", r.TileID, r.Lat, r.Lon, status)
	}

	return nil
}
