package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/mfigueredo/placegrid/internal/engine/storage"
)

func runExport(args []string) error {
	var dbPath, outputPath, format string
	var scanID int64

	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.StringVar(&dbPath, "db", "", "Path to .db file (required)")
	fs.StringVar(&outputPath, "output", "", "Output file path (default: same dir as db)")
	fs.StringVar(&format, "format", "csv", "Export format: csv or geojson")
	fs.Int64Var(&scanID, "scan", 0, "Scan id to export (default: latest)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: placegrid export [flags]\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  placegrid export -db ./scans/placegrid_20260212.db\n")
		fmt.Fprintf(os.Stderr, "  placegrid export -db data.db -format geojson -output tiles.geojson\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if dbPath == "" {
		return fmt.Errorf("-db is required")
	}
	if format != "csv" && format != "geojson" {
		return fmt.Errorf("unsupported format: %s (csv or geojson)", format)
	}

	if outputPath == "" {
		dir := filepath.Dir(dbPath)
		base := strings.TrimSuffix(filepath.Base(dbPath), ".db")
		outputPath = filepath.Join(dir, base+"."+format)
	}

	store, err := storage.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("opening db: %w", err)
	}
	defer store.Close()

	if scanID == 0 {
		scanID, err = store.LatestScanID()
		if err != nil {
			return err
		}
	}

	records, err := store.TileRecords(scanID)
	if err != nil {
		return fmt.Errorf("loading tiles: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("no tile results found for scan %d", scanID)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	defer f.Close()

	switch format {
	case "csv":
		err = exportCSV(f, records)
	case "geojson":
		err = exportGeoJSON(f, records)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Exported %d tiles to %s\n", len(records), outputPath)
	return nil
}

func exportCSV(f *os.File, records []storage.TileRecord) error {
	w := csv.NewWriter(f)
	defer w.Flush()

	w.Write([]string{"tile_id", "lat", "lon", "area_sq_km", "success", "count", "reason"})
	for _, r := range records {
		w.Write([]string{
			fmt.Sprintf("%d", r.TileID),
			fmt.Sprintf("%.6f", r.Lat),
			fmt.Sprintf("%.6f", r.Lon),
			fmt.Sprintf("%.4f", r.AreaSqKm),
			fmt.Sprintf("%t", r.Success),
			fmt.Sprintf("%d", r.Count),
			r.Reason,
		})
	}
	return w.Error()
}

// exportGeoJSON writes one polygon feature per tile, so the counts can be
// rendered as a choropleth in any GeoJSON viewer.
func exportGeoJSON(f *os.File, records []storage.TileRecord) error {
	fc := geojson.NewFeatureCollection()
	for _, r := range records {
		feature := geojson.NewFeature(orb.Polygon{r.Polygon})
		feature.Properties = geojson.Properties{
			"tile_id":    r.TileID,
			"count":      r.Count,
			"success":    r.Success,
			"area_sq_km": r.AreaSqKm,
		}
		fc.Append(feature)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(fc)
}
