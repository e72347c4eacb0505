package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mfigueredo/placegrid/internal/config"
	"github.com/mfigueredo/placegrid/internal/engine/geocode"
)

func runGeocode(args []string) error {
	var apiKeyFlag string

	fs := flag.NewFlagSet("geocode", flag.ExitOnError)
	fs.StringVar(&apiKeyFlag, "api-key", "", "Google Maps API key (default: GOOGLE_MAPS_API_KEY)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: placegrid geocode [flags] ADDRESS\n\nFlags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	address := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if address == "" {
		return fmt.Errorf("an address is required")
	}

	apiKey, err := config.APIKey(apiKeyFlag)
	if err != nil {
		return err
	}

	res, err := geocode.NewClient(apiKey).Geocode(context.Background(), address)
	if err != nil {
		return err
	}

	fmt.Printf("%.6f, %.6f\n", res.Lat, res.Lng)
	fmt.Println(res.FormattedAddress)
	return nil
}
