package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/mfigueredo/placegrid/internal/model"
)

// Profile is a reusable search profile loaded from YAML. Flags set on the
// command line take precedence over profile values.
type Profile struct {
	PlaceTypes      []string `yaml:"place_types"`
	ExcludedTypes   []string `yaml:"excluded_types"`
	MinRating       float64  `yaml:"min_rating"`
	MaxRating       float64  `yaml:"max_rating"`
	OperatingStatus []string `yaml:"operating_status"`
	PriceLevels     []string `yaml:"price_levels"`
	BoxSizeMeters   float64  `yaml:"box_size_meters"`
	TileTarget      int      `yaml:"tile_target"`
	Concurrency     int      `yaml:"concurrency"`
}

// LoadProfile reads a YAML search profile from disk.
func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("reading profile: %w", err)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("parsing profile %s: %w", path, err)
	}
	return p, nil
}

// Filters converts the profile's filter fields to place filters.
func (p Profile) Filters() model.PlaceFilters {
	return model.PlaceFilters{
		IncludedTypes:   p.PlaceTypes,
		ExcludedTypes:   p.ExcludedTypes,
		MinRating:       p.MinRating,
		MaxRating:       p.MaxRating,
		OperatingStatus: p.OperatingStatus,
		PriceLevels:     p.PriceLevels,
	}
}

// APIKey resolves the Google Maps API key: an explicit flag value wins,
// then the environment, with a .env file loaded first if present.
func APIKey(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	_ = godotenv.Load()
	if key := os.Getenv("GOOGLE_MAPS_API_KEY"); key != "" {
		return key, nil
	}
	return "", errors.New("GOOGLE_MAPS_API_KEY is not set (use -api-key, the environment, or a .env file)")
}
