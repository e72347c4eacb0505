package main

import (
	"fmt"
	"os"
	"strings"
)

var version = "dev"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "scan":
			exitOn(runScan(os.Args[2:]))
			return
		case "nearby":
			exitOn(runNearby(os.Args[2:]))
			return
		case "geocode":
			exitOn(runGeocode(os.Args[2:]))
			return
		case "export":
			exitOn(runExport(os.Args[2:]))
			return
		case "version":
			fmt.Println("placegrid " + version)
			return
		case "help", "--help", "-h":
			printUsage()
			return
		}
	}

	printUsage()
	os.Exit(2)
}

func exitOn(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `placegrid - place density scanner over a geographic tile grid

Usage:
  placegrid scan [flags]     Grid an area around a location and count places per tile
  placegrid nearby [flags]   Single circle query around a point
  placegrid geocode ADDRESS  Resolve an address to coordinates
  placegrid export [flags]   Export a scan .db to CSV or GeoJSON
  placegrid version          Show version

Run 'placegrid <command> --help' for flags.
`)
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
