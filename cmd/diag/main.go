package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ni-da-ba/iss-tracker/internal/ephem"
	"github.com/ni-da-ba/iss-tracker/internal/epoch"
	"github.com/ni-da-ba/iss-tracker/internal/query"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	fetcher := ephem.NewFetcher(os.Getenv("ISSTRACK_SOURCE_URL"), logger)
	fmt.Printf("Fetching %s\n", fetcher.SourceURL())

	ds, err := fetcher.Dataset(ctx)
	if err != nil {
		fmt.Println("ERROR fetching ephemeris:", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d state vectors\n", len(ds.Vectors))

	if cov, ok := ds.Coverage(); ok {
		fmt.Printf("Coverage: %s .. %s\n", cov.First, cov.Last)
	}
	for _, c := range ds.Comments {
		fmt.Printf("  # %s\n", c)
	}

	if avg, err := query.AverageSpeed(ds.Vectors); err == nil {
		fmt.Printf("Average speed: %.4f km/s\n", avg)
	} else {
		fmt.Println("Average speed unavailable:", err)
	}

	facade := query.Facade{Codec: epoch.Codec{}}
	res, found, err := facade.Now(ds)
	if err != nil {
		fmt.Println("ERROR matching current time:", err)
		os.Exit(1)
	}
	if !found {
		fmt.Printf("No record within the current hour (queried %s)\n", res.QueriedEpoch)
		os.Exit(1)
	}

	fmt.Printf("Queried epoch: %s\n", res.QueriedEpoch)
	fmt.Printf("Matched epoch: %s\n", res.Vector.Epoch)
	fmt.Printf("  position: (%.3f, %.3f, %.3f) km\n", res.Vector.X, res.Vector.Y, res.Vector.Z)
	fmt.Printf("  speed:    %.4f km/s\n", res.SpeedKmS)
	fmt.Printf("  ground:   lat=%.4f° lon=%.4f° alt=%.1f km\n",
		res.Location.LatDeg, res.Location.LonDeg, res.Location.AltKm)
}
