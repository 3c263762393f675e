package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"target-encoder/internal/storage"
)

func main() {
	var (
		dataPath = flag.String("data", "./data", "Data directory path")
		column   = flag.String("column", "", "Categorical column to inspect")
		since    = flag.Duration("since", 30*24*time.Hour, "How far back to list reports")
		top      = flag.Int("top", 10, "Categories to show per report")
		asJSON   = flag.Bool("json", false, "Print the latest report as JSON")
	)
	flag.Parse()

	if *column == "" {
		log.Fatalf("-column is required")
	}

	fmt.Printf("Inspecting reports in: %s\n", *dataPath)

	// Open storage
	store, err := storage.New(*dataPath)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer store.Close()

	if *asJSON {
		latest, err := store.LatestReport(*column)
		if errors.Is(err, storage.ErrNoReports) {
			fmt.Printf("No reports for column %s\n", *column)
			return
		}
		if err != nil {
			log.Fatalf("Failed to fetch latest report: %v", err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(latest); err != nil {
			log.Fatalf("Failed to encode report: %v", err)
		}
		return
	}

	end := time.Now()
	records, err := store.GetReports(*column, end.Add(-*since), end)
	if err != nil {
		log.Fatalf("Failed to fetch reports: %v", err)
	}
	fmt.Printf("\n%d reports for column %s since %s:\n", len(records), *column, end.Add(-*since).Format(time.RFC3339))

	for _, r := range records {
		fmt.Printf("\n%s  target=%s strategy=%s rows=%d categories=%d global_mean=%.4f fingerprint=%016x\n",
			r.Timestamp.Format(time.RFC3339), r.Target, r.Report.StrategyName, r.Report.Rows,
			r.Report.Categories, r.Report.GlobalMean, r.Fingerprint)
		if r.Report.MissingOutOfFold > 0 {
			fmt.Printf("  missing out-of-fold values: %d\n", r.Report.MissingOutOfFold)
		}
		for i, c := range r.Report.Distribution {
			if i == *top {
				fmt.Printf("  ... %d more\n", len(r.Report.Distribution)-*top)
				break
			}
			fmt.Printf("  %-24q %8d  %6.2f%%\n", c.Category, c.Count, c.Share*100)
		}
	}
}
