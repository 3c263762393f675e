package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"strconv"

	"target-encoder/internal/dataset"
)

func main() {
	var (
		output     = flag.String("output", "data/sample.csv", "Output CSV path")
		rows       = flag.Int("rows", 10000, "Number of rows to generate")
		categories = flag.Int("categories", 50, "Number of distinct categories")
		missing    = flag.Float64("missing", 0.01, "Share of rows with an empty category")
		regression = flag.Bool("regression", false, "Generate a continuous target instead of a binary one")
		seed       = flag.Uint64("seed", 42, "Random seed")
	)
	flag.Parse()

	fmt.Printf("Generating sample data...\n")
	fmt.Printf("  Rows: %d\n", *rows)
	fmt.Printf("  Categories: %d\n", *categories)
	fmt.Printf("  Output: %s\n", *output)

	if *rows <= 0 || *categories <= 0 {
		log.Fatalf("rows and categories must be positive")
	}

	table, err := generateTable(*rows, *categories, *missing, *regression, *seed)
	if err != nil {
		log.Fatalf("Failed to generate data: %v", err)
	}
	if err := table.SaveCSV(*output); err != nil {
		log.Fatalf("Failed to write data: %v", err)
	}

	fmt.Printf("✓ Generated %d rows in %s\n", table.Len(), *output)
}

// generateTable draws categories with Zipf-like frequencies so that the
// tail holds rare categories, and targets around a latent rate per category.
func generateTable(rows, categories int, missing float64, regression bool, seed uint64) (*dataset.Table, error) {
	rng := rand.New(rand.NewPCG(seed, seed^0x5851f42d4c957f2d))

	names := make([]string, categories)
	rates := make([]float64, categories)
	weights := make([]float64, categories)
	total := 0.0
	for i := range names {
		names[i] = fmt.Sprintf("cat_%03d", i)
		rates[i] = rng.Float64()
		weights[i] = 1 / math.Pow(float64(i+1), 1.1)
		total += weights[i]
	}

	out := make([][]string, rows)
	for r := range out {
		if rng.Float64() < missing {
			out[r] = []string{"", target(rng, 0.5, regression)}
			continue
		}
		c := pick(rng, weights, total)
		out[r] = []string{names[c], target(rng, rates[c], regression)}
	}

	return dataset.New([]string{"category", "target"}, out)
}

func pick(rng *rand.Rand, weights []float64, total float64) int {
	x := rng.Float64() * total
	for i, w := range weights {
		if x < w {
			return i
		}
		x -= w
	}
	return len(weights) - 1
}

func target(rng *rand.Rand, rate float64, regression bool) string {
	if regression {
		return strconv.FormatFloat(rate*100+rng.NormFloat64()*10, 'f', 3, 64)
	}
	if rng.Float64() < rate {
		return "1"
	}
	return "0"
}
