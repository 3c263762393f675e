package encoding

// Statistic aggregates the target values of every row sharing one category.
type Statistic struct {
	Count int     `json:"count"`
	Sum   float64 `json:"sum"`
	Mean  float64 `json:"mean"`
}

// CollectStats groups rows by category and computes count and mean of
// their targets. The columns are paired positionally; callers validate
// that they have equal length.
func CollectStats[C comparable](categories []C, targets []float64) map[C]Statistic {
	stats := make(map[C]Statistic)
	for i, c := range categories {
		s := stats[c]
		s.Count++
		s.Sum += targets[i]
		stats[c] = s
	}
	return finalize(stats)
}

// collectStatsAt is CollectStats restricted to the given row indices.
func collectStatsAt[C comparable](categories []C, targets []float64, rows []int) map[C]Statistic {
	stats := make(map[C]Statistic)
	for _, r := range rows {
		s := stats[categories[r]]
		s.Count++
		s.Sum += targets[r]
		stats[categories[r]] = s
	}
	return finalize(stats)
}

func finalize[C comparable](stats map[C]Statistic) map[C]Statistic {
	for c, s := range stats {
		s.Mean = s.Sum / float64(s.Count)
		stats[c] = s
	}
	return stats
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
