package calc

// CommonSize expresses each line item as a percentage of a base line item,
// period by period. Periods where the base is zero or missing are undefined.
func CommonSize(item, base []float64) []float64 {
	return Ratio(item, base, 100)
}

// CommonSizeTable applies CommonSize to every column against the same base.
func CommonSizeTable(columns map[string][]float64, base []float64) map[string][]float64 {
	out := make(map[string][]float64, len(columns))
	for name, col := range columns {
		out[name] = CommonSize(col, base)
	}
	return out
}
