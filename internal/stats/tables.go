package stats

// Significance levels supported by the lookup tables.
const (
	Alpha05 = 0.05
	Alpha01 = 0.01
)

// NeverSignificant is returned when a requested critical value falls outside
// the tabulated ranges. No observable F or q statistic exceeds it, so the
// comparison degrades to "not significant" instead of failing.
const NeverSignificant = 999

// Denominator df breakpoints shared by both F tables. A lookup picks the
// largest breakpoint <= df2; anything beyond the last breakpoint uses the
// trailing asymptotic (df2 = infinity) row.
var fDF2Breaks = []int{1, 2, 3, 4, 5, 10, 20, 30, 40, 60, 120}

// F critical values at alpha = 0.05, columns df1 = 1..6.
var fTable05 = [12][6]float64{
	{161.4, 199.5, 215.7, 224.6, 230.2, 234.0},
	{18.51, 19.00, 19.16, 19.25, 19.30, 19.33},
	{10.13, 9.55, 9.28, 9.12, 9.01, 8.94},
	{7.71, 6.94, 6.59, 6.39, 6.26, 6.16},
	{6.61, 5.79, 5.41, 5.19, 5.05, 4.95},
	{4.96, 4.10, 3.71, 3.48, 3.33, 3.22},
	{4.35, 3.49, 3.10, 2.87, 2.71, 2.60},
	{4.17, 3.32, 2.92, 2.69, 2.53, 2.42},
	{4.08, 3.23, 2.84, 2.61, 2.45, 2.34},
	{4.00, 3.15, 2.76, 2.53, 2.37, 2.25},
	{3.92, 3.07, 2.68, 2.45, 2.29, 2.18},
	{3.84, 3.00, 2.60, 2.37, 2.21, 2.10},
}

// F critical values at alpha = 0.01, columns df1 = 1..6.
var fTable01 = [12][6]float64{
	{4052, 4999.5, 5403, 5625, 5764, 5859},
	{98.50, 99.00, 99.17, 99.25, 99.30, 99.33},
	{34.12, 30.82, 29.46, 28.71, 28.24, 27.91},
	{21.20, 18.00, 16.69, 15.98, 15.52, 15.21},
	{16.26, 13.27, 12.06, 11.39, 10.97, 10.67},
	{10.04, 7.56, 6.55, 5.99, 5.64, 5.39},
	{8.10, 5.85, 4.94, 4.43, 4.10, 3.87},
	{7.56, 5.39, 4.51, 4.02, 3.70, 3.47},
	{7.31, 5.18, 4.31, 3.83, 3.51, 3.29},
	{7.08, 4.98, 4.13, 3.65, 3.34, 3.12},
	{6.85, 4.79, 3.95, 3.48, 3.17, 2.96},
	{6.63, 4.61, 3.78, 3.32, 3.02, 2.80},
}

// Error df breakpoints for the studentized-range table; same floor rule, and
// df below the first breakpoint uses the df = 10 row.
var qDFBreaks = []int{10, 15, 20, 30, 40, 60, 120}

// Studentized-range critical values at alpha = 0.05, columns k = 2..6.
var qTable05 = [8][5]float64{
	{3.15, 3.88, 4.33, 4.65, 4.91},
	{3.01, 3.67, 4.08, 4.37, 4.59},
	{2.95, 3.58, 3.96, 4.23, 4.45},
	{2.89, 3.49, 3.85, 4.10, 4.30},
	{2.86, 3.44, 3.79, 4.04, 4.23},
	{2.83, 3.40, 3.74, 3.98, 4.16},
	{2.80, 3.36, 3.68, 3.92, 4.10},
	{2.77, 3.31, 3.63, 3.86, 4.03},
}

// floorIndex returns the index of the largest breakpoint <= v, or
// len(breaks) (the asymptotic row) when v exceeds every breakpoint.
func floorIndex(breaks []int, v int) int {
	if v > breaks[len(breaks)-1] {
		return len(breaks)
	}
	idx := 0
	for i, b := range breaks {
		if v >= b {
			idx = i
		}
	}
	return idx
}

// FCritical returns the tabulated F critical value for (df1, df2) at the
// given alpha. The table carries numerator df up to 6; larger df1 is clamped
// to the df1 = 6 column, a deliberate approximation inherited with the
// hardcoded table. Out-of-range inputs return NeverSignificant.
func FCritical(df1, df2 int, alpha float64) float64 {
	var table *[12][6]float64
	switch alpha {
	case Alpha05:
		table = &fTable05
	case Alpha01:
		table = &fTable01
	default:
		return NeverSignificant
	}
	if df1 < 1 || df2 < 1 {
		return NeverSignificant
	}
	if df1 > 6 {
		df1 = 6
	}
	return table[floorIndex(fDF2Breaks, df2)][df1-1]
}

// QCritical returns the tabulated studentized-range critical value for k
// groups and the given error df. Only alpha = 0.05 is tabulated; k above 6 is
// clamped to the k = 6 column, mirroring the F-table approximation.
func QCritical(k, df int, alpha float64) float64 {
	if alpha != Alpha05 || k < 2 || df < 1 {
		return NeverSignificant
	}
	if k > 6 {
		k = 6
	}
	return qTable05[floorIndex(qDFBreaks, df)][k-2]
}
