package stats

import "math"

// PairComparison is one Tukey HSD pairwise comparison.
type PairComparison struct {
	GroupA      string  `json:"group_a"`
	GroupB      string  `json:"group_b"`
	Diff        float64 `json:"diff"` // absolute mean difference
	HSD         float64 `json:"hsd"`  // critical threshold for this pair
	Significant bool    `json:"significant"`
}

// TukeyHSD runs the honestly-significant-difference post-hoc test over all
// unordered group pairs, using the within-group mean square and df from the
// preceding one-way ANOVA. Callers invoke it only after the ANOVA found
// significance; the engine itself only requires k >= 2 and msWithin > 0,
// returning nil otherwise. Pairs follow the incoming group order (i < j).
func TukeyHSD(groups []Group, msWithin float64, dfWithin int) []PairComparison {
	k := len(groups)
	if k < 2 || msWithin <= 0 {
		return nil
	}
	q := QCritical(k, dfWithin, Alpha05)

	comparisons := make([]PairComparison, 0, k*(k-1)/2)
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			a, b := groups[i], groups[j]
			na, nb := len(a.Values), len(b.Values)
			if na == 0 || nb == 0 {
				continue
			}
			hsd := q * math.Sqrt(msWithin*(1/float64(na)+1/float64(nb))/2)
			diff := math.Abs(a.Mean() - b.Mean())
			comparisons = append(comparisons, PairComparison{
				GroupA:      a.Name,
				GroupB:      b.Name,
				Diff:        diff,
				HSD:         hsd,
				Significant: diff > hsd,
			})
		}
	}
	return comparisons
}
