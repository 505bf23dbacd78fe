package stats

// OneWayResult holds the full one-way ANOVA decomposition for one question
// over one grouping key.
type OneWayResult struct {
	DFBetween int     `json:"df_between"`
	SSBetween float64 `json:"ss_between"`
	MSBetween float64 `json:"ms_between"`
	DFWithin  int     `json:"df_within"`
	SSWithin  float64 `json:"ss_within"`
	MSWithin  float64 `json:"ms_within"`
	FValue    float64 `json:"f_value"`

	CriticalValue05 float64 `json:"critical_value_05"`
	CriticalValue01 float64 `json:"critical_value_01"`
	// SignificanceLevel is the tighter alpha the F statistic exceeds:
	// 0.01, 0.05 or 0 for not significant.
	SignificanceLevel float64 `json:"significance_level"`

	// Groups are the retained groups the decomposition was computed over.
	Groups []Group `json:"groups"`
}

// OneWayANOVA computes a one-way analysis of variance over the given groups.
// Groups are expected pre-filtered (n >= 2 each) and sorted; see GroupValues.
// Returns nil when fewer than two groups or too few total values remain,
// which callers must treat as "cannot analyze" rather than a fault.
func OneWayANOVA(groups []Group) *OneWayResult {
	k := len(groups)
	n := 0
	for _, g := range groups {
		n += len(g.Values)
	}
	if k < 2 || n < 3 {
		return nil
	}

	var grandSum float64
	for _, g := range groups {
		for _, v := range g.Values {
			grandSum += v
		}
	}
	grandMean := grandSum / float64(n)

	var ssBetween, ssWithin float64
	for _, g := range groups {
		mean := g.Mean()
		d := mean - grandMean
		ssBetween += float64(len(g.Values)) * d * d
		for _, v := range g.Values {
			e := v - mean
			ssWithin += e * e
		}
	}

	dfBetween := k - 1
	dfWithin := n - k
	if dfBetween <= 0 || dfWithin <= 0 {
		return nil
	}

	msBetween := ssBetween / float64(dfBetween)
	msWithin := ssWithin / float64(dfWithin)
	fValue := 0.0
	if msWithin > 0 {
		fValue = msBetween / msWithin
	}

	crit05 := FCritical(dfBetween, dfWithin, Alpha05)
	crit01 := FCritical(dfBetween, dfWithin, Alpha01)
	level := 0.0
	switch {
	case fValue > crit01:
		level = Alpha01
	case fValue > crit05:
		level = Alpha05
	}

	return &OneWayResult{
		DFBetween:         dfBetween,
		SSBetween:         ssBetween,
		MSBetween:         msBetween,
		DFWithin:          dfWithin,
		SSWithin:          ssWithin,
		MSWithin:          msWithin,
		FValue:            fValue,
		CriticalValue05:   crit05,
		CriticalValue01:   crit01,
		SignificanceLevel: level,
		Groups:            groups,
	}
}
