package stats

import (
	"fmt"
	"sort"

	"github.com/ssuzuki-dev/enquete/internal/models"
)

// InsufficientCellError reports a factor-level combination with fewer than
// two observations, which makes the two-way decomposition impossible.
type InsufficientCellError struct {
	FactorA string
	FactorB string
	LevelA  string
	LevelB  string
	N       int
}

func (e *InsufficientCellError) Error() string {
	return fmt.Sprintf("every factor combination needs at least 2 responses: %s=%s, %s=%s has %d",
		e.FactorA, e.LevelA, e.FactorB, e.LevelB, e.N)
}

// TooFewLevelsError reports a factor with fewer than two observed levels.
type TooFewLevelsError struct {
	Factor string
	Levels int
}

func (e *TooFewLevelsError) Error() string {
	return fmt.Sprintf("factor %s needs at least 2 levels, observed %d", e.Factor, e.Levels)
}

// InvalidDFError reports a degrees-of-freedom bookkeeping failure.
type InvalidDFError struct{}

func (e *InvalidDFError) Error() string { return "degrees of freedom invalid: insufficient data" }

// FactorBlock is the {SS, df, MS, F, significance} block for one effect.
type FactorBlock struct {
	SS float64 `json:"ss"`
	DF int     `json:"df"`
	MS float64 `json:"ms"`
	F  float64 `json:"f"`
	// SignificanceLevel: 0.01, 0.05 or 0, same two-tier rule as one-way.
	SignificanceLevel float64 `json:"significance_level"`
}

// ErrorBlock is the residual {SS, df, MS} block.
type ErrorBlock struct {
	SS float64 `json:"ss"`
	DF int     `json:"df"`
	MS float64 `json:"ms"`
}

// TotalBlock is the total {SS, df} block.
type TotalBlock struct {
	SS float64 `json:"ss"`
	DF int     `json:"df"`
}

// CellStat summarizes one (A-level, B-level) cell.
type CellStat struct {
	Mean float64 `json:"mean"`
	N    int     `json:"n"`
	Sum  float64 `json:"sum"`
}

// TwoWayResult is the full two-factor decomposition with interaction.
type TwoWayResult struct {
	FactorA     FactorBlock `json:"factor_a"`
	FactorB     FactorBlock `json:"factor_b"`
	Interaction FactorBlock `json:"interaction"`
	Error       ErrorBlock  `json:"error"`
	Total       TotalBlock  `json:"total"`

	// CellStats is indexed [A-level][B-level].
	CellStats     map[string]map[string]CellStat `json:"cell_stats"`
	FactorALevels []string                       `json:"factor_a_levels"`
	FactorBLevels []string                       `json:"factor_b_levels"`
}

// TwoWayANOVA computes a two-factor analysis of variance with interaction
// over the cross-tabulation of records by (factorA, factorB) for one
// question. Precondition failures come back as typed errors
// (*InsufficientCellError, *TooFewLevelsError, *InvalidDFError) so callers
// can branch without parsing message text. factorA and factorB must be
// distinct keys; the caller enforces that before invoking the engine.
func TwoWayANOVA(records []models.SurveyResponse, factorA, factorB, questionID string) (*TwoWayResult, error) {
	cells := map[string]map[string][]float64{}
	var all []float64
	for i := range records {
		la, ok := records[i].GroupLevel(factorA)
		if !ok {
			continue
		}
		lb, ok := records[i].GroupLevel(factorB)
		if !ok {
			continue
		}
		v, ok := records[i].Answer(questionID)
		if !ok {
			continue
		}
		if cells[la] == nil {
			cells[la] = map[string][]float64{}
		}
		cells[la][lb] = append(cells[la][lb], v)
		all = append(all, v)
	}

	aLevels := make([]string, 0, len(cells))
	for la := range cells {
		aLevels = append(aLevels, la)
	}
	sort.Strings(aLevels)
	bSet := map[string]struct{}{}
	for _, row := range cells {
		for lb := range row {
			bSet[lb] = struct{}{}
		}
	}
	bLevels := make([]string, 0, len(bSet))
	for lb := range bSet {
		bLevels = append(bLevels, lb)
	}
	sort.Strings(bLevels)

	for _, la := range aLevels {
		for _, lb := range bLevels {
			if n := len(cells[la][lb]); n < 2 {
				return nil, &InsufficientCellError{FactorA: factorA, FactorB: factorB, LevelA: la, LevelB: lb, N: n}
			}
		}
	}

	a, b := len(aLevels), len(bLevels)
	if a < 2 {
		return nil, &TooFewLevelsError{Factor: factorA, Levels: a}
	}
	if b < 2 {
		return nil, &TooFewLevelsError{Factor: factorB, Levels: b}
	}

	n := len(all)
	var grandTotal float64
	for _, v := range all {
		grandTotal += v
	}
	correction := grandTotal * grandTotal / float64(n)

	var ssTotal float64
	for _, v := range all {
		ssTotal += v * v
	}
	ssTotal -= correction

	rowTotals := map[string]float64{}
	rowCounts := map[string]int{}
	colTotals := map[string]float64{}
	colCounts := map[string]int{}
	cellStats := map[string]map[string]CellStat{}
	var ssCells float64
	for _, la := range aLevels {
		cellStats[la] = map[string]CellStat{}
		for _, lb := range bLevels {
			values := cells[la][lb]
			cn := len(values)
			var sum float64
			for _, v := range values {
				sum += v
			}
			cellStats[la][lb] = CellStat{Mean: sum / float64(cn), N: cn, Sum: sum}
			rowTotals[la] += sum
			rowCounts[la] += cn
			colTotals[lb] += sum
			colCounts[lb] += cn
			ssCells += sum * sum / float64(cn)
		}
	}
	ssCells -= correction

	var ssA float64
	for _, la := range aLevels {
		ssA += rowTotals[la] * rowTotals[la] / float64(rowCounts[la])
	}
	ssA -= correction

	var ssB float64
	for _, lb := range bLevels {
		ssB += colTotals[lb] * colTotals[lb] / float64(colCounts[lb])
	}
	ssB -= correction

	ssAB := ssCells - ssA - ssB
	ssError := ssTotal - ssCells

	dfA := a - 1
	dfB := b - 1
	dfAB := dfA * dfB
	dfError := n - a*b
	if dfA <= 0 || dfB <= 0 || dfError <= 0 {
		return nil, &InvalidDFError{}
	}

	msA := ssA / float64(dfA)
	msB := ssB / float64(dfB)
	msAB := 0.0
	if dfAB > 0 {
		msAB = ssAB / float64(dfAB)
	}
	msError := ssError / float64(dfError)

	return &TwoWayResult{
		FactorA:       factorEffect(ssA, dfA, msA, msError, dfError),
		FactorB:       factorEffect(ssB, dfB, msB, msError, dfError),
		Interaction:   factorEffect(ssAB, dfAB, msAB, msError, dfError),
		Error:         ErrorBlock{SS: ssError, DF: dfError, MS: msError},
		Total:         TotalBlock{SS: ssTotal, DF: n - 1},
		CellStats:     cellStats,
		FactorALevels: aLevels,
		FactorBLevels: bLevels,
	}, nil
}

func factorEffect(ss float64, df int, ms, msError float64, dfError int) FactorBlock {
	f := 0.0
	if msError > 0 {
		f = ms / msError
	}
	level := 0.0
	switch {
	case f > FCritical(df, dfError, Alpha01):
		level = Alpha01
	case f > FCritical(df, dfError, Alpha05):
		level = Alpha05
	}
	return FactorBlock{SS: ss, DF: df, MS: ms, F: f, SignificanceLevel: level}
}
