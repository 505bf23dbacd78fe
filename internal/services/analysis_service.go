package services

import (
	"sort"

	"github.com/ssuzuki-dev/enquete/internal/models"
	"github.com/ssuzuki-dev/enquete/internal/stats"
)

type AnalysisStore interface {
	ListResponses() ([]models.SurveyResponse, error)
	CountResponses() (int, error)
}

// Detailed analysis is withheld until the dataset is large enough for the
// breakdowns to mean anything.
const (
	minDetailCount = 10 // one-way analysis needs more than this many rows
	minTwoWayCount = 20 // two-way analysis needs more than this many rows
)

// Defaults applied when the caller leaves a selection empty.
const (
	DefaultQuestionID = "q2"
	DefaultGroupKey   = models.GroupKeyGender
	DefaultFactorA    = models.GroupKeyAgeGroup
	DefaultFactorB    = models.GroupKeyGender
)

type AnalysisService struct {
	store AnalysisStore
}

func NewAnalysisService(store AnalysisStore) *AnalysisService {
	return &AnalysisService{store: store}
}

// DemographicCount is one label's respondent count, for the summary charts.
type DemographicCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// QuestionAverage is the overall mean score of one question (radar chart).
type QuestionAverage struct {
	QuestionID string  `json:"question_id"`
	Mean       float64 `json:"mean"`
	N          int     `json:"n"`
}

// Summary is the aggregate view every authenticated user may see.
type Summary struct {
	TotalCount       int                `json:"total_count"`
	Gender           []DemographicCount `json:"gender"`
	AgeGroups        []DemographicCount `json:"age_groups"`
	IncomeGroups     []DemographicCount `json:"income_groups"`
	QuestionAverages []QuestionAverage  `json:"question_averages"`
}

// AnalysisRequest selects what to break down. Zero-value fields fall back to
// the defaults above.
type AnalysisRequest struct {
	QuestionID string `json:"question_id"`
	GroupKey   string `json:"group_key"`
	FactorA    string `json:"factor_a"`
	FactorB    string `json:"factor_b"`
}

func (r *AnalysisRequest) applyDefaults() {
	if r.QuestionID == "" {
		r.QuestionID = DefaultQuestionID
	}
	if r.GroupKey == "" {
		r.GroupKey = DefaultGroupKey
	}
	if r.FactorA == "" {
		r.FactorA = DefaultFactorA
	}
	if r.FactorB == "" {
		r.FactorB = DefaultFactorB
	}
}

func validQuestionID(q string) bool {
	for _, id := range models.QuestionIDs {
		if q == id {
			return true
		}
	}
	return false
}

func validGroupKey(k string) bool {
	for _, key := range models.GroupKeys {
		if k == key {
			return true
		}
	}
	return false
}

// GroupMean is one group's mean score, for the bar chart next to the table.
type GroupMean struct {
	Name string  `json:"name"`
	Mean float64 `json:"mean"`
	N    int     `json:"n"`
}

// InteractionSeries is one factor-B level's line across factor-A levels, for
// the interaction plot.
type InteractionSeries struct {
	Label string    `json:"label"`
	Means []float64 `json:"means"`
}

// AnalysisReport packages every breakdown for one request. Precondition
// failures are explanatory messages, not errors: the caller renders them.
type AnalysisReport struct {
	Request    AnalysisRequest `json:"request"`
	TotalCount int             `json:"total_count"`

	OneWay        *stats.OneWayResult    `json:"one_way,omitempty"`
	OneWayMessage string                 `json:"one_way_message,omitempty"`
	GroupMeans    []GroupMean            `json:"group_means,omitempty"`
	Tukey         []stats.PairComparison `json:"tukey,omitempty"`

	TwoWay        *stats.TwoWayResult `json:"two_way,omitempty"`
	TwoWayMessage string              `json:"two_way_message,omitempty"`
	Interaction   []InteractionSeries `json:"interaction,omitempty"`
}

// Summary aggregates demographics and per-question means over all responses.
func (s *AnalysisService) Summary() (*Summary, error) {
	records, err := s.store.ListResponses()
	if err != nil {
		return nil, err
	}
	genderCounts := map[string]int{}
	ageCounts := map[string]int{}
	incomeCounts := map[string]int{}
	sums := map[string]float64{}
	counts := map[string]int{}
	for i := range records {
		r := &records[i]
		genderCounts[r.Gender]++
		ageCounts[r.AgeGroup()]++
		incomeCounts[r.IncomeGroup()]++
		for _, q := range models.QuestionIDs {
			if v, ok := r.Answer(q); ok {
				sums[q] += v
				counts[q]++
			}
		}
	}
	averages := make([]QuestionAverage, 0, len(models.QuestionIDs))
	for _, q := range models.QuestionIDs {
		avg := QuestionAverage{QuestionID: q, N: counts[q]}
		if avg.N > 0 {
			avg.Mean = sums[q] / float64(avg.N)
		}
		averages = append(averages, avg)
	}
	return &Summary{
		TotalCount:       len(records),
		Gender:           sortedCounts(genderCounts),
		AgeGroups:        sortedCounts(ageCounts),
		IncomeGroups:     sortedCounts(incomeCounts),
		QuestionAverages: averages,
	}, nil
}

func sortedCounts(m map[string]int) []DemographicCount {
	labels := make([]string, 0, len(m))
	for l := range m {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	out := make([]DemographicCount, 0, len(labels))
	for _, l := range labels {
		out = append(out, DemographicCount{Label: l, Count: m[l]})
	}
	return out
}

// Analyze runs the one-way pipeline (ANOVA, then Tukey when significant) and
// the two-way pipeline over a fresh record snapshot. Results are never cached:
// grouping and question selection vary per call.
func (s *AnalysisService) Analyze(req AnalysisRequest) (*AnalysisReport, error) {
	req.applyDefaults()
	if !validQuestionID(req.QuestionID) {
		return nil, NewInvalidError("unknown question id: " + req.QuestionID)
	}
	if !validGroupKey(req.GroupKey) {
		return nil, NewInvalidError("unknown group key: " + req.GroupKey)
	}
	if !validGroupKey(req.FactorA) {
		return nil, NewInvalidError("unknown factor A key: " + req.FactorA)
	}
	if !validGroupKey(req.FactorB) {
		return nil, NewInvalidError("unknown factor B key: " + req.FactorB)
	}

	// Cheap count gate before pulling the full snapshot.
	total, err := s.store.CountResponses()
	if err != nil {
		return nil, err
	}
	report := &AnalysisReport{Request: req, TotalCount: total}
	if report.TotalCount <= minDetailCount {
		report.OneWayMessage = "not enough responses yet: detailed analysis needs more than 10"
		report.TwoWayMessage = "not enough responses yet: two-way analysis needs more than 20"
		return report, nil
	}

	records, err := s.store.ListResponses()
	if err != nil {
		return nil, err
	}

	groups := stats.GroupValues(records, req.GroupKey, req.QuestionID)
	if ow := stats.OneWayANOVA(groups); ow != nil {
		report.OneWay = ow
		report.GroupMeans = groupMeans(ow.Groups)
		if ow.SignificanceLevel > 0 {
			report.Tukey = stats.TukeyHSD(ow.Groups, ow.MSWithin, ow.DFWithin)
		}
	} else {
		report.OneWayMessage = "cannot analyze: need at least two groups with two or more responses each"
	}

	switch {
	case req.FactorA == req.FactorB:
		report.TwoWayMessage = "factor A and factor B must be different groupings"
	case report.TotalCount <= minTwoWayCount:
		report.TwoWayMessage = "not enough responses yet: two-way analysis needs more than 20"
	default:
		tw, err := stats.TwoWayANOVA(records, req.FactorA, req.FactorB, req.QuestionID)
		if err != nil {
			report.TwoWayMessage = err.Error()
		} else {
			report.TwoWay = tw
			report.Interaction = interactionSeries(tw)
		}
	}
	return report, nil
}

func groupMeans(groups []stats.Group) []GroupMean {
	out := make([]GroupMean, 0, len(groups))
	for _, g := range groups {
		out = append(out, GroupMean{Name: g.Name, Mean: g.Mean(), N: len(g.Values)})
	}
	return out
}

func interactionSeries(tw *stats.TwoWayResult) []InteractionSeries {
	out := make([]InteractionSeries, 0, len(tw.FactorBLevels))
	for _, lb := range tw.FactorBLevels {
		series := InteractionSeries{Label: lb, Means: make([]float64, 0, len(tw.FactorALevels))}
		for _, la := range tw.FactorALevels {
			series.Means = append(series.Means, tw.CellStats[la][lb].Mean)
		}
		out = append(out, series)
	}
	return out
}
