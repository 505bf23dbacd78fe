package stats

import (
	"sort"

	"github.com/ssuzuki-dev/enquete/internal/models"
)

// Group is a named subset of answer values sharing one categorical level.
type Group struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// Mean returns the arithmetic mean of the group's values, 0 for an empty group.
func (g Group) Mean() float64 {
	if len(g.Values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range g.Values {
		sum += v
	}
	return sum / float64(len(g.Values))
}

// GroupValues partitions records by groupKey and extracts the answer for
// questionID. Records missing either value are skipped. Groups with fewer
// than two members cannot contribute to within-group variance and are
// dropped. The result is sorted by group name for deterministic iteration.
func GroupValues(records []models.SurveyResponse, groupKey, questionID string) []Group {
	byName := map[string][]float64{}
	for i := range records {
		level, ok := records[i].GroupLevel(groupKey)
		if !ok {
			continue
		}
		v, ok := records[i].Answer(questionID)
		if !ok {
			continue
		}
		byName[level] = append(byName[level], v)
	}
	groups := make([]Group, 0, len(byName))
	for name, values := range byName {
		if len(values) < 2 {
			continue
		}
		groups = append(groups, Group{Name: name, Values: values})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	return groups
}
