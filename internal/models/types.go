package models

import "time"

// Gender values accepted on submission.
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

// Disability values accepted on submission.
const (
	DisabilityYes = "yes"
	DisabilityNo  = "no"
)

// Staff roles, ordered from most to least privileged.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RoleViewer = "viewer"
)

// Grouping keys selectable for analysis.
const (
	GroupKeyGender      = "gender"
	GroupKeyAgeGroup    = "age_group"
	GroupKeyIncomeGroup = "income_group"
	GroupKeyDisability  = "disability"
)

// Age brackets derived from the raw age.
const (
	AgeUnder30 = "under-30"
	Age30s     = "30s"
	Age40s     = "40s"
	Age50s     = "50s"
	Age60Plus  = "60-plus"
)

// Income brackets derived from the raw income (in thousands).
const (
	IncomeUnder400 = "under-400"
	Income400to799 = "400-799"
	Income800Plus  = "800-plus"
)

// Likert answer bounds.
const (
	LikertMin = 1
	LikertMax = 5
)

// QuestionIDs lists the ten fixed questionnaire items in order.
var QuestionIDs = []string{"q1", "q2", "q3", "q4", "q5", "q6", "q7", "q8", "q9", "q10"}

// GroupKeys lists the categorical keys usable as ANOVA factors.
var GroupKeys = []string{GroupKeyGender, GroupKeyAgeGroup, GroupKeyIncomeGroup, GroupKeyDisability}

// SurveyResponse is one respondent's submission. Records are immutable once
// loaded into the analysis core; the core only reads snapshot slices.
type SurveyResponse struct {
	ID          int64          `json:"id"`
	Age         int            `json:"age"`
	Gender      string         `json:"gender"`
	Income      int            `json:"income"` // annual income, thousands
	Disability  string         `json:"disability"`
	Answers     map[string]int `json:"answers"` // q1..q10 -> 1..5
	SubmittedAt time.Time      `json:"submitted_at"`
}

// AgeGroup returns the fixed age bracket for the record.
func (r *SurveyResponse) AgeGroup() string {
	switch {
	case r.Age < 30:
		return AgeUnder30
	case r.Age < 40:
		return Age30s
	case r.Age < 50:
		return Age40s
	case r.Age < 60:
		return Age50s
	default:
		return Age60Plus
	}
}

// IncomeGroup returns the fixed income bracket for the record.
func (r *SurveyResponse) IncomeGroup() string {
	switch {
	case r.Income < 400:
		return IncomeUnder400
	case r.Income < 800:
		return Income400to799
	default:
		return Income800Plus
	}
}

// Answer returns the Likert value for a question id, reporting ok=false when
// the value is unset or outside the 1..5 range. Such records are excluded
// from any computation over that question.
func (r *SurveyResponse) Answer(questionID string) (float64, bool) {
	v, ok := r.Answers[questionID]
	if !ok || v < LikertMin || v > LikertMax {
		return 0, false
	}
	return float64(v), true
}

// GroupLevel resolves a grouping key against the record, using the derived
// brackets for age_group and income_group. ok=false for an unknown key or an
// empty attribute value.
func (r *SurveyResponse) GroupLevel(key string) (string, bool) {
	switch key {
	case GroupKeyGender:
		return r.Gender, r.Gender != ""
	case GroupKeyAgeGroup:
		return r.AgeGroup(), true
	case GroupKeyIncomeGroup:
		return r.IncomeGroup(), true
	case GroupKeyDisability:
		return r.Disability, r.Disability != ""
	default:
		return "", false
	}
}

// User is a staff account for the reporting screens.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	PassHash  []byte    `json:"-"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidRole reports whether s is one of the known staff roles.
func ValidRole(s string) bool {
	return s == RoleAdmin || s == RoleEditor || s == RoleViewer
}
