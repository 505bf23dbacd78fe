package services

import (
	"fmt"
	"time"

	"github.com/ssuzuki-dev/enquete/internal/models"
)

type ResponseStore interface {
	InsertResponse(r *models.SurveyResponse) (*models.SurveyResponse, error)
	GetResponse(id int64) (*models.SurveyResponse, error)
	ListResponses() ([]models.SurveyResponse, error)
	UpdateResponse(r *models.SurveyResponse) error
	DeleteResponse(id int64) error
}

// SubmitInput is one questionnaire submission before validation.
type SubmitInput struct {
	Age        int            `json:"age"`
	Gender     string         `json:"gender"`
	Income     int            `json:"income"`
	Disability string         `json:"disability"`
	Answers    map[string]int `json:"answers"`
}

type ResponseService struct {
	store ResponseStore
	now   func() time.Time
}

func NewResponseService(store ResponseStore) *ResponseService {
	return &ResponseService{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func validateSubmission(in SubmitInput) error {
	if in.Age < 0 {
		return NewInvalidError("age must be 0 or greater")
	}
	switch in.Gender {
	case models.GenderMale, models.GenderFemale, models.GenderOther:
	default:
		return NewInvalidError("gender must be male, female or other")
	}
	if in.Income < 0 {
		return NewInvalidError("income must be 0 or greater")
	}
	switch in.Disability {
	case models.DisabilityYes, models.DisabilityNo:
	default:
		return NewInvalidError("disability must be yes or no")
	}
	if len(in.Answers) != len(models.QuestionIDs) {
		return NewInvalidError(fmt.Sprintf("answers must cover all %d questions", len(models.QuestionIDs)))
	}
	for _, q := range models.QuestionIDs {
		v, ok := in.Answers[q]
		if !ok {
			return NewInvalidError(fmt.Sprintf("answer for %s is missing", q))
		}
		if v < models.LikertMin || v > models.LikertMax {
			return NewInvalidError(fmt.Sprintf("answer for %s must be between %d and %d", q, models.LikertMin, models.LikertMax))
		}
	}
	return nil
}

// Submit validates and stores one questionnaire submission.
func (s *ResponseService) Submit(in SubmitInput) (*models.SurveyResponse, error) {
	if err := validateSubmission(in); err != nil {
		return nil, err
	}
	answers := make(map[string]int, len(models.QuestionIDs))
	for _, q := range models.QuestionIDs {
		answers[q] = in.Answers[q]
	}
	r := &models.SurveyResponse{
		Age:         in.Age,
		Gender:      in.Gender,
		Income:      in.Income,
		Disability:  in.Disability,
		Answers:     answers,
		SubmittedAt: s.now(),
	}
	return s.store.InsertResponse(r)
}

func (s *ResponseService) List() ([]models.SurveyResponse, error) {
	return s.store.ListResponses()
}

func (s *ResponseService) Get(id int64) (*models.SurveyResponse, error) {
	r, err := s.store.GetResponse(id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, NewNotFoundError("response not found")
	}
	return r, nil
}

// Update replaces an existing response's fields after the same validation as
// a fresh submission. The original submission time is kept.
func (s *ResponseService) Update(id int64, in SubmitInput) (*models.SurveyResponse, error) {
	existing, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if err := validateSubmission(in); err != nil {
		return nil, err
	}
	existing.Age = in.Age
	existing.Gender = in.Gender
	existing.Income = in.Income
	existing.Disability = in.Disability
	existing.Answers = in.Answers
	if err := s.store.UpdateResponse(existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *ResponseService) Delete(id int64) error {
	if _, err := s.Get(id); err != nil {
		return err
	}
	return s.store.DeleteResponse(id)
}
