package services

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"github.com/ssuzuki-dev/enquete/internal/models"
)

// utf8BOM is prefixed to CSV downloads so Excel detects the encoding.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ExportResponsesCSV renders all survey responses as a wide CSV, one row per
// respondent, answers in fixed q1..q10 column order.
func ExportResponsesCSV(rows []models.SurveyResponse) ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.Write(utf8BOM)
	w := csv.NewWriter(buf)
	header := []string{"id", "age", "gender", "income", "disability"}
	header = append(header, models.QuestionIDs...)
	header = append(header, "submitted_at")
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for i := range rows {
		r := &rows[i]
		rec := []string{
			strconv.FormatInt(r.ID, 10),
			strconv.Itoa(r.Age),
			r.Gender,
			strconv.Itoa(r.Income),
			r.Disability,
		}
		for _, q := range models.QuestionIDs {
			rec = append(rec, strconv.Itoa(r.Answers[q]))
		}
		rec = append(rec, r.SubmittedAt.UTC().Format("2006-01-02 15:04:05"))
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ExportUsersCSV renders the staff account list. Password hashes are never
// exported.
func ExportUsersCSV(users []models.User) ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.Write(utf8BOM)
	w := csv.NewWriter(buf)
	if err := w.Write([]string{"id", "username", "role", "created_at"}); err != nil {
		return nil, err
	}
	for i := range users {
		u := &users[i]
		rec := []string{u.ID, u.Username, u.Role, u.CreatedAt.UTC().Format("2006-01-02 15:04:05")}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
