package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ssuzuki-dev/enquete/internal/logger"
	"github.com/ssuzuki-dev/enquete/internal/models"
	"github.com/ssuzuki-dev/enquete/internal/services"
)

// SQLiteStore backs every service store interface with one SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

var (
	_ services.ResponseStore = (*SQLiteStore)(nil)
	_ services.AnalysisStore = (*SQLiteStore)(nil)
	_ services.AuthStore     = (*SQLiteStore)(nil)
	_ services.UserStore     = (*SQLiteStore)(nil)
)

// Open opens (creating if necessary) the SQLite database at path.
func Open(path string) (*sql.DB, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_busy_timeout=5000", filepath.ToSlash(path))
	return sql.Open("sqlite3", dsn)
}

func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const timeLayout = time.RFC3339

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		logger.Warn("sqlite store: parse time %q: %v", s, err)
		return time.Time{}
	}
	return t
}

const responseColumns = "id, age, gender, income, disability, q1, q2, q3, q4, q5, q6, q7, q8, q9, q10, submitted_at"

func scanResponse(scan func(dest ...any) error) (*models.SurveyResponse, error) {
	var r models.SurveyResponse
	var answers [10]int
	var submitted string
	dest := []any{&r.ID, &r.Age, &r.Gender, &r.Income, &r.Disability}
	for i := range answers {
		dest = append(dest, &answers[i])
	}
	dest = append(dest, &submitted)
	if err := scan(dest...); err != nil {
		return nil, err
	}
	r.Answers = make(map[string]int, len(models.QuestionIDs))
	for i, q := range models.QuestionIDs {
		r.Answers[q] = answers[i]
	}
	r.SubmittedAt = parseTime(submitted)
	return &r, nil
}

func (s *SQLiteStore) InsertResponse(r *models.SurveyResponse) (*models.SurveyResponse, error) {
	args := []any{r.Age, r.Gender, r.Income, r.Disability}
	for _, q := range models.QuestionIDs {
		args = append(args, r.Answers[q])
	}
	args = append(args, r.SubmittedAt.UTC().Format(timeLayout))
	res, err := s.db.Exec(`INSERT INTO responses
		(age, gender, income, disability, q1, q2, q3, q4, q5, q6, q7, q8, q9, q10, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
	if err != nil {
		return nil, fmt.Errorf("insert response: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert response id: %w", err)
	}
	out := *r
	out.ID = id
	return &out, nil
}

func (s *SQLiteStore) GetResponse(id int64) (*models.SurveyResponse, error) {
	row := s.db.QueryRow("SELECT "+responseColumns+" FROM responses WHERE id = ?", id)
	r, err := scanResponse(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get response: %w", err)
	}
	return r, nil
}

func (s *SQLiteStore) ListResponses() ([]models.SurveyResponse, error) {
	rows, err := s.db.Query("SELECT " + responseColumns + " FROM responses ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	defer rows.Close()
	var out []models.SurveyResponse
	for rows.Next() {
		r, err := scanResponse(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpdateResponse(r *models.SurveyResponse) error {
	args := []any{r.Age, r.Gender, r.Income, r.Disability}
	for _, q := range models.QuestionIDs {
		args = append(args, r.Answers[q])
	}
	args = append(args, r.ID)
	res, err := s.db.Exec(`UPDATE responses SET
		age = ?, gender = ?, income = ?, disability = ?,
		q1 = ?, q2 = ?, q3 = ?, q4 = ?, q5 = ?, q6 = ?, q7 = ?, q8 = ?, q9 = ?, q10 = ?
		WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update response: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return services.NewNotFoundError("response not found")
	}
	return nil
}

func (s *SQLiteStore) DeleteResponse(id int64) error {
	_, err := s.db.Exec("DELETE FROM responses WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete response: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CountResponses() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM responses").Scan(&n); err != nil {
		return 0, fmt.Errorf("count responses: %w", err)
	}
	return n, nil
}

func scanUser(scan func(dest ...any) error) (*models.User, error) {
	var u models.User
	var created string
	if err := scan(&u.ID, &u.Username, &u.PassHash, &u.Role, &created); err != nil {
		return nil, err
	}
	u.CreatedAt = parseTime(created)
	return &u, nil
}

const userColumns = "id, username, pass_hash, role, created_at"

func (s *SQLiteStore) FindUserByUsername(username string) (*models.User, error) {
	row := s.db.QueryRow("SELECT "+userColumns+" FROM users WHERE username = ?", username)
	u, err := scanUser(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

func (s *SQLiteStore) GetUser(id string) (*models.User, error) {
	row := s.db.QueryRow("SELECT "+userColumns+" FROM users WHERE id = ?", id)
	u, err := scanUser(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *SQLiteStore) AddUser(u *models.User) error {
	_, err := s.db.Exec("INSERT INTO users (id, username, pass_hash, role, created_at) VALUES (?, ?, ?, ?, ?)",
		u.ID, u.Username, u.PassHash, u.Role, u.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("add user: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateUserPassword(id string, hash []byte) error {
	res, err := s.db.Exec("UPDATE users SET pass_hash = ? WHERE id = ?", hash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return services.NewNotFoundError("user not found")
	}
	return nil
}

func (s *SQLiteStore) ListUsers() ([]models.User, error) {
	rows, err := s.db.Query("SELECT " + userColumns + " FROM users ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()
	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpdateUserRole(id, role string) error {
	res, err := s.db.Exec("UPDATE users SET role = ? WHERE id = ?", role, id)
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return services.NewNotFoundError("user not found")
	}
	return nil
}

func (s *SQLiteStore) DeleteUser(id string) error {
	_, err := s.db.Exec("DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CountUsersByRole(role string) (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM users WHERE role = ?", role).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}
