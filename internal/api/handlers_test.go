package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ssuzuki-dev/enquete/internal/middleware"
	"github.com/ssuzuki-dev/enquete/internal/models"
	"github.com/ssuzuki-dev/enquete/internal/services"
)

// memStore implements every service store interface in memory.
type memStore struct {
	responses map[int64]*models.SurveyResponse
	nextID    int64
	users     map[string]*models.User
}

func newMemStore() *memStore {
	return &memStore{
		responses: map[int64]*models.SurveyResponse{},
		nextID:    1,
		users:     map[string]*models.User{},
	}
}

func (m *memStore) InsertResponse(r *models.SurveyResponse) (*models.SurveyResponse, error) {
	saved := *r
	saved.ID = m.nextID
	m.nextID++
	m.responses[saved.ID] = &saved
	return &saved, nil
}

func (m *memStore) GetResponse(id int64) (*models.SurveyResponse, error) {
	r, ok := m.responses[id]
	if !ok {
		return nil, nil
	}
	copied := *r
	return &copied, nil
}

func (m *memStore) ListResponses() ([]models.SurveyResponse, error) {
	out := make([]models.SurveyResponse, 0, len(m.responses))
	for id := int64(1); id < m.nextID; id++ {
		if r, ok := m.responses[id]; ok {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memStore) UpdateResponse(r *models.SurveyResponse) error {
	if _, ok := m.responses[r.ID]; !ok {
		return services.NewNotFoundError("response not found")
	}
	copied := *r
	m.responses[r.ID] = &copied
	return nil
}

func (m *memStore) DeleteResponse(id int64) error {
	delete(m.responses, id)
	return nil
}

func (m *memStore) CountResponses() (int, error) { return len(m.responses), nil }

func (m *memStore) FindUserByUsername(username string) (*models.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memStore) GetUser(id string) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (m *memStore) AddUser(u *models.User) error {
	copied := *u
	m.users[u.ID] = &copied
	return nil
}

func (m *memStore) UpdateUserPassword(id string, hash []byte) error {
	u, ok := m.users[id]
	if !ok {
		return services.NewNotFoundError("user not found")
	}
	u.PassHash = hash
	return nil
}

func (m *memStore) ListUsers() ([]models.User, error) {
	out := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, nil
}

func (m *memStore) UpdateUserRole(id, role string) error {
	u, ok := m.users[id]
	if !ok {
		return services.NewNotFoundError("user not found")
	}
	u.Role = role
	return nil
}

func (m *memStore) DeleteUser(id string) error {
	delete(m.users, id)
	return nil
}

func (m *memStore) CountUsersByRole(role string) (int, error) {
	n := 0
	for _, u := range m.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

type testEnv struct {
	store   *memStore
	auth    *middleware.Auth
	handler http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newMemStore()
	auth := middleware.NewAuth("test-secret")
	router := NewRouter(
		services.NewResponseService(store),
		services.NewAnalysisService(store),
		services.NewAuthService(store, auth.SignToken),
		services.NewUserService(store),
	)
	return &testEnv{store: store, auth: auth, handler: router.Handler(auth, "")}
}

func (e *testEnv) addUser(t *testing.T, id, username, password, role string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	err = e.store.AddUser(&models.User{ID: id, Username: username, PassHash: hash, Role: role, CreatedAt: time.Now().UTC()})
	if err != nil {
		t.Fatalf("add user: %v", err)
	}
}

func (e *testEnv) token(t *testing.T, id, username, role string) string {
	t.Helper()
	tok, err := e.auth.SignToken(id, username, role, time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func validSubmission() map[string]any {
	answers := map[string]int{}
	for _, q := range models.QuestionIDs {
		answers[q] = 3
	}
	return map[string]any{
		"age":        29,
		"gender":     models.GenderFemale,
		"income":     450,
		"disability": models.DisabilityNo,
		"answers":    answers,
	}
}

func TestSubmitResponse(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/responses", "", validSubmission())
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var out models.SurveyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.ID != 1 || out.Gender != models.GenderFemale {
		t.Fatalf("unexpected response: %+v", out)
	}
}

func TestSubmitRejectsBadAnswers(t *testing.T) {
	env := newTestEnv(t)
	body := validSubmission()
	body["answers"].(map[string]int)["q3"] = 9
	rec := env.do(t, http.MethodPost, "/api/responses", "", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	var out errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Code != string(services.ErrorInvalid) {
		t.Fatalf("code = %q", out.Code)
	}
}

func TestSubmitRejectsMalformedJSON(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/api/responses", strings.NewReader("{nope"))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSummaryRequiresAuth(t *testing.T) {
	env := newTestEnv(t)
	if rec := env.do(t, http.MethodGet, "/api/analysis/summary", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	tok := env.token(t, "u1", "viewer1", models.RoleViewer)
	if rec := env.do(t, http.MethodGet, "/api/analysis/summary", tok, nil); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestAnalysisForbiddenForViewer(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "u1", "viewer1", models.RoleViewer)
	if rec := env.do(t, http.MethodGet, "/api/analysis", tok, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAnalysisDefaults(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 12; i++ {
		body := validSubmission()
		if i%2 == 0 {
			body["gender"] = models.GenderMale
		}
		if rec := env.do(t, http.MethodPost, "/api/responses", "", body); rec.Code != http.StatusCreated {
			t.Fatalf("seed %d: status = %d", i, rec.Code)
		}
	}
	tok := env.token(t, "u1", "ed1", models.RoleEditor)
	rec := env.do(t, http.MethodGet, "/api/analysis", tok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var report services.AnalysisReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Request.QuestionID != services.DefaultQuestionID {
		t.Fatalf("question = %q", report.Request.QuestionID)
	}
	if report.Request.GroupKey != services.DefaultGroupKey {
		t.Fatalf("group = %q", report.Request.GroupKey)
	}
	if report.TotalCount != 12 {
		t.Fatalf("total = %d", report.TotalCount)
	}
}

func TestAnalysisRejectsUnknownQuestion(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "u1", "ed1", models.RoleEditor)
	rec := env.do(t, http.MethodGet, "/api/analysis?question=q99", tok, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestResponseCRUD(t *testing.T) {
	env := newTestEnv(t)
	if rec := env.do(t, http.MethodPost, "/api/responses", "", validSubmission()); rec.Code != http.StatusCreated {
		t.Fatalf("seed: status = %d", rec.Code)
	}

	editor := env.token(t, "u1", "ed1", models.RoleEditor)
	viewer := env.token(t, "u2", "vw1", models.RoleViewer)

	rec := env.do(t, http.MethodGet, "/api/responses/1", editor, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status = %d", rec.Code)
	}

	body := validSubmission()
	body["age"] = 64
	rec = env.do(t, http.MethodPut, "/api/responses/1", editor, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status = %d, body %s", rec.Code, rec.Body.String())
	}
	var updated models.SurveyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if updated.Age != 64 {
		t.Fatalf("age = %d", updated.Age)
	}

	// viewers cannot touch raw responses
	if rec := env.do(t, http.MethodDelete, "/api/responses/1", viewer, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("viewer delete: status = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, "/api/responses/1", editor, nil); rec.Code != http.StatusOK {
		t.Fatalf("editor delete: status = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/responses/1", editor, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: status = %d", rec.Code)
	}
}

func TestExportResponsesCSV(t *testing.T) {
	env := newTestEnv(t)
	if rec := env.do(t, http.MethodPost, "/api/responses", "", validSubmission()); rec.Code != http.StatusCreated {
		t.Fatalf("seed: status = %d", rec.Code)
	}
	tok := env.token(t, "u1", "ed1", models.RoleEditor)
	rec := env.do(t, http.MethodGet, "/api/export/responses", tok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("content type = %q", ct)
	}
	cd := rec.Header().Get("Content-Disposition")
	want := fmt.Sprintf("survey_data_%s.csv", time.Now().UTC().Format("20060102"))
	if !strings.Contains(cd, want) {
		t.Fatalf("disposition = %q, want name %q", cd, want)
	}
	data := rec.Body.Bytes()
	if !bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) {
		t.Fatal("missing UTF-8 BOM")
	}
	if !strings.Contains(string(data), "id,age,gender") {
		t.Fatalf("unexpected header: %q", string(data[:40]))
	}
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/auth/register", "", credentials{Username: "aoi", Password: "secret1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: status = %d, body %s", rec.Code, rec.Body.String())
	}
	var res services.AuthResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Role != models.RoleViewer || res.Token == "" {
		t.Fatalf("unexpected result: %+v", res)
	}

	// duplicate username
	if rec := env.do(t, http.MethodPost, "/api/auth/register", "", credentials{Username: "aoi", Password: "x"}); rec.Code != http.StatusConflict {
		t.Fatalf("duplicate register: status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/auth/login", "", credentials{Username: "aoi", Password: "secret1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: status = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/api/auth/login", "", credentials{Username: "aoi", Password: "wrong"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: status = %d", rec.Code)
	}

	// the issued token works against a protected route
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err == nil && res.Token != "" {
		if rec := env.do(t, http.MethodGet, "/api/analysis/summary", res.Token, nil); rec.Code != http.StatusOK {
			t.Fatalf("summary with issued token: status = %d", rec.Code)
		}
	}
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "u1", "mika", "oldpass", models.RoleViewer)
	tok := env.token(t, "u1", "mika", models.RoleViewer)

	body := map[string]string{"current_password": "oldpass", "new_password": "newpass"}
	if rec := env.do(t, http.MethodPost, "/api/auth/password", tok, body); rec.Code != http.StatusOK {
		t.Fatalf("change: status = %d, body %s", rec.Code, rec.Body.String())
	}
	if rec := env.do(t, http.MethodPost, "/api/auth/login", "", credentials{Username: "mika", Password: "newpass"}); rec.Code != http.StatusOK {
		t.Fatalf("login with new password: status = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/api/auth/login", "", credentials{Username: "mika", Password: "oldpass"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("login with old password: status = %d", rec.Code)
	}
}

func TestUserAdmin(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "u1", "admin1", "pw", models.RoleAdmin)
	env.addUser(t, "u2", "viewer1", "pw", models.RoleViewer)
	admin := env.token(t, "u1", "admin1", models.RoleAdmin)

	rec := env.do(t, http.MethodGet, "/api/users", admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "pass_hash") {
		t.Fatal("user listing leaks password hashes")
	}

	if rec := env.do(t, http.MethodPut, "/api/users/u2/role", admin, map[string]string{"role": models.RoleEditor}); rec.Code != http.StatusOK {
		t.Fatalf("role update: status = %d, body %s", rec.Code, rec.Body.String())
	}
	u, _ := env.store.GetUser("u2")
	if u.Role != models.RoleEditor {
		t.Fatalf("role = %q", u.Role)
	}

	// cannot demote the only admin
	if rec := env.do(t, http.MethodPut, "/api/users/u1/role", admin, map[string]string{"role": models.RoleViewer}); rec.Code != http.StatusConflict {
		t.Fatalf("demote last admin: status = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, "/api/users/u1", admin, nil); rec.Code != http.StatusConflict {
		t.Fatalf("delete last admin: status = %d", rec.Code)
	}

	if rec := env.do(t, http.MethodDelete, "/api/users/u2", admin, nil); rec.Code != http.StatusOK {
		t.Fatalf("delete viewer: status = %d", rec.Code)
	}

	// user administration is admin-only
	editor := env.token(t, "u3", "ed1", models.RoleEditor)
	if rec := env.do(t, http.MethodGet, "/api/users", editor, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("editor list: status = %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
