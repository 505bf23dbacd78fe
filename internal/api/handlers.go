package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/ssuzuki-dev/enquete/internal/middleware"
	"github.com/ssuzuki-dev/enquete/internal/services"
)

// POST /api/responses
func (rt *Router) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var in services.SubmitInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	saved, err := rt.responses.Submit(in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// GET /api/responses
func (rt *Router) handleListResponses(w http.ResponseWriter, _ *http.Request) {
	list, err := rt.responses.List()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"responses": list, "count": len(list)})
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, services.NewInvalidError("invalid response id")
	}
	return id, nil
}

// GET /api/responses/{id}
func (rt *Router) handleGetResponse(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	resp, err := rt.responses.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// PUT /api/responses/{id}
func (rt *Router) handleUpdateResponse(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var in services.SubmitInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	updated, err := rt.responses.Update(id, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DELETE /api/responses/{id}
func (rt *Router) handleDeleteResponse(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := rt.responses.Delete(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// GET /api/analysis/summary
func (rt *Router) handleSummary(w http.ResponseWriter, _ *http.Request) {
	sum, err := rt.analysis.Summary()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// GET /api/analysis?question=q2&group=gender&factor_a=age_group&factor_b=gender
func (rt *Router) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	report, err := rt.analysis.Analyze(services.AnalysisRequest{
		QuestionID: q.Get("question"),
		GroupKey:   q.Get("group"),
		FactorA:    q.Get("factor_a"),
		FactorB:    q.Get("factor_b"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) writeCSV(w http.ResponseWriter, stem string, data []byte) {
	name := stem + "_" + rt.now().Format("20060102") + ".csv"
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	_, _ = w.Write(data)
}

// GET /api/export/responses
func (rt *Router) handleExportResponses(w http.ResponseWriter, _ *http.Request) {
	list, err := rt.responses.List()
	if err != nil {
		writeError(w, err)
		return
	}
	data, err := services.ExportResponsesCSV(list)
	if err != nil {
		writeError(w, err)
		return
	}
	rt.writeCSV(w, "survey_data", data)
}

// GET /api/export/users
func (rt *Router) handleExportUsers(w http.ResponseWriter, _ *http.Request) {
	list, err := rt.users.List()
	if err != nil {
		writeError(w, err)
		return
	}
	data, err := services.ExportUsersCSV(list)
	if err != nil {
		writeError(w, err)
		return
	}
	rt.writeCSV(w, "users_list", data)
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// POST /api/auth/register
func (rt *Router) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	res, err := rt.auth.Register(in.Username, in.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// POST /api/auth/login
func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	res, err := rt.auth.Login(in.Username, in.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// POST /api/auth/password
func (rt *Router) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, services.NewUnauthorizedError("login required"))
		return
	}
	var in struct {
		Current string `json:"current_password"`
		Next    string `json:"new_password"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	if err := rt.auth.ChangePassword(claims.Username, in.Current, in.Next); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

// GET /api/users
func (rt *Router) handleListUsers(w http.ResponseWriter, _ *http.Request) {
	list, err := rt.users.List()
	if err != nil {
		writeError(w, err)
		return
	}
	type userOut struct {
		ID        string `json:"id"`
		Username  string `json:"username"`
		Role      string `json:"role"`
		CreatedAt string `json:"created_at"`
	}
	out := make([]userOut, 0, len(list))
	for _, u := range list {
		out = append(out, userOut{ID: u.ID, Username: u.Username, Role: u.Role, CreatedAt: u.CreatedAt.UTC().Format("2006-01-02 15:04:05")})
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": out})
}

// PUT /api/users/{id}/role
func (rt *Router) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Role string `json:"role"`
	}
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	if err := rt.users.UpdateRole(mux.Vars(r)["id"], in.Role); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"updated": true})
}

// DELETE /api/users/{id}
func (rt *Router) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := rt.users.Delete(mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
