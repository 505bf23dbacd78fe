package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ssuzuki-dev/enquete/internal/logger"
	"github.com/ssuzuki-dev/enquete/internal/middleware"
	"github.com/ssuzuki-dev/enquete/internal/models"
	"github.com/ssuzuki-dev/enquete/internal/services"
)

// Router wires every HTTP endpoint to its service.
type Router struct {
	responses *services.ResponseService
	analysis  *services.AnalysisService
	auth      *services.AuthService
	users     *services.UserService
	now       func() time.Time
}

func NewRouter(responses *services.ResponseService, analysis *services.AnalysisService, auth *services.AuthService, users *services.UserService) *Router {
	return &Router{
		responses: responses,
		analysis:  analysis,
		auth:      auth,
		users:     users,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Handler builds the full route tree. authMW decodes bearer tokens for every
// request; per-route role checks sit on the protected subrouters. When
// staticDir is non-empty the built frontend is served for everything else.
func (rt *Router) Handler(authMW *middleware.Auth, staticDir string) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", rt.handleHealth).Methods(http.MethodGet)

	// Public: respondents submit without an account.
	r.HandleFunc("/api/responses", rt.handleSubmit).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/register", rt.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/login", rt.handleLogin).Methods(http.MethodPost)

	authed := r.PathPrefix("/api").Subrouter()
	authed.Use(middleware.RequireAuth, middleware.NoStore)
	authed.HandleFunc("/auth/password", rt.handleChangePassword).Methods(http.MethodPost)
	authed.HandleFunc("/analysis/summary", rt.handleSummary).Methods(http.MethodGet)

	staff := authed.NewRoute().Subrouter()
	staff.Use(middleware.RequireRole(models.RoleAdmin, models.RoleEditor))
	staff.HandleFunc("/analysis", rt.handleAnalysis).Methods(http.MethodGet)
	staff.HandleFunc("/responses", rt.handleListResponses).Methods(http.MethodGet)
	staff.HandleFunc("/responses/{id:[0-9]+}", rt.handleGetResponse).Methods(http.MethodGet)
	staff.HandleFunc("/responses/{id:[0-9]+}", rt.handleUpdateResponse).Methods(http.MethodPut)
	staff.HandleFunc("/responses/{id:[0-9]+}", rt.handleDeleteResponse).Methods(http.MethodDelete)
	staff.HandleFunc("/export/responses", rt.handleExportResponses).Methods(http.MethodGet)

	admin := authed.NewRoute().Subrouter()
	admin.Use(middleware.RequireRole(models.RoleAdmin))
	admin.HandleFunc("/export/users", rt.handleExportUsers).Methods(http.MethodGet)
	admin.HandleFunc("/users", rt.handleListUsers).Methods(http.MethodGet)
	admin.HandleFunc("/users/{id}/role", rt.handleUpdateRole).Methods(http.MethodPut)
	admin.HandleFunc("/users/{id}", rt.handleDeleteUser).Methods(http.MethodDelete)

	if staticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(staticDir)))
	}

	// Outer chain wraps the whole tree so CORS preflights are answered even
	// for requests that match no route.
	var h http.Handler = r
	h = authMW.WithAuth(h)
	h = middleware.SecureHeaders(h)
	h = middleware.CORS(h)
	return h
}

func (rt *Router) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response: %v", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// writeError maps service error codes onto HTTP statuses. Anything that is
// not a ServiceError is an internal failure and stays opaque to the client.
func writeError(w http.ResponseWriter, err error) {
	if se, ok := services.AsServiceError(err); ok {
		writeJSON(w, statusFor(se.Code), errorBody{Error: se.Message, Code: string(se.Code)})
		return
	}
	logger.Error("request failed: %v", err)
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
}

func statusFor(code services.ErrorCode) int {
	switch code {
	case services.ErrorInvalid:
		return http.StatusBadRequest
	case services.ErrorUnauthorized:
		return http.StatusUnauthorized
	case services.ErrorForbidden:
		return http.StatusForbidden
	case services.ErrorNotFound:
		return http.StatusNotFound
	case services.ErrorConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return services.NewInvalidError("invalid request body")
	}
	return nil
}
