// Package gatewaysim is an in-memory stand-in for the task/package gateway.
// It implements the REST contract the scanning console consumes, for local
// development and integration tests; durability and multi-user semantics of
// the real gateway are out of scope.
package gatewaysim

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"packtrack/internal/client/models"
)

type account struct {
	password string
	user     models.AuthUser
}

type Server struct {
	mu       sync.Mutex
	accounts map[string]account
	tokens   map[string]models.AuthUser
	tasks    map[string]*models.Task
	expected map[string][]string
	config   map[string][]string

	// now is a test seam for server-assigned timestamps.
	now func() time.Time
}

func New() *Server {
	return &Server{
		accounts: make(map[string]account),
		tokens:   make(map[string]models.AuthUser),
		tasks:    make(map[string]*models.Task),
		expected: make(map[string][]string),
		config: map[string][]string{
			"channel": {"Amazon", "Flipkart", "Website"},
			"courier": {"BlueDart", "Delhivery", "DTDC"},
		},
		now: time.Now,
	}
}

// AddUser registers a login the simulator will accept.
func (s *Server) AddUser(username, password, name, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[username] = account{
		password: password,
		user: models.AuthUser{
			Sub:      uuid.NewString(),
			Role:     role,
			Name:     name,
			Username: username,
		},
	}
}

// SeedTask installs a task, keyed by its _id.
func (s *Server) SeedTask(t models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := t
	s.tasks[t.ID] = &cp
}

// IssueToken mints a valid bearer token without going through login.
// Handy in tests.
func (s *Server) IssueToken(username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok := uuid.NewString()
	s.tokens[tok] = s.accounts[username].user
	return tok
}

// Packages returns a copy of a task's persisted packages.
func (s *Server) Packages(taskID string) []models.Package {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[taskID]
	if !ok {
		return nil
	}
	return append([]models.Package(nil), t.Packages...)
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/v1/ping", s.handlePing).Methods(http.MethodGet)
	r.HandleFunc("/v1/auth/login", s.handleLogin).Methods(http.MethodPost)

	api := r.PathPrefix("/v1").Subrouter()
	api.Use(s.authMiddleware)
	api.HandleFunc("/config", s.handleConfig).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{id}", s.handleGetTask).Methods(http.MethodGet)
	api.HandleFunc("/expected-packages/{taskId}", s.handleGetExpected).Methods(http.MethodGet)
	api.HandleFunc("/expected-packages", s.handlePostExpected).Methods(http.MethodPost)
	api.HandleFunc("/packages/match-expected", s.handleMatchExpected).Methods(http.MethodPatch)
	api.HandleFunc("/packages", s.handleCreatePackage).Methods(http.MethodPost)
	api.HandleFunc("/packages/{id}", s.handlePatchPackage).Methods(http.MethodPatch)
	api.HandleFunc("/packages/{id}", s.handleDeletePackage).Methods(http.MethodDelete)
	return r
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		_, ok := s.tokens[tok]
		s.mu.Unlock()
		if !ok {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "pong"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST")
		return
	}

	s.mu.Lock()
	acc, ok := s.accounts[body.Username]
	if !ok || acc.password != body.Password {
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED")
		return
	}
	tok := uuid.NewString()
	s.tokens[tok] = acc.user
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"token": tok, "user": acc.user})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.config)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	t, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "RESOURCE_NOT_FOUND")
		return
	}
	cp := *t
	cp.Packages = append([]models.Package(nil), t.Packages...)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, cp)
}

func (s *Server) handleGetExpected(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["taskId"]

	s.mu.Lock()
	ids := append([]string(nil), s.expected[taskID]...)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, expectedResponse(ids))
}

func (s *Server) handlePostExpected(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TaskID     string   `json:"task_id"`
		PackageIDs []string `json:"package_ids"`
		Executive  string   `json:"executive"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.PackageIDs) == 0 {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST")
		return
	}

	s.mu.Lock()
	have := make(map[string]bool, len(s.expected[body.TaskID]))
	for _, id := range s.expected[body.TaskID] {
		have[id] = true
	}
	for _, id := range body.PackageIDs {
		id = strings.ToLower(id)
		if !have[id] {
			s.expected[body.TaskID] = append(s.expected[body.TaskID], id)
			have[id] = true
		}
	}
	ids := append([]string(nil), s.expected[body.TaskID]...)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, expectedResponse(ids))
}

func (s *Server) handleMatchExpected(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TaskID     string   `json:"task_id"`
		PackageIDs []string `json:"package_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST")
		return
	}

	s.mu.Lock()
	if t, ok := s.tasks[body.TaskID]; ok {
		expected := make(map[string]bool, len(body.PackageIDs))
		for _, id := range body.PackageIDs {
			expected[strings.ToLower(id)] = true
		}
		for i := range t.Packages {
			if expected[strings.ToLower(t.Packages[i].PackageID)] {
				t.Packages[i].Status = "matched"
			}
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
}

func (s *Server) handleCreatePackage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TaskID    string `json:"task_id"`
		PackageID string `json:"package_id"`
		Remarks   string `json:"remarks"`
		Cancelled bool   `json:"cancelled"`
		Status    string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.PackageID == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST")
		return
	}

	s.mu.Lock()
	t, ok := s.tasks[body.TaskID]
	if !ok {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "RESOURCE_NOT_FOUND")
		return
	}

	for _, p := range t.Packages {
		if p.PackageID == body.PackageID {
			s.mu.Unlock()
			// duplicate at the data layer: success, but not a create
			writeJSON(w, http.StatusOK, map[string]any{"message": "duplicate", "data": p})
			return
		}
	}

	pkg := models.Package{
		ID:        uuid.NewString(),
		PackageID: body.PackageID,
		Status:    body.Status,
		Cancelled: body.Cancelled,
		Remarks:   body.Remarks,
		Task:      body.TaskID,
		CreatedAt: s.now(),
	}
	t.Packages = append(t.Packages, pkg)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{"message": "created", "data": pkg})
}

func (s *Server) handlePatchPackage(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var body struct {
		Cancelled bool `json:"cancelled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST")
		return
	}

	s.mu.Lock()
	for _, t := range s.tasks {
		for i := range t.Packages {
			if t.Packages[i].ID == id {
				t.Packages[i].Cancelled = body.Cancelled
				pkg := t.Packages[i]
				s.mu.Unlock()
				writeJSON(w, http.StatusOK, map[string]any{"message": "updated", "data": pkg})
				return
			}
		}
	}
	s.mu.Unlock()
	writeError(w, http.StatusNotFound, "RESOURCE_NOT_FOUND")
}

func (s *Server) handleDeletePackage(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	for _, t := range s.tasks {
		for i := range t.Packages {
			if t.Packages[i].ID == id {
				t.Packages = append(t.Packages[:i], t.Packages[i+1:]...)
				s.mu.Unlock()
				writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
				return
			}
		}
	}
	s.mu.Unlock()
	writeError(w, http.StatusNotFound, "RESOURCE_NOT_FOUND")
}

func expectedResponse(ids []string) map[string]any {
	pkgs := make([]map[string]string, 0, len(ids))
	for _, id := range ids {
		pkgs = append(pkgs, map[string]string{"package_id": id})
	}
	return map[string]any{"packages": pkgs}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
