// Package restapi is the HTTP façade (external interface, C9) over the
// Execution Engine, the scheduler, and the worker channel: job
// submission and observation, pool/template CRUD, worker listing, and
// login. Routing follows the teacher's UnifiedWebUI
// (cmd/noisefs-webui/main.go): a gorilla/mux router, an "/api/v1" subrouter,
// and the same sendJSON/sendError response helpers.
package restapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/rubentxu/hodei-pipelines/internal/audit"
	"github.com/rubentxu/hodei-pipelines/internal/channel"
	"github.com/rubentxu/hodei-pipelines/internal/execution/engine"
	"github.com/rubentxu/hodei-pipelines/internal/iam"
	"github.com/rubentxu/hodei-pipelines/internal/logging"
	"github.com/rubentxu/hodei-pipelines/internal/repository"
	"github.com/rubentxu/hodei-pipelines/internal/scheduler/pool"
	"github.com/rubentxu/hodei-pipelines/internal/scheduler/strategy"
)

// Server wires the engine, repositories, and scheduler into an
// http.Handler.
type Server struct {
	engine     *engine.Engine
	channel    *channel.Channel
	jobs       *repository.JobRepository
	pools      *repository.PoolRepository
	templates  *repository.TemplateRepository
	evaluator  *pool.Evaluator
	strategies *strategy.Registry
	users      *iam.Store
	auditLog   *audit.Log
	log        *logging.Logger

	router *mux.Router
}

// New constructs a Server and builds its route table.
func New(
	eng *engine.Engine,
	ch *channel.Channel,
	jobs *repository.JobRepository,
	pools *repository.PoolRepository,
	templates *repository.TemplateRepository,
	evaluator *pool.Evaluator,
	strategies *strategy.Registry,
	users *iam.Store,
	auditLog *audit.Log,
	log *logging.Logger,
) *Server {
	s := &Server{
		engine:     eng,
		channel:    ch,
		jobs:       jobs,
		pools:      pools,
		templates:  templates,
		evaluator:  evaluator,
		strategies: strategies,
		users:      users,
		auditLog:   auditLog,
		log:        log.WithComponent("restapi"),
	}
	s.router = s.buildRouter()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) buildRouter() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.channel.ServeHTTP)

	r.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(s.authMiddleware)

	api.HandleFunc("/jobs", s.handleSubmitJob).Methods(http.MethodPost)
	api.HandleFunc("/jobs", s.handleListJobs).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id}", s.handleGetJob).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id}/cancel", s.handleCancelJob).Methods(http.MethodPost)
	api.HandleFunc("/jobs/{id}/logs", s.handleStreamLogs).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id}/events", s.handleStreamEvents).Methods(http.MethodGet)

	api.HandleFunc("/pools", s.handleListPools).Methods(http.MethodGet)
	api.HandleFunc("/pools", s.handleCreatePool).Methods(http.MethodPost)

	api.HandleFunc("/templates", s.handleListTemplates).Methods(http.MethodGet)
	api.HandleFunc("/templates", s.handleCreateTemplate).Methods(http.MethodPost)
	api.HandleFunc("/templates/{id}", s.handleGetTemplate).Methods(http.MethodGet)

	api.HandleFunc("/workers", s.handleListWorkers).Methods(http.MethodGet)

	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, map[string]string{"status": "ok"})
}

func sendJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

type apiError struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func sendError(w http.ResponseWriter, err error, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiError{Success: false, Error: err.Error()})
}
