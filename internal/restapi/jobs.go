package restapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/rubentxu/hodei-pipelines/internal/domain"
	"github.com/rubentxu/hodei-pipelines/internal/orcherr"
)

type submitJobRequest struct {
	Name       string                 `json:"name"`
	TemplateID string                 `json:"template_id,omitempty"`
	PoolID     string                 `json:"pool_id,omitempty"`
	Strategy   string                 `json:"strategy,omitempty"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
	Resources  map[string]string      `json:"resources,omitempty"`
}

type jobResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Status       string `json:"status"`
	TemplateID   string `json:"template_id,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
	FailureCause string `json:"failure_cause,omitempty"`
}

func toJobResponse(j *domain.Job) jobResponse {
	return jobResponse{
		ID:           j.ID,
		Name:         j.Name,
		Status:       string(j.Status),
		TemplateID:   j.TemplateID,
		CreatedAt:    j.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    j.UpdatedAt.Format(time.RFC3339),
		FailureCause: j.FailureCause,
	}
}

// handleSubmitJob creates a job, ranks candidate pools, and starts its
// execution in one request — the façade owns the scheduling decision so
// the engine itself stays pool-agnostic.
func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	var req submitJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, err, http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		sendError(w, orcherr.New(orcherr.Validation, "name is required"), http.StatusBadRequest)
		return
	}

	claims := claimsFromContext(r.Context())
	job := &domain.Job{
		ID:         uuid.NewString(),
		Name:       req.Name,
		Status:     domain.JobQueued,
		TemplateID: req.TemplateID,
		Parameters: req.Parameters,
		Resources:  req.Resources,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
		CreatedBy:  claims.Username,
	}
	s.jobs.Save(job)

	selectedPool, err := s.selectPool(r.Context(), job, req.PoolID, req.Strategy)
	if err != nil {
		job.Fail(err.Error())
		sendError(w, err, http.StatusUnprocessableEntity)
		return
	}

	if _, err := s.engine.StartExecution(r.Context(), job, selectedPool, s.engine.Token()); err != nil {
		job.Fail(err.Error())
		if orcherr.KindOf(err) == orcherr.Authorization {
			s.auditLog.Record("UNAUTHORIZED_START_EXECUTION", claims.Username, job.ID, "start_execution", nil)
		}
		sendError(w, err, statusFor(err))
		return
	}

	sendJSON(w, toJobResponse(job))
}

// selectPool narrows candidates via the evaluator and ranks them with the
// requested (or default) strategy, per C1/C2.
func (s *Server) selectPool(ctx context.Context, job *domain.Job, poolID, strategyName string) (*domain.ResourcePool, error) {
	var pools []*domain.ResourcePool
	if poolID != "" {
		p, err := s.pools.Get(poolID)
		if err != nil {
			return nil, err
		}
		pools = []*domain.ResourcePool{p}
	} else {
		pools = s.pools.List()
	}
	if len(pools) == 0 {
		return nil, orcherr.New(orcherr.Provisioning, "no pools configured")
	}

	candidates, err := s.evaluator.Evaluate(ctx, job, pools)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, orcherr.New(orcherr.Provisioning, "no pool has capacity for this job")
	}

	name := strategyName
	if name == "" {
		name = "least-loaded"
	}
	strat, ok := s.strategies.Get(name)
	if !ok {
		return nil, orcherr.New(orcherr.Validation, "unknown scheduling strategy: "+name)
	}
	return strat.SelectPool(job, candidates)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := s.jobs.List()
	out := make([]jobResponse, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, toJobResponse(j))
	}
	sendJSON(w, out)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	job, err := s.jobs.Get(id)
	if err != nil {
		sendError(w, err, http.StatusNotFound)
		return
	}
	sendJSON(w, toJobResponse(job))
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	job, err := s.jobs.Get(id)
	if err != nil {
		sendError(w, err, http.StatusNotFound)
		return
	}

	execID, ok := s.executionIDForJob(job.ID)
	if !ok {
		sendError(w, orcherr.New(orcherr.UnknownTarget, "no active execution for job: "+id), http.StatusConflict)
		return
	}

	if err := s.engine.CancelExecution(execID, "cancelled by user"); err != nil {
		sendError(w, err, statusFor(err))
		return
	}
	sendJSON(w, map[string]string{"status": "cancelling"})
}

func (s *Server) executionIDForJob(jobID string) (string, bool) {
	for _, ex := range s.engine.ActiveExecutions() {
		if ex.JobID == jobID {
			return ex.ID, true
		}
	}
	return "", false
}

func statusFor(err error) int {
	switch orcherr.KindOf(err) {
	case orcherr.Validation:
		return http.StatusBadRequest
	case orcherr.Authorization:
		return http.StatusForbidden
	case orcherr.UnknownTarget:
		return http.StatusNotFound
	case orcherr.Timeout:
		return http.StatusGatewayTimeout
	case orcherr.Provisioning, orcherr.Transport, orcherr.IllegalTransition:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
