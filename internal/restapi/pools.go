package restapi

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/rubentxu/hodei-pipelines/internal/domain"
	"github.com/rubentxu/hodei-pipelines/internal/orcherr"
)

type createPoolRequest struct {
	Name           string            `json:"name"`
	Type           string            `json:"type"`
	Capacity       map[string]string `json:"capacity,omitempty"`
	MaxConcurrency *int              `json:"max_concurrency,omitempty"`
}

func (s *Server) handleListPools(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, s.pools.List())
}

func (s *Server) handleCreatePool(w http.ResponseWriter, r *http.Request) {
	var req createPoolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, err, http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Type == "" {
		sendError(w, orcherr.New(orcherr.Validation, "name and type are required"), http.StatusBadRequest)
		return
	}

	p := &domain.ResourcePool{
		ID:             uuid.NewString(),
		Name:           req.Name,
		Type:           req.Type,
		Capacity:       req.Capacity,
		MaxConcurrency: req.MaxConcurrency,
	}
	s.pools.Save(p)
	sendJSON(w, p)
}
