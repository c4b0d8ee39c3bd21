package restapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/rubentxu/hodei-pipelines/internal/domain"
	"github.com/rubentxu/hodei-pipelines/internal/orcherr"
)

type createTemplateRequest struct {
	Name      string            `json:"name"`
	Version   string            `json:"version"`
	Publish   bool              `json:"publish"`
	Shell     *domain.ShellTask  `json:"shell,omitempty"`
	Script    *domain.ScriptTask `json:"script,omitempty"`
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, s.templates.List())
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	t, err := s.templates.Get(id)
	if err != nil {
		sendError(w, err, http.StatusNotFound)
		return
	}
	sendJSON(w, t)
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req createTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, err, http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		sendError(w, orcherr.New(orcherr.Validation, "name is required"), http.StatusBadRequest)
		return
	}
	if req.Shell == nil && req.Script == nil {
		sendError(w, orcherr.New(orcherr.Validation, "template must carry a shell or script task"), http.StatusBadRequest)
		return
	}

	state := domain.TemplateDraft
	if req.Publish {
		state = domain.TemplatePublished
	}

	now := time.Now()
	tmpl := &domain.Template{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Version:   req.Version,
		State:     state,
		Shell:     req.Shell,
		Script:    req.Script,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.templates.Save(tmpl)
	sendJSON(w, tmpl)
}
