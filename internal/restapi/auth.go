package restapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rubentxu/hodei-pipelines/internal/iam"
)

type contextKey string

const claimsContextKey contextKey = "claims"

var errMissingBearer = errors.New("missing or malformed Authorization header")

// authMiddleware requires a valid "Bearer <jwt>" header on every /api/v1
// route and stashes the verified claims in the request context, mirroring
// the teacher's pattern of middleware-enforced auth ahead of handlers.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			sendError(w, errMissingBearer, http.StatusUnauthorized)
			return
		}
		claims, err := s.users.Verify(token)
		if err != nil {
			sendError(w, err, http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func claimsFromContext(ctx context.Context) *iam.Claims {
	c, _ := ctx.Value(claimsContextKey).(*iam.Claims)
	return c
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token    string   `json:"token"`
	UserID   string   `json:"user_id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, err, http.StatusBadRequest)
		return
	}

	token, user, err := s.users.Authenticate(req.Username, req.Password)
	if err != nil {
		s.auditLog.Record("AUTH_FAILURE", req.Username, "", "login", nil)
		sendError(w, err, http.StatusUnauthorized)
		return
	}

	sendJSON(w, loginResponse{Token: token, UserID: user.ID, Username: user.Username, Roles: user.Roles})
}
