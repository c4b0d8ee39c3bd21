package restapi

import "net/http"

type workerResponse struct {
	ID        string `json:"id"`
	Connected bool   `json:"connected"`
}

func (s *Server) handleListWorkers(w http.ResponseWriter, r *http.Request) {
	ids := s.channel.ConnectedWorkers()
	out := make([]workerResponse, 0, len(ids))
	for _, id := range ids {
		out = append(out, workerResponse{ID: id, Connected: true})
	}
	sendJSON(w, out)
}
