package restapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/rubentxu/hodei-pipelines/internal/domain"
	"github.com/rubentxu/hodei-pipelines/internal/execution/events"
	"github.com/rubentxu/hodei-pipelines/internal/orcherr"
)

// sseSink implements events.Sink by writing each delivered event/log as
// one Server-Sent Event frame, flushing after every write so a streaming
// client sees output as it happens. events and logs select which of the
// two kinds of frame the stream carries.
type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
	events  bool
	logs    bool
}

func (s *sseSink) DeliverEvent(ev domain.ExecutionEvent) {
	if s.events {
		s.write("event", ev)
	}
}

func (s *sseSink) DeliverLog(lg domain.ExecutionLog) {
	if s.logs {
		s.write("log", lg)
	}
}

func (s *sseSink) write(kind string, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", kind, body)
	s.flusher.Flush()
}

func (s *Server) streamExecution(w http.ResponseWriter, r *http.Request, jobID string, wantEvents, wantLogs bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		sendError(w, orcherr.New(orcherr.Transport, "streaming unsupported"), http.StatusInternalServerError)
		return
	}

	execID, ok := s.executionIDForJob(jobID)
	if !ok {
		sendError(w, orcherr.New(orcherr.UnknownTarget, "no active execution for job: "+jobID), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sink := &sseSink{w: w, flusher: flusher, events: wantEvents, logs: wantLogs}
	subID := s.engine.Subscribe(domain.Subscription{
		ExecutionID: execID,
		Buffer:      events.DefaultBufferSize,
		Policy:      domain.DropOldest,
	}, sink)
	defer s.engine.Unsubscribe(subID)

	<-r.Context().Done()
}

func (s *Server) handleStreamLogs(w http.ResponseWriter, r *http.Request) {
	s.streamExecution(w, r, mux.Vars(r)["id"], false, true)
}

func (s *Server) handleStreamEvents(w http.ResponseWriter, r *http.Request) {
	s.streamExecution(w, r, mux.Vars(r)["id"], true, false)
}
