package channel

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rubentxu/hodei-pipelines/internal/logging"
)

// Keepalive defaults.
const (
	PingInterval    = 30 * time.Second
	PingTimeout     = 5 * time.Second
	MaxConnAge      = 300 * time.Second
	MaxConnAgeGrace = 60 * time.Second
	MaxMessageBytes = 4 << 20 // 4 MiB
	MaxHeaderBytes  = 8 << 10 // 8 KiB

	drainTimeout  = 5 * time.Second
	resultRetries = 3
)

// EngineSink is the narrow capability the Engine exposes to the Worker
// Channel so the channel can route inbound frames without importing the
// engine package; the cyclic dependency is broken by injection after
// construction.
type EngineSink interface {
	ActiveExecutionForWorker(workerID string) (string, bool)
	HandleStatusUpdate(executionID string, update StatusUpdate)
	HandleLogChunk(executionID string, chunk LogChunk)
	HandleExecutionResult(executionID string, result ExecutionResult) error
}

// Unregistrar is called when a connection tears down.
type Unregistrar interface {
	Unregister(workerID string)
}

// Registrar is called once a connection's register_request frame is
// accepted, so the worker registry learns about a worker as soon as it
// is reachable over the channel rather than only on the engine's own
// provisioning path.
type Registrar interface {
	RegisterWorker(workerID string)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// connection is the per-worker bidirectional stream state.
type connection struct {
	workerID     string
	ws           *websocket.Conn
	out          *outbox
	done         chan struct{}
	completion   chan struct{}
	closeOnce    sync.Once
}

func newConnection(workerID string, ws *websocket.Conn) *connection {
	return &connection{
		workerID:   workerID,
		ws:         ws,
		out:        newOutbox(),
		done:       make(chan struct{}),
		completion: make(chan struct{}, 1),
	}
}

func (c *connection) signalCompletion() {
	select {
	case c.completion <- struct{}{}:
	default:
	}
}

func (c *connection) close() {
	c.closeOnce.Do(func() {
		c.out.close()
		close(c.done)
		c.ws.Close()
	})
}

// Channel is the Worker Channel hub (C4): one connection per worker,
// FIFO outbound delivery, and inbound routing through the Engine's
// active-execution lookup.
type Channel struct {
	mu     sync.RWMutex
	conns  map[string]*connection
	engine EngineSink
	unreg  Unregistrar
	reg    Registrar
	log    *logging.Logger
}

// New constructs a Channel. SetEngine must be called before serving
// connections (the engine is constructed after the channel to break the
// Engine<->Channel cycle).
func New(log *logging.Logger) *Channel {
	return &Channel{
		conns: make(map[string]*connection),
		log:   log.WithComponent("worker-channel"),
	}
}

// SetEngine wires the inbound-routing collaborator.
func (ch *Channel) SetEngine(engine EngineSink) { ch.engine = engine }

// SetUnregistrar wires the collaborator notified on connection teardown.
func (ch *Channel) SetUnregistrar(u Unregistrar) { ch.unreg = u }

// SetRegistrar wires the collaborator notified when a worker completes
// registration.
func (ch *Channel) SetRegistrar(r Registrar) { ch.reg = r }

// ServeHTTP upgrades the request to a websocket and runs the connection
// until it ends. The first inbound frame must be register_request.
func (ch *Channel) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		ch.log.Warn("websocket upgrade failed: " + err.Error())
		return
	}
	// The registration frame is metadata, not payload: cap it tighter
	// than a regular data frame before raising the limit post-registration.
	ws.SetReadLimit(MaxHeaderBytes)

	workerID, ok := ch.awaitRegistration(ws)
	if !ok {
		ws.Close()
		return
	}
	ws.SetReadLimit(MaxMessageBytes)

	conn := newConnection(workerID, ws)
	ch.register(workerID, conn)
	if ch.reg != nil {
		ch.reg.RegisterWorker(workerID)
	}
	ch.log.WithField("worker_id", workerID).Info("worker registered")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); ch.writePump(conn) }()
	go func() { defer wg.Done(); ch.readPump(conn) }()
	go ch.enforceMaxAge(conn)
	wg.Wait()

	ch.teardown(conn)
}

// enforceMaxAge rotates a connection once it exceeds MaxConnAge: it asks
// the worker to reconnect via a normal close, then forcibly closes the
// connection if it is still open after MaxConnAgeGrace.
func (ch *Channel) enforceMaxAge(conn *connection) {
	timer := time.NewTimer(MaxConnAge)
	defer timer.Stop()
	select {
	case <-conn.done:
		return
	case <-timer.C:
	}

	ch.log.WithField("worker_id", conn.workerID).Info("max connection age reached, rotating")
	conn.ws.SetWriteDeadline(time.Now().Add(PingTimeout))
	conn.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "max connection age"),
		time.Now().Add(PingTimeout))

	grace := time.NewTimer(MaxConnAgeGrace)
	defer grace.Stop()
	select {
	case <-conn.done:
	case <-grace.C:
		conn.close()
	}
}

// awaitRegistration reads exactly one frame and requires it to be a
// register_request.
func (ch *Channel) awaitRegistration(ws *websocket.Conn) (string, bool) {
	_, data, err := ws.ReadMessage()
	if err != nil {
		return "", false
	}
	var msg WorkerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		ch.log.Warn("malformed registration frame: " + err.Error())
		return "", false
	}
	if msg.Kind != KindRegisterRequest || msg.RegisterRequest == nil || msg.RegisterRequest.WorkerID == "" {
		ch.log.Warn("first frame was not register_request")
		return "", false
	}
	return msg.RegisterRequest.WorkerID, true
}

// register installs conn, superseding any existing connection for the
// same worker id: a second stream claiming the same id supersedes the
// first.
func (ch *Channel) register(workerID string, conn *connection) {
	ch.mu.Lock()
	old, existed := ch.conns[workerID]
	ch.conns[workerID] = conn
	ch.mu.Unlock()

	if existed {
		ch.log.WithField("worker_id", workerID).Warn("superseding existing connection")
		old.close()
	}
}

func (ch *Channel) writePump(conn *connection) {
	ticker := time.NewTicker(PingInterval)
	defer ticker.Stop()

	msgCh := make(chan OrchestratorMessage)
	stop := make(chan struct{})
	go func() {
		for {
			msg, ok := conn.out.pop()
			if !ok {
				close(msgCh)
				return
			}
			select {
			case msgCh <- msg:
			case <-stop:
				return
			}
		}
	}()
	defer close(stop)

	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				ch.log.Warn("failed to marshal outbound message: " + err.Error())
				continue
			}
			conn.ws.SetWriteDeadline(time.Now().Add(PingTimeout))
			if err := conn.ws.WriteMessage(websocket.BinaryMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			conn.ws.SetWriteDeadline(time.Now().Add(PingTimeout))
			if err := conn.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-conn.done:
			return
		}
	}
}

func (ch *Channel) readPump(conn *connection) {
	defer conn.close()
	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			return
		}
		var msg WorkerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			ch.log.WithField("worker_id", conn.workerID).Warn("malformed frame: " + err.Error())
			continue
		}
		ch.routeInbound(conn, msg)
	}
}

// routeInbound demultiplexes a WorkerMessage into the Engine, resolving
// the owning execution id by the worker id, since inbound frames do not
// carry an execution id on the wire.
func (ch *Channel) routeInbound(conn *connection, msg WorkerMessage) {
	if ch.engine == nil {
		return
	}

	execID, ok := ch.engine.ActiveExecutionForWorker(conn.workerID)
	if !ok {
		ch.log.WithField("worker_id", conn.workerID).Warn("dropping frame: no active execution for worker")
		return
	}

	switch msg.Kind {
	case KindStatusUpdate:
		if msg.StatusUpdate != nil {
			ch.engine.HandleStatusUpdate(execID, *msg.StatusUpdate)
		}
	case KindLogChunk:
		if msg.LogChunk != nil {
			ch.engine.HandleLogChunk(execID, *msg.LogChunk)
		}
	case KindExecutionResult:
		if msg.ExecutionResult != nil {
			ch.deliverResultWithRetry(conn, execID, *msg.ExecutionResult)
		}
	default:
		ch.log.WithField("worker_id", conn.workerID).Warn("ignoring unknown frame kind: " + string(msg.Kind))
	}
}

// deliverResultWithRetry retries HandleExecutionResult up to
// resultRetries times with 100*attempt ms backoff. It runs on the read
// pump's goroutine, so the pump services no other frame for this
// connection while retries are in progress; execution_result is the last
// frame a worker sends for an execution.
func (ch *Channel) deliverResultWithRetry(conn *connection, execID string, result ExecutionResult) {
	var lastErr error
	for attempt := 1; attempt <= resultRetries; attempt++ {
		if err := ch.engine.HandleExecutionResult(execID, result); err != nil {
			lastErr = err
			ch.log.WithField("execution_id", execID).Warn("execution_result delivery failed, will retry")
			time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
			continue
		}
		conn.signalCompletion()
		return
	}
	ch.log.WithField("execution_id", execID).Error("execution_result delivery exhausted retries: " + errString(lastErr))
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// teardown removes the connection entry, waits briefly for a completion
// signal from the Engine, and unregisters the worker from the registry.
func (ch *Channel) teardown(conn *connection) {
	ch.mu.Lock()
	if current, ok := ch.conns[conn.workerID]; ok && current == conn {
		delete(ch.conns, conn.workerID)
	}
	ch.mu.Unlock()

	conn.close()

	timer := time.NewTimer(drainTimeout)
	defer timer.Stop()
	select {
	case <-conn.completion:
	case <-timer.C:
	}

	if ch.unreg != nil {
		ch.unreg.Unregister(conn.workerID)
	}
	ch.log.WithField("worker_id", conn.workerID).Info("connection torn down")
}

// SendExecutionAssignment enqueues an execution_assignment for delivery.
func (ch *Channel) SendExecutionAssignment(workerID string, assignment ExecutionAssignment) bool {
	return ch.send(workerID, OrchestratorMessage{Kind: KindExecutionAssignment, ExecutionAssignment: &assignment})
}

// SendCancelSignal enqueues a cancel_signal for delivery.
func (ch *Channel) SendCancelSignal(workerID string, signal CancelSignal) bool {
	return ch.send(workerID, OrchestratorMessage{Kind: KindCancelSignal, CancelSignal: &signal})
}

// SendArtifact enqueues an artifact for delivery.
func (ch *Channel) SendArtifact(workerID string, artifact ArtifactRef) bool {
	return ch.send(workerID, OrchestratorMessage{Kind: KindArtifact, Artifact: &artifact})
}

func (ch *Channel) send(workerID string, msg OrchestratorMessage) bool {
	ch.mu.RLock()
	conn, ok := ch.conns[workerID]
	ch.mu.RUnlock()
	if !ok {
		return false
	}
	return conn.out.push(msg)
}

// IsWorkerConnected reports whether workerID has an open connection.
func (ch *Channel) IsWorkerConnected(workerID string) bool {
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	_, ok := ch.conns[workerID]
	return ok
}

// ConnectedWorkers returns the ids of all currently connected workers.
func (ch *Channel) ConnectedWorkers() []string {
	ch.mu.RLock()
	defer ch.mu.RUnlock()
	ids := make([]string, 0, len(ch.conns))
	for id := range ch.conns {
		ids = append(ids, id)
	}
	return ids
}

// Shutdown forcibly closes every connection, for process shutdown.
func (ch *Channel) Shutdown(ctx context.Context) {
	ch.mu.Lock()
	conns := make([]*connection, 0, len(ch.conns))
	for _, c := range ch.conns {
		conns = append(conns, c)
	}
	ch.conns = make(map[string]*connection)
	ch.mu.Unlock()

	for _, c := range conns {
		c.close()
	}
}
