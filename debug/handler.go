package debug

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/uaesivakumar/premiumradar-saas-sub004/journey"
)

// JourneySource resolves journey definitions for session start requests.
// journey.Registry satisfies it.
type JourneySource interface {
	Journey(id string) (*journey.Journey, bool)
}

// Handler provides the HTTP and WebSocket API for controlling the debugger.
type Handler struct {
	debugger *Debugger
	journeys JourneySource
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a debug API handler.
func NewHandler(d *Debugger, journeys JourneySource, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		debugger: d,
		journeys: journeys,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// RegisterRoutes registers the debug API routes on the provided mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/debug/session", h.handleGetSession)
	mux.HandleFunc("POST /api/v1/debug/session", h.handleStartSession)
	mux.HandleFunc("DELETE /api/v1/debug/session", h.handleStopSession)
	mux.HandleFunc("POST /api/v1/debug/session/restart", h.handleRestart)

	mux.HandleFunc("POST /api/v1/debug/continue", h.handleContinue)
	mux.HandleFunc("POST /api/v1/debug/pause", h.handlePause)
	mux.HandleFunc("POST /api/v1/debug/step-over", h.handleStepOver)
	mux.HandleFunc("POST /api/v1/debug/step-into", h.handleStepInto)
	mux.HandleFunc("POST /api/v1/debug/step-out", h.handleStepOut)
	mux.HandleFunc("POST /api/v1/debug/jump", h.handleJump)

	mux.HandleFunc("GET /api/v1/debug/breakpoints", h.handleListBreakpoints)
	mux.HandleFunc("POST /api/v1/debug/breakpoints", h.handleAddBreakpoint)
	mux.HandleFunc("DELETE /api/v1/debug/breakpoints/{id}", h.handleRemoveBreakpoint)
	mux.HandleFunc("POST /api/v1/debug/breakpoints/{id}/enable", h.handleEnableBreakpoint)
	mux.HandleFunc("POST /api/v1/debug/breakpoints/{id}/disable", h.handleDisableBreakpoint)
	mux.HandleFunc("GET /api/v1/debug/breakpoints/export", h.handleExportBreakpoints)
	mux.HandleFunc("POST /api/v1/debug/breakpoints/import", h.handleImportBreakpoints)

	mux.HandleFunc("GET /api/v1/debug/watches", h.handleListWatches)
	mux.HandleFunc("POST /api/v1/debug/watches", h.handleAddWatch)
	mux.HandleFunc("DELETE /api/v1/debug/watches/{id}", h.handleRemoveWatch)
	mux.HandleFunc("POST /api/v1/debug/watches/{id}/toggle", h.handleToggleWatch)
	mux.HandleFunc("POST /api/v1/debug/evaluate", h.handleEvaluate)

	mux.HandleFunc("GET /api/v1/debug/variables", h.handleVariables)
	mux.HandleFunc("GET /api/v1/debug/variables/children", h.handleVariableChildren)
	mux.HandleFunc("POST /api/v1/debug/context", h.handleUpdateContext)
	mux.HandleFunc("GET /api/v1/debug/events", h.handleEvents)
	mux.HandleFunc("GET /api/v1/debug/events/stream", h.handleEventStream)
}

type startSessionRequest struct {
	JourneyID string         `json:"journey_id"`
	RunID     string         `json:"run_id"`
	Context   map[string]any `json:"context"`
}

func (h *Handler) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.JourneyID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "journey_id is required"})
		return
	}
	j, ok := h.journeys.Journey(req.JourneyID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown journey"})
		return
	}
	initial := copyContext(j.InitialContext)
	for k, v := range req.Context {
		initial[k] = v
	}
	session := h.debugger.StartSession(req.JourneyID, req.RunID, j.Steps, initial)
	writeJSON(w, http.StatusCreated, session)
}

func (h *Handler) handleGetSession(w http.ResponseWriter, _ *http.Request) {
	session := h.debugger.Session()
	if session == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no active session"})
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *Handler) handleStopSession(w http.ResponseWriter, _ *http.Request) {
	h.debugger.StopSession()
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

func (h *Handler) handleRestart(w http.ResponseWriter, _ *http.Request) {
	h.debugger.Restart()
	session := h.debugger.Session()
	if session == nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "nothing to restart"})
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// Stepping commands are silent no-ops in the engine when preconditions do
// not hold; the API reports acceptance, not effect.

func (h *Handler) handleContinue(w http.ResponseWriter, _ *http.Request) {
	h.debugger.Continue()
	writeJSON(w, http.StatusOK, map[string]string{"status": "continued"})
}

func (h *Handler) handlePause(w http.ResponseWriter, _ *http.Request) {
	h.debugger.Pause()
	writeJSON(w, http.StatusOK, map[string]string{"status": "pause requested"})
}

func (h *Handler) handleStepOver(w http.ResponseWriter, _ *http.Request) {
	h.debugger.StepOver()
	writeJSON(w, http.StatusOK, map[string]string{"status": "stepped"})
}

func (h *Handler) handleStepInto(w http.ResponseWriter, _ *http.Request) {
	h.debugger.StepInto()
	writeJSON(w, http.StatusOK, map[string]string{"status": "stepped"})
}

func (h *Handler) handleStepOut(w http.ResponseWriter, _ *http.Request) {
	h.debugger.StepOut()
	writeJSON(w, http.StatusOK, map[string]string{"status": "stepped"})
}

type jumpRequest struct {
	StepIndex int `json:"step_index"`
}

func (h *Handler) handleJump(w http.ResponseWriter, r *http.Request) {
	var req jumpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	h.debugger.JumpToStep(req.StepIndex)
	writeJSON(w, http.StatusOK, map[string]string{"status": "jumped"})
}

type addBreakpointRequest struct {
	Type         BreakpointType `json:"type"`
	StepID       string         `json:"step_id"`
	StepIndex    *int           `json:"step_index"`
	Condition    string         `json:"condition"`
	LogMessage   string         `json:"log_message"`
	ContextKey   string         `json:"context_key"`
	HitCondition string         `json:"hit_condition"`
}

func (h *Handler) handleAddBreakpoint(w http.ResponseWriter, r *http.Request) {
	bps := h.debugger.Breakpoints()
	if bps == nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "no active session"})
		return
	}
	var req addBreakpointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	var bp *Breakpoint
	switch req.Type {
	case BreakpointStep:
		bp = bps.AddStepBreakpoint(req.StepID, req.StepIndex)
	case BreakpointConditional:
		bp = bps.AddConditionalBreakpoint(req.Condition, req.StepID)
	case BreakpointLogpoint:
		bp = bps.AddLogpoint(req.LogMessage, req.StepID)
	case BreakpointError:
		bp = bps.AddErrorBreakpoint()
	case BreakpointContextChange:
		bp = bps.AddContextChangeBreakpoint(req.ContextKey)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown breakpoint type"})
		return
	}
	if req.HitCondition != "" {
		bps.SetHitCondition(bp.ID, req.HitCondition)
	}
	writeJSON(w, http.StatusCreated, bp)
}

func (h *Handler) handleListBreakpoints(w http.ResponseWriter, _ *http.Request) {
	bps := h.debugger.Breakpoints()
	if bps == nil {
		writeJSON(w, http.StatusOK, []*Breakpoint{})
		return
	}
	writeJSON(w, http.StatusOK, bps.List())
}

func (h *Handler) handleRemoveBreakpoint(w http.ResponseWriter, r *http.Request) {
	bps := h.debugger.Breakpoints()
	if bps == nil || !bps.Remove(r.PathValue("id")) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "breakpoint not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (h *Handler) handleEnableBreakpoint(w http.ResponseWriter, r *http.Request) {
	bps := h.debugger.Breakpoints()
	if bps == nil || !bps.Enable(r.PathValue("id")) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "breakpoint not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "enabled"})
}

func (h *Handler) handleDisableBreakpoint(w http.ResponseWriter, r *http.Request) {
	bps := h.debugger.Breakpoints()
	if bps == nil || !bps.Disable(r.PathValue("id")) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "breakpoint not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
}

func (h *Handler) handleExportBreakpoints(w http.ResponseWriter, _ *http.Request) {
	bps := h.debugger.Breakpoints()
	if bps == nil {
		writeJSON(w, http.StatusOK, []*Breakpoint{})
		return
	}
	data, err := bps.ToJSON()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) handleImportBreakpoints(w http.ResponseWriter, r *http.Request) {
	bps := h.debugger.Breakpoints()
	if bps == nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "no active session"})
		return
	}
	var body json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if err := bps.FromJSON(body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, bps.List())
}

type addWatchRequest struct {
	Expression string `json:"expression"`
	Name       string `json:"name"`
}

func (h *Handler) handleAddWatch(w http.ResponseWriter, r *http.Request) {
	watches := h.debugger.Watches()
	if watches == nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "no active session"})
		return
	}
	var req addWatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Expression == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "expression is required"})
		return
	}
	writeJSON(w, http.StatusCreated, watches.Add(req.Expression, req.Name))
}

func (h *Handler) handleListWatches(w http.ResponseWriter, _ *http.Request) {
	watches := h.debugger.Watches()
	if watches == nil {
		writeJSON(w, http.StatusOK, []*WatchExpression{})
		return
	}
	writeJSON(w, http.StatusOK, watches.List())
}

func (h *Handler) handleRemoveWatch(w http.ResponseWriter, r *http.Request) {
	watches := h.debugger.Watches()
	if watches == nil || !watches.Remove(r.PathValue("id")) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "watch not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (h *Handler) handleToggleWatch(w http.ResponseWriter, r *http.Request) {
	watches := h.debugger.Watches()
	if watches == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "watch not found"})
		return
	}
	updated := watches.Toggle(r.PathValue("id"))
	if updated == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "watch not found"})
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

type evaluateRequest struct {
	Expression string `json:"expression"`
}

func (h *Handler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	result := h.debugger.EvaluateExpression(req.Expression)
	if result == nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "no active session"})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleVariables(w http.ResponseWriter, _ *http.Request) {
	scopes := h.debugger.Scopes()
	if scopes == nil {
		writeJSON(w, http.StatusOK, []*VariableScope{})
		return
	}
	writeJSON(w, http.StatusOK, scopes)
}

// handleVariableChildren expands one container variable by path.
func (h *Handler) handleVariableChildren(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "path query parameter is required"})
		return
	}
	session := h.debugger.Session()
	if session == nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "no active session"})
		return
	}
	segs, ok := parsePath(path)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid variable path"})
		return
	}
	value := resolvePath(segs, session.Context)
	v := &Variable{
		Name:       path,
		Value:      value,
		Type:       TypeOf(value),
		Expandable: IsExpandable(value),
		Path:       path,
	}
	writeJSON(w, http.StatusOK, Children(v))
}

type updateContextRequest struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

func (h *Handler) handleUpdateContext(w http.ResponseWriter, r *http.Request) {
	var req updateContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Key == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "key is required"})
		return
	}
	h.debugger.UpdateContext(req.Key, req.Value)
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) handleEvents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.debugger.Events())
}

// handleEventStream upgrades to WebSocket and forwards debug events until
// the client goes away.
func (h *Handler) handleEventStream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", "error", err)
		return
	}
	events, cancel := h.debugger.Subscribe()
	defer cancel()
	defer conn.Close()

	// Drain reads so close frames are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
