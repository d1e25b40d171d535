// Package debug implements the journey debugger: step-through execution of
// a recorded or live journey with breakpoints, watch expressions, variable
// inspection, and event emission toward a host UI.
package debug

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/uaesivakumar/premiumradar-saas-sub004/journey"
)

// pendingAction is the stepping mode the engine resumes under.
type pendingAction int

const (
	actionNone pendingAction = iota
	actionContinue
	actionStepOver
	actionStepInto
	actionStepOut
)

// Debugger orchestrates a single debug session at a time: lifecycle,
// stepping, call-stack maintenance, breakpoint consultation, and watch
// re-evaluation. It is safe for concurrent use; host callbacks are always
// invoked without the internal lock held.
type Debugger struct {
	mu     sync.Mutex
	cfg    SessionConfig
	cb     DebugCallbacks
	logger *slog.Logger

	session        *DebugSession
	journeyID      string
	runID          string
	steps          []journey.Step
	initialContext map[string]any

	breakpoints *BreakpointManager
	watches     *WatchEvaluator

	events       []DebugEvent
	pending      pendingAction
	stepOutDepth int
	framePushed  bool
	currentFrame *CallStackFrame
	stepTimer    *time.Timer

	subs      map[int]chan DebugEvent
	nextSubID int
}

// New creates a Debugger. Each instance owns its own managers; there is no
// process-wide state.
func New(cfg SessionConfig, callbacks DebugCallbacks, logger *slog.Logger) *Debugger {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.StepDelay <= 0 {
		cfg.StepDelay = DefaultSessionConfig().StepDelay
	}
	if cfg.MaxCallStackDepth <= 0 {
		cfg.MaxCallStackDepth = DefaultSessionConfig().MaxCallStackDepth
	}
	return &Debugger{
		cfg:    cfg,
		cb:     callbacks,
		logger: logger,
		subs:   make(map[int]chan DebugEvent),
	}
}

// Breakpoints returns the active session's breakpoint manager, or nil when
// no session resources exist.
func (d *Debugger) Breakpoints() *BreakpointManager {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.breakpoints
}

// Watches returns the active session's watch evaluator, or nil.
func (d *Debugger) Watches() *WatchEvaluator {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.watches
}

// Session returns a snapshot of the current session, or nil when none is
// active. The snapshot carries the session-level view of breakpoints and
// watches.
func (d *Debugger) Session() *DebugSession {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sessionSnapshotLocked()
}

func (d *Debugger) sessionSnapshotLocked() *DebugSession {
	if d.session == nil {
		return nil
	}
	s := *d.session
	s.Context = copyContext(d.session.Context)
	s.CallStack = append([]*CallStackFrame(nil), d.session.CallStack...)
	if d.breakpoints != nil {
		s.Breakpoints = d.breakpoints.List()
	}
	if d.watches != nil {
		s.Watches = d.watches.List()
	}
	return &s
}

// Events returns a copy of the session event log.
func (d *Debugger) Events() []DebugEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]DebugEvent(nil), d.events...)
}

// Subscribe returns a channel receiving every emitted DebugEvent and a
// cancel function. Slow subscribers drop events rather than block the
// engine.
func (d *Debugger) Subscribe() (<-chan DebugEvent, func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextSubID
	d.nextSubID++
	ch := make(chan DebugEvent, 64)
	d.subs[id] = ch

	cancel := func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if sub, ok := d.subs[id]; ok {
			delete(d.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Scopes returns the variable scopes derived from the current context.
func (d *Debugger) Scopes() []*VariableScope {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session == nil {
		return nil
	}
	return BuildScopes(d.session.Context)
}

// StartSession begins a new debug session over the given step list. An
// existing session is torn down first. With PauseOnStart the session pauses
// at step 0; otherwise it free-runs immediately.
func (d *Debugger) StartSession(journeyID, runID string, steps []journey.Step, initialContext map[string]any) *DebugSession {
	d.mu.Lock()
	var fires []func()
	d.teardownLocked()
	d.journeyID = journeyID
	d.runID = runID
	d.steps = append([]journey.Step(nil), steps...)
	d.initialContext = copyContext(initialContext)
	d.startLocked(&fires, nil, nil)
	snapshot := d.sessionSnapshotLocked()
	d.mu.Unlock()

	for _, f := range fires {
		f()
	}
	return snapshot
}

// startLocked builds the session and both managers, optionally restoring
// exported breakpoints/watches before execution begins.
func (d *Debugger) startLocked(fires *[]func(), restoreBPs []*Breakpoint, restoreWatches []*WatchExpression) {
	s := &DebugSession{
		ID:               uuid.NewString(),
		JourneyID:        d.journeyID,
		RunID:            d.runID,
		Status:           StatusStarting,
		CurrentStepIndex: -1,
		CallStack:        make([]*CallStackFrame, 0),
		Context:          copyContext(d.initialContext),
		StartedAt:        time.Now(),
	}
	d.session = s
	d.breakpoints = NewBreakpointManager(d.journeyID, d.logger)
	d.watches = NewWatchEvaluator(d.logger)
	if restoreBPs != nil {
		d.breakpoints.Import(restoreBPs)
		d.breakpoints.ResetHitCounts()
	}
	if restoreWatches != nil {
		d.watches.Import(restoreWatches)
	}
	d.events = nil
	d.pending = actionContinue
	d.framePushed = false
	d.currentFrame = nil

	d.emitLocked(EventSessionStarted, "", -1, "", map[string]any{"journey_id": d.journeyID})
	d.fireSessionCallback(fires, d.cb.OnSessionStart)

	if len(d.steps) == 0 {
		d.completeSessionLocked(fires)
		return
	}

	s.CurrentStepIndex = 0
	s.CurrentStepID = d.steps[0].ID
	if d.cfg.PauseOnStart {
		d.pauseLocked(fires, PauseReasonEntry, "")
		return
	}
	s.Status = StatusRunning
	d.executeCurrentStepLocked(fires)
}

// Continue resumes free-running execution from the current index. No-op
// unless paused.
func (d *Debugger) Continue() {
	d.resume(actionContinue, "continue")
}

// StepOver executes exactly the current step and pauses at the next index.
// No-op unless paused.
func (d *Debugger) StepOver() {
	d.resume(actionStepOver, "step_over")
}

// StepInto behaves identically to StepOver: journeys have no nested
// sub-journeys, so there is nothing to descend into.
func (d *Debugger) StepInto() {
	d.resume(actionStepInto, "step_into")
}

// StepOut executes until the call-stack depth drops below the depth of the
// frame active when invoked. Frames are never popped in this engine, so in
// the absence of backwards jumps this runs the journey to completion
// without breakpoint gating.
func (d *Debugger) StepOut() {
	d.mu.Lock()
	if d.session == nil || d.session.Status != StatusPaused {
		d.mu.Unlock()
		return
	}
	if d.currentFrame != nil {
		d.stepOutDepth = d.currentFrame.Depth
	} else {
		d.stepOutDepth = 0
	}
	d.mu.Unlock()
	d.resume(actionStepOut, "step_out")
}

func (d *Debugger) resume(action pendingAction, name string) {
	d.mu.Lock()
	if d.session == nil || d.session.Status != StatusPaused {
		d.mu.Unlock()
		return
	}
	var fires []func()
	s := d.session
	d.pending = action
	s.PausedAt = nil
	if action == actionContinue {
		s.Status = StatusRunning
	} else {
		s.Status = StatusStepping
	}
	d.emitLocked(EventSessionResumed, s.CurrentStepID, s.CurrentStepIndex, "", map[string]any{"action": name})
	d.fireSessionCallback(&fires, d.cb.OnSessionResume)

	switch {
	case d.framePushed && d.currentFrame != nil && d.currentFrame.Status == FrameRunning:
		// Paused before the step body simulated (breakpoint hit); resume
		// the current frame without re-checking breakpoints.
		d.simulateCurrentLocked()
	case d.framePushed:
		// The current frame already ended (failed step); move past it.
		d.framePushed = false
		d.advanceLocked(&fires, action)
	default:
		d.executeCurrentStepLocked(&fires)
	}
	d.mu.Unlock()

	for _, f := range fires {
		f()
	}
}

// Pause requests a pause of a running session. No-op unless running.
func (d *Debugger) Pause() {
	d.mu.Lock()
	if d.session == nil || d.session.Status != StatusRunning {
		d.mu.Unlock()
		return
	}
	var fires []func()
	d.pauseLocked(&fires, PauseReasonUserRequest, "")
	d.mu.Unlock()

	for _, f := range fires {
		f()
	}
}

// JumpToStep forcibly repositions the session at the given step index and
// pauses there, bypassing normal sequencing. Out-of-range indices are
// silently ignored.
func (d *Debugger) JumpToStep(index int) {
	d.mu.Lock()
	if d.session == nil || index < 0 || index >= len(d.steps) {
		d.mu.Unlock()
		return
	}
	var fires []func()
	d.stopTimerLocked()
	if d.framePushed && d.currentFrame != nil && d.currentFrame.Status == FrameRunning {
		now := time.Now()
		d.currentFrame.Status = FrameSkipped
		d.currentFrame.EndedAt = &now
	}
	d.framePushed = false
	d.session.CurrentStepIndex = index
	d.session.CurrentStepID = d.steps[index].ID
	d.pending = actionContinue
	d.pauseLocked(&fires, PauseReasonJump, "")
	d.mu.Unlock()

	for _, f := range fires {
		f()
	}
}

// StopSession terminates the session unconditionally and releases both
// managers and the step list.
func (d *Debugger) StopSession() {
	d.mu.Lock()
	var fires []func()
	if d.session != nil {
		d.stopTimerLocked()
		d.session.Status = StatusCompleted
		d.fireSessionCallback(&fires, d.cb.OnSessionComplete)
	}
	d.teardownLocked()
	d.steps = nil
	d.initialContext = nil
	d.breakpoints = nil
	d.watches = nil
	d.mu.Unlock()

	for _, f := range fires {
		f()
	}
}

// Restart snapshots breakpoints and watches, tears the session down, and
// starts a fresh one over the same step list with the snapshot restored.
// Hit counts are session-scoped and reset to zero.
func (d *Debugger) Restart() {
	d.mu.Lock()
	if d.steps == nil {
		d.mu.Unlock()
		return
	}
	var fires []func()
	var bps []*Breakpoint
	var watches []*WatchExpression
	if d.breakpoints != nil {
		bps = d.breakpoints.Export()
	}
	if d.watches != nil {
		watches = d.watches.Export()
	}
	d.teardownLocked()
	d.startLocked(&fires, bps, watches)
	d.mu.Unlock()

	for _, f := range fires {
		f()
	}
}

// UpdateContext writes a value into the session context. This is the side
// channel through which external step logic reports intermediate state. It
// fires the context-change callback, consults context-change breakpoints
// (pausing only while running), and re-evaluates all watches.
func (d *Debugger) UpdateContext(key string, value any) {
	d.mu.Lock()
	if d.session == nil {
		d.mu.Unlock()
		return
	}
	var fires []func()
	s := d.session
	oldValue, existed := s.Context[key]
	s.Context[key] = value

	d.emitLocked(EventContextChanged, s.CurrentStepID, s.CurrentStepIndex, "", map[string]any{"key": key})
	if cb := d.cb.OnContextChange; cb != nil {
		var old any = oldValue
		if !existed {
			old = Undefined
		}
		fires = append(fires, d.guard("OnContextChange", func() { cb(key, old, value) }))
	}

	hit := d.breakpoints.CheckContextChange(key, oldValue, value, d.currentFrame, s.Context)
	if hit != nil {
		d.emitLocked(EventBreakpointHit, hit.StepID, hit.StepIndex, hit.BreakpointID, nil)
		if cb := d.cb.OnBreakpointHit; cb != nil {
			fires = append(fires, d.guard("OnBreakpointHit", func() { cb(hit) }))
		}
		if s.Status == StatusRunning {
			d.pauseLocked(&fires, PauseReasonBreakpoint, hit.BreakpointID)
		}
	}

	d.evaluateWatchesLocked(&fires)
	d.mu.Unlock()

	for _, f := range fires {
		f()
	}
}

// ReportStepError lets the host report a failure inside the current step.
// Error breakpoints are consulted (caught errors only when
// PauseOnCaughtError is set); with PauseOnError the session pauses,
// otherwise it enters the terminal error state.
func (d *Debugger) ReportStepError(err error, caught bool) {
	if err == nil {
		return
	}
	d.mu.Lock()
	if d.session == nil || d.currentFrame == nil {
		d.mu.Unlock()
		return
	}
	var fires []func()
	s := d.session

	if caught && !d.cfg.PauseOnCaughtError {
		d.emitLocked(EventSessionError, s.CurrentStepID, s.CurrentStepIndex, "", map[string]any{
			"error":  err.Error(),
			"caught": true,
		})
		d.mu.Unlock()
		for _, f := range fires {
			f()
		}
		return
	}

	now := time.Now()
	d.currentFrame.Status = FrameFailed
	d.currentFrame.EndedAt = &now
	d.stopTimerLocked()

	hit, logpoints := d.breakpoints.ShouldBreak(d.currentFrame, s.Context, err)
	d.fireLogpoints(&fires, logpoints)
	if hit != nil {
		d.emitLocked(EventBreakpointHit, hit.StepID, hit.StepIndex, hit.BreakpointID, nil)
		if cb := d.cb.OnBreakpointHit; cb != nil {
			fires = append(fires, d.guard("OnBreakpointHit", func() { cb(hit) }))
		}
	}

	switch {
	case hit != nil:
		d.pauseLocked(&fires, PauseReasonBreakpoint, hit.BreakpointID)
	case d.cfg.PauseOnError && !caught:
		d.pauseLocked(&fires, PauseReasonError, "")
	default:
		s.Status = StatusError
		s.Error = err.Error()
		d.emitLocked(EventSessionError, s.CurrentStepID, s.CurrentStepIndex, "", map[string]any{"error": err.Error()})
		if cb := d.cb.OnSessionError; cb != nil {
			snapshot := d.sessionSnapshotLocked()
			fires = append(fires, d.guard("OnSessionError", func() { cb(snapshot, err) }))
		}
	}
	d.mu.Unlock()

	for _, f := range fires {
		f()
	}
}

// EvaluateExpression evaluates ad-hoc expression text against the current
// context without registering a watch.
func (d *Debugger) EvaluateExpression(expression string) *WatchEvaluation {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session == nil || d.watches == nil {
		return nil
	}
	return d.watches.EvaluateExpression(expression, d.session.Context)
}

// --- internals ---

// executeCurrentStepLocked pushes the frame for the current index and
// either pauses on a breakpoint hit or schedules the simulated step body.
// Running off the end of the step list completes the session.
func (d *Debugger) executeCurrentStepLocked(fires *[]func()) {
	s := d.session
	idx := s.CurrentStepIndex
	if idx < 0 || idx >= len(d.steps) {
		d.completeSessionLocked(fires)
		return
	}
	step := d.steps[idx]
	s.CurrentStepID = step.ID

	parentID := ""
	depth := 0
	if d.currentFrame != nil {
		parentID = d.currentFrame.ID
		depth = d.currentFrame.Depth + 1
	}
	frame := &CallStackFrame{
		ID:            uuid.NewString(),
		StepID:        step.ID,
		StepIndex:     idx,
		StepType:      step.Type,
		StepName:      step.Name,
		StartedAt:     time.Now(),
		Status:        FrameRunning,
		Context:       copyContext(s.Context),
		ParentFrameID: parentID,
		Depth:         depth,
	}
	if depth > d.cfg.MaxCallStackDepth {
		d.logger.Warn("Call stack depth exceeds configured maximum",
			"depth", depth, "max", d.cfg.MaxCallStackDepth)
	}
	s.CallStack = append(s.CallStack, frame)
	d.currentFrame = frame
	d.framePushed = true

	if d.cfg.Verbose {
		d.logger.Debug("Step started", "step_id", step.ID, "index", idx)
	}
	d.emitLocked(EventStepStarted, step.ID, idx, "", nil)
	if cb := d.cb.OnStepStart; cb != nil {
		*fires = append(*fires, d.guard("OnStepStart", func() { cb(frame) }))
	}

	// Breakpoints gate free-running continuation only; explicit stepping
	// always executes.
	if d.pending == actionContinue {
		hit, logpoints := d.breakpoints.ShouldBreak(frame, s.Context, nil)
		d.fireLogpoints(fires, logpoints)
		if hit != nil {
			d.emitLocked(EventBreakpointHit, hit.StepID, hit.StepIndex, hit.BreakpointID, nil)
			if cb := d.cb.OnBreakpointHit; cb != nil {
				*fires = append(*fires, d.guard("OnBreakpointHit", func() { cb(hit) }))
			}
			d.pauseLocked(fires, PauseReasonBreakpoint, hit.BreakpointID)
			return
		}
	}

	d.simulateCurrentLocked()
}

// simulateCurrentLocked schedules the simulated body of the current step.
// The completion is tagged with the session and frame ids so a completion
// that outlives its session is discarded instead of mutating a successor.
func (d *Debugger) simulateCurrentLocked() {
	sessionID := d.session.ID
	frameID := d.currentFrame.ID
	d.stepTimer = time.AfterFunc(d.cfg.StepDelay, func() {
		d.completeStep(sessionID, frameID)
	})
}

// completeStep finishes the simulated step, re-evaluates watches, and
// advances according to the pending action.
func (d *Debugger) completeStep(sessionID, frameID string) {
	d.mu.Lock()
	if d.session == nil || d.session.ID != sessionID {
		d.mu.Unlock()
		return
	}
	frame := d.currentFrame
	if frame == nil || frame.ID != frameID || frame.Status != FrameRunning {
		d.mu.Unlock()
		return
	}
	var fires []func()
	s := d.session

	now := time.Now()
	frame.Status = FrameCompleted
	frame.EndedAt = &now
	d.framePushed = false
	d.emitLocked(EventStepCompleted, frame.StepID, frame.StepIndex, "", nil)
	if cb := d.cb.OnStepComplete; cb != nil {
		f := frame
		fires = append(fires, d.guard("OnStepComplete", func() { cb(f) }))
	}

	// Watches observe the context exactly as it stood at step completion.
	d.evaluateWatchesLocked(&fires)

	next := s.CurrentStepIndex + 1
	s.CurrentStepIndex = next
	if next < len(d.steps) {
		s.CurrentStepID = d.steps[next].ID
	} else {
		s.CurrentStepID = ""
	}

	switch {
	case s.Status == StatusPaused:
		// A pause request (or context-change hit) landed while the step
		// was in flight; hold position at the next index.
	case next >= len(d.steps):
		d.completeSessionLocked(&fires)
	case d.pending == actionStepOver || d.pending == actionStepInto:
		d.pauseLocked(&fires, PauseReasonStep, "")
	case d.pending == actionStepOut && frame.Depth < d.stepOutDepth:
		d.pauseLocked(&fires, PauseReasonStep, "")
	default:
		d.executeCurrentStepLocked(&fires)
	}
	d.mu.Unlock()

	for _, f := range fires {
		f()
	}
}

// advanceLocked moves the session to the next index and either pauses,
// completes, or keeps executing depending on the stepping mode.
func (d *Debugger) advanceLocked(fires *[]func(), action pendingAction) {
	s := d.session
	next := s.CurrentStepIndex + 1
	s.CurrentStepIndex = next
	if next < len(d.steps) {
		s.CurrentStepID = d.steps[next].ID
	} else {
		s.CurrentStepID = ""
	}
	switch {
	case next >= len(d.steps):
		d.completeSessionLocked(fires)
	case action == actionStepOver || action == actionStepInto:
		d.pauseLocked(fires, PauseReasonStep, "")
	default:
		d.executeCurrentStepLocked(fires)
	}
}

func (d *Debugger) evaluateWatchesLocked(fires *[]func()) {
	if d.watches == nil {
		return
	}
	results := d.watches.EvaluateAll(d.session.Context, nil)
	if cb := d.cb.OnWatchUpdate; cb != nil {
		for _, r := range results {
			ev := r
			*fires = append(*fires, d.guard("OnWatchUpdate", func() { cb(ev) }))
		}
	}
}

func (d *Debugger) pauseLocked(fires *[]func(), reason, breakpointID string) {
	s := d.session
	now := time.Now()
	s.Status = StatusPaused
	s.PausedAt = &now
	d.emitLocked(EventSessionPaused, s.CurrentStepID, s.CurrentStepIndex, breakpointID, map[string]any{"reason": reason})
	if cb := d.cb.OnSessionPause; cb != nil {
		snapshot := d.sessionSnapshotLocked()
		*fires = append(*fires, d.guard("OnSessionPause", func() { cb(snapshot, reason) }))
	}
}

// completeSessionLocked handles the normal terminal condition: running off
// the end of the step list. The engine stops referencing the session but
// keeps managers and steps so a Restart can restore them.
func (d *Debugger) completeSessionLocked(fires *[]func()) {
	s := d.session
	s.Status = StatusCompleted
	d.emitLocked(EventSessionCompleted, "", s.CurrentStepIndex, "", nil)
	d.fireSessionCallback(fires, d.cb.OnSessionComplete)
	d.session = nil
	d.currentFrame = nil
	d.framePushed = false
	d.pending = actionNone
}

// teardownLocked detaches the current session and clears the event log.
func (d *Debugger) teardownLocked() {
	d.stopTimerLocked()
	d.session = nil
	d.currentFrame = nil
	d.framePushed = false
	d.pending = actionNone
	d.events = nil
}

func (d *Debugger) stopTimerLocked() {
	if d.stepTimer != nil {
		d.stepTimer.Stop()
		d.stepTimer = nil
	}
}

func (d *Debugger) emitLocked(evType DebugEventType, stepID string, stepIndex int, breakpointID string, data map[string]any) {
	sessionID := ""
	if d.session != nil {
		sessionID = d.session.ID
	}
	ev := DebugEvent{
		Type:         evType,
		SessionID:    sessionID,
		Timestamp:    time.Now(),
		StepID:       stepID,
		StepIndex:    stepIndex,
		BreakpointID: breakpointID,
		Data:         data,
	}
	d.events = append(d.events, ev)
	for _, sub := range d.subs {
		select {
		case sub <- ev:
		default:
		}
	}
}

func (d *Debugger) fireSessionCallback(fires *[]func(), cb func(*DebugSession)) {
	if cb == nil {
		return
	}
	snapshot := d.sessionSnapshotLocked()
	if snapshot == nil {
		return
	}
	*fires = append(*fires, d.guard("session callback", func() { cb(snapshot) }))
}

func (d *Debugger) fireLogpoints(fires *[]func(), logpoints []LogpointOutput) {
	if d.cb.OnLogpoint == nil {
		return
	}
	cb := d.cb.OnLogpoint
	for _, lp := range logpoints {
		out := lp
		*fires = append(*fires, d.guard("OnLogpoint", func() { cb(out.Breakpoint, out.Output) }))
	}
}

// guard wraps a host callback so a panic inside it is logged instead of
// unwinding through the engine.
func (d *Debugger) guard(name string, f func()) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("Debug callback panicked", "callback", name, "panic", r)
			}
		}()
		f()
	}
}
