package debug

import (
	"time"
)

// SessionStatus is the debug session state machine:
// idle -> starting -> (running|paused) -> (stepping|paused)* -> completed,
// with error as an absorbing state reachable from any active state.
type SessionStatus string

const (
	StatusIdle      SessionStatus = "idle"
	StatusStarting  SessionStatus = "starting"
	StatusRunning   SessionStatus = "running"
	StatusPaused    SessionStatus = "paused"
	StatusStepping  SessionStatus = "stepping"
	StatusCompleted SessionStatus = "completed"
	StatusError     SessionStatus = "error"
)

// Pause reasons reported on session_paused transitions.
const (
	PauseReasonEntry       = "entry"
	PauseReasonBreakpoint  = "breakpoint"
	PauseReasonUserRequest = "user_request"
	PauseReasonStep        = "step"
	PauseReasonJump        = "jump"
	PauseReasonError       = "error"
)

// FrameStatus is the execution status of one call-stack frame.
type FrameStatus string

const (
	FrameRunning   FrameStatus = "running"
	FrameCompleted FrameStatus = "completed"
	FrameFailed    FrameStatus = "failed"
	FrameSkipped   FrameStatus = "skipped"
)

// CallStackFrame records one step's execution. Frames are pushed when a
// step begins and never popped; the stack is an execution trace, with depth
// tracking stepping order rather than recursion.
type CallStackFrame struct {
	ID            string         `json:"id"`
	StepID        string         `json:"step_id"`
	StepIndex     int            `json:"step_index"`
	StepType      string         `json:"step_type,omitempty"`
	StepName      string         `json:"step_name,omitempty"`
	StartedAt     time.Time      `json:"started_at"`
	EndedAt       *time.Time     `json:"ended_at,omitempty"`
	Status        FrameStatus    `json:"status"`
	Context       map[string]any `json:"context"`
	ParentFrameID string         `json:"parent_frame_id,omitempty"`
	Depth         int            `json:"depth"`
}

// DebugSession is the aggregate root of one debugging run.
type DebugSession struct {
	ID               string             `json:"id"`
	JourneyID        string             `json:"journey_id"`
	RunID            string             `json:"run_id,omitempty"`
	Status           SessionStatus      `json:"status"`
	CurrentStepIndex int                `json:"current_step_index"`
	CurrentStepID    string             `json:"current_step_id,omitempty"`
	CallStack        []*CallStackFrame  `json:"call_stack"`
	Context          map[string]any     `json:"context"`
	Breakpoints      []*Breakpoint      `json:"breakpoints,omitempty"`
	Watches          []*WatchExpression `json:"watches,omitempty"`
	StartedAt        time.Time          `json:"started_at"`
	PausedAt         *time.Time         `json:"paused_at,omitempty"`
	Error            string             `json:"error,omitempty"`
}

// DebugEventType tags entries in the session event log.
type DebugEventType string

const (
	EventSessionStarted   DebugEventType = "session_started"
	EventSessionPaused    DebugEventType = "session_paused"
	EventSessionResumed   DebugEventType = "session_resumed"
	EventSessionCompleted DebugEventType = "session_completed"
	EventSessionError     DebugEventType = "session_error"
	EventStepStarted      DebugEventType = "step_started"
	EventStepCompleted    DebugEventType = "step_completed"
	EventBreakpointHit    DebugEventType = "breakpoint_hit"
	EventContextChanged   DebugEventType = "context_changed"
)

// DebugEvent is one immutable entry in the session event log.
type DebugEvent struct {
	Type         DebugEventType `json:"type"`
	SessionID    string         `json:"session_id"`
	Timestamp    time.Time      `json:"timestamp"`
	StepID       string         `json:"step_id,omitempty"`
	StepIndex    int            `json:"step_index"`
	BreakpointID string         `json:"breakpoint_id,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
}

// DebugCallbacks is the contract a host implements to observe a session.
// Every field is optional. Callbacks are invoked outside the engine's
// internal lock and a panicking callback never aborts the session loop.
type DebugCallbacks struct {
	OnSessionStart    func(session *DebugSession)
	OnSessionPause    func(session *DebugSession, reason string)
	OnSessionResume   func(session *DebugSession)
	OnSessionComplete func(session *DebugSession)
	OnSessionError    func(session *DebugSession, err error)
	OnBreakpointHit   func(hit *BreakpointHit)
	OnStepStart       func(frame *CallStackFrame)
	OnStepComplete    func(frame *CallStackFrame)
	OnContextChange   func(key string, oldValue, newValue any)
	OnWatchUpdate     func(evaluation *WatchEvaluation)
	OnLogpoint        func(breakpoint *Breakpoint, output string)
}

// SessionConfig is the construction-time engine configuration.
type SessionConfig struct {
	// PauseOnStart pauses at step 0 instead of free-running.
	PauseOnStart bool `json:"pause_on_start"`
	// PauseOnError pauses on uncaught step errors instead of failing the session.
	PauseOnError bool `json:"pause_on_error"`
	// PauseOnCaughtError also considers caught errors for error breakpoints.
	PauseOnCaughtError bool `json:"pause_on_caught_error"`
	// MaxCallStackDepth is advisory only; exceeding it logs a warning.
	MaxCallStackDepth int `json:"max_call_stack_depth"`
	// Verbose enables per-step debug logging.
	Verbose bool `json:"verbose"`
	// StepDelay is the simulated duration of one step. The engine never
	// executes real step logic; the host reports state via UpdateContext.
	StepDelay time.Duration `json:"step_delay"`
}

// DefaultSessionConfig returns the documented defaults.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		PauseOnStart:      true,
		PauseOnError:      true,
		MaxCallStackDepth: 100,
		StepDelay:         50 * time.Millisecond,
	}
}

// copyContext snapshots a context map one level deep. Nested containers are
// shared; the debugger treats context values as immutable once assigned.
func copyContext(context map[string]any) map[string]any {
	snapshot := make(map[string]any, len(context))
	for k, v := range context {
		snapshot[k] = v
	}
	return snapshot
}
