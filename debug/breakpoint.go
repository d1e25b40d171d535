package debug

import (
	"encoding/json"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
)

// BreakpointType identifies what kind of breakpoint is set.
type BreakpointType string

const (
	BreakpointStep          BreakpointType = "step"
	BreakpointConditional   BreakpointType = "conditional"
	BreakpointLogpoint      BreakpointType = "logpoint"
	BreakpointError         BreakpointType = "error"
	BreakpointContextChange BreakpointType = "context_change"
)

// Breakpoint is a configured predicate that may pause the session when
// matched. A conditional breakpoint without a condition and a logpoint
// without a message are inert: they never fire and are not an error.
type Breakpoint struct {
	ID           string         `json:"id"`
	JourneyID    string         `json:"journey_id"`
	Type         BreakpointType `json:"type"`
	StepID       string         `json:"step_id,omitempty"`
	StepIndex    *int           `json:"step_index,omitempty"`
	Condition    string         `json:"condition,omitempty"`
	LogMessage   string         `json:"log_message,omitempty"`
	ContextKey   string         `json:"context_key,omitempty"`
	Enabled      bool           `json:"enabled"`
	HitCount     int            `json:"hit_count"`
	HitCondition string         `json:"hit_condition,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// BreakpointHit is the immutable record emitted each time a breakpoint's
// predicate is satisfied. HitCount carries the count after increment.
type BreakpointHit struct {
	BreakpointID    string         `json:"breakpoint_id"`
	StepID          string         `json:"step_id,omitempty"`
	StepIndex       int            `json:"step_index"`
	HitCount        int            `json:"hit_count"`
	Timestamp       time.Time      `json:"timestamp"`
	Context         map[string]any `json:"context"`
	ConditionResult *bool          `json:"condition_result,omitempty"`
	LogOutput       string         `json:"log_output,omitempty"`
}

// LogpointOutput pairs a fired logpoint with its rendered message.
// Logpoints report but never pause.
type LogpointOutput struct {
	Breakpoint *Breakpoint
	Output     string
	Hit        *BreakpointHit
}

// BreakpointManager owns the breakpoints of one journey's debug session and
// decides, per frame, whether execution should pause.
type BreakpointManager struct {
	mu          sync.Mutex
	journeyID   string
	breakpoints map[string]*Breakpoint
	order       []string
	hitCallback func(*BreakpointHit)
	logCallback func(*Breakpoint, string)
	logger      *slog.Logger
}

// NewBreakpointManager creates a BreakpointManager scoped to one journey.
func NewBreakpointManager(journeyID string, logger *slog.Logger) *BreakpointManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &BreakpointManager{
		journeyID:   journeyID,
		breakpoints: make(map[string]*Breakpoint),
		logger:      logger,
	}
}

// SetHitCallback registers a callback fired on every genuine (pausing) hit.
func (m *BreakpointManager) SetHitCallback(cb func(*BreakpointHit)) {
	m.hitCallback = cb
}

// SetLogpointCallback registers a callback fired on every logpoint output.
func (m *BreakpointManager) SetLogpointCallback(cb func(*Breakpoint, string)) {
	m.logCallback = cb
}

func (m *BreakpointManager) add(bp *Breakpoint) *Breakpoint {
	m.mu.Lock()
	defer m.mu.Unlock()

	bp.ID = uuid.NewString()
	bp.JourneyID = m.journeyID
	bp.Enabled = true
	bp.CreatedAt = time.Now()
	m.breakpoints[bp.ID] = bp
	m.order = append(m.order, bp.ID)

	m.logger.Info("Breakpoint added",
		"id", bp.ID,
		"type", string(bp.Type),
		"step_id", bp.StepID,
	)
	return bp
}

// AddStepBreakpoint pauses whenever the targeted step begins. stepIndex may
// be nil to target by id only.
func (m *BreakpointManager) AddStepBreakpoint(stepID string, stepIndex *int) *Breakpoint {
	return m.add(&Breakpoint{Type: BreakpointStep, StepID: stepID, StepIndex: stepIndex})
}

// AddConditionalBreakpoint pauses when the condition evaluates truthy.
// stepID may be empty to apply on every step.
func (m *BreakpointManager) AddConditionalBreakpoint(condition, stepID string) *Breakpoint {
	return m.add(&Breakpoint{Type: BreakpointConditional, Condition: condition, StepID: stepID})
}

// AddLogpoint reports a rendered message when matched, without pausing.
func (m *BreakpointManager) AddLogpoint(logMessage, stepID string) *Breakpoint {
	return m.add(&Breakpoint{Type: BreakpointLogpoint, LogMessage: logMessage, StepID: stepID})
}

// AddErrorBreakpoint pauses when a step reports an error.
func (m *BreakpointManager) AddErrorBreakpoint() *Breakpoint {
	return m.add(&Breakpoint{Type: BreakpointError})
}

// AddContextChangeBreakpoint pauses when the watched context key changes.
func (m *BreakpointManager) AddContextChangeBreakpoint(contextKey string) *Breakpoint {
	return m.add(&Breakpoint{Type: BreakpointContextChange, ContextKey: contextKey})
}

// Remove deletes a breakpoint by id. Returns false for an unknown id.
func (m *BreakpointManager) Remove(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.breakpoints[id]; !ok {
		return false
	}
	delete(m.breakpoints, id)
	m.order = removeID(m.order, id)
	return true
}

// Enable enables a breakpoint. Returns false for an unknown id.
func (m *BreakpointManager) Enable(id string) bool {
	return m.setEnabled(id, true)
}

// Disable disables a breakpoint without removing it.
func (m *BreakpointManager) Disable(id string) bool {
	return m.setEnabled(id, false)
}

func (m *BreakpointManager) setEnabled(id string, enabled bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	bp, ok := m.breakpoints[id]
	if !ok {
		return false
	}
	bp.Enabled = enabled
	return true
}

// SetHitCondition sets the hit-condition filter on a breakpoint.
func (m *BreakpointManager) SetHitCondition(id, condition string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	bp, ok := m.breakpoints[id]
	if !ok {
		return false
	}
	bp.HitCondition = condition
	return true
}

// Get returns a breakpoint by id, or nil.
func (m *BreakpointManager) Get(id string) *Breakpoint {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.breakpoints[id]
}

// List returns all breakpoints in insertion order.
func (m *BreakpointManager) List() []*Breakpoint {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Breakpoint, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.breakpoints[id])
	}
	return out
}

// ListEnabled returns the enabled breakpoints in insertion order.
func (m *BreakpointManager) ListEnabled() []*Breakpoint {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Breakpoint, 0, len(m.order))
	for _, id := range m.order {
		if bp := m.breakpoints[id]; bp.Enabled {
			out = append(out, bp)
		}
	}
	return out
}

// Clear removes all breakpoints.
func (m *BreakpointManager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.breakpoints = make(map[string]*Breakpoint)
	m.order = nil
}

// ResetHitCounts zeroes every breakpoint's hit counter. Counts are
// session-scoped; a restarted session begins counting from zero.
func (m *BreakpointManager) ResetHitCounts() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, bp := range m.breakpoints {
		bp.HitCount = 0
	}
}

// ShouldBreak decides whether execution should pause at the given frame.
// Enabled breakpoints are checked in insertion order; the first genuine
// match is returned and scanning stops. Logpoints matched along the way are
// returned separately and never pause. Every match increments the hit
// counter before the hit condition is applied; a suppressed hit keeps the
// incremented count without pausing.
func (m *BreakpointManager) ShouldBreak(frame *CallStackFrame, context map[string]any, stepErr error) (*BreakpointHit, []LogpointOutput) {
	m.mu.Lock()

	var pauseHit *BreakpointHit
	var logpoints []LogpointOutput

	for _, id := range m.order {
		bp := m.breakpoints[id]
		if !bp.Enabled || bp.Type == BreakpointContextChange {
			continue
		}
		if bp.StepID != "" && bp.StepID != frame.StepID {
			continue
		}
		if bp.StepIndex != nil && *bp.StepIndex != frame.StepIndex {
			continue
		}

		var conditionResult *bool
		switch bp.Type {
		case BreakpointStep:
		case BreakpointConditional:
			if bp.Condition == "" {
				continue
			}
			if !EvalCondition(bp.Condition, context) {
				continue
			}
			t := true
			conditionResult = &t
		case BreakpointLogpoint:
			if bp.LogMessage == "" {
				continue
			}
		case BreakpointError:
			if stepErr == nil {
				continue
			}
		}

		bp.HitCount++
		if !hitConditionMet(bp.HitCondition, bp.HitCount) {
			continue
		}

		hit := &BreakpointHit{
			BreakpointID:    bp.ID,
			StepID:          frame.StepID,
			StepIndex:       frame.StepIndex,
			HitCount:        bp.HitCount,
			Timestamp:       time.Now(),
			Context:         copyContext(context),
			ConditionResult: conditionResult,
		}

		if bp.Type == BreakpointLogpoint {
			hit.LogOutput = RenderLogMessage(bp.LogMessage, context)
			logpoints = append(logpoints, LogpointOutput{Breakpoint: bp, Output: hit.LogOutput, Hit: hit})
			continue
		}

		pauseHit = hit
		break
	}
	m.mu.Unlock()

	if m.logCallback != nil {
		for _, lp := range logpoints {
			m.logCallback(lp.Breakpoint, lp.Output)
		}
	}
	if pauseHit != nil && m.hitCallback != nil {
		m.hitCallback(pauseHit)
	}
	return pauseHit, logpoints
}

// CheckContextChange is the separate entry point for context_change
// breakpoints: it fires when the watched key's value actually changed.
// frame may be nil when no step is active yet.
func (m *BreakpointManager) CheckContextChange(key string, oldValue, newValue any, frame *CallStackFrame, context map[string]any) *BreakpointHit {
	if valuesEqual(oldValue, newValue) {
		return nil
	}

	m.mu.Lock()
	var hit *BreakpointHit
	for _, id := range m.order {
		bp := m.breakpoints[id]
		if !bp.Enabled || bp.Type != BreakpointContextChange || bp.ContextKey != key {
			continue
		}

		bp.HitCount++
		if !hitConditionMet(bp.HitCondition, bp.HitCount) {
			continue
		}

		hit = &BreakpointHit{
			BreakpointID: bp.ID,
			HitCount:     bp.HitCount,
			Timestamp:    time.Now(),
			Context:      copyContext(context),
		}
		if frame != nil {
			hit.StepID = frame.StepID
			hit.StepIndex = frame.StepIndex
		} else {
			hit.StepIndex = -1
		}
		break
	}
	m.mu.Unlock()

	if hit != nil && m.hitCallback != nil {
		m.hitCallback(hit)
	}
	return hit
}

// valuesEqual compares context values. Deep equality stands in for the
// reference comparison a dynamic host would use.
func valuesEqual(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	return reflect.DeepEqual(a, b)
}

// Export returns a plain-record copy of all breakpoints.
func (m *BreakpointManager) Export() []*Breakpoint {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Breakpoint, 0, len(m.order))
	for _, id := range m.order {
		copied := *m.breakpoints[id]
		if copied.StepIndex != nil {
			idx := *copied.StepIndex
			copied.StepIndex = &idx
		}
		out = append(out, &copied)
	}
	return out
}

// Import replaces the current set with previously exported breakpoints,
// preserving ids, flags, hit conditions and creation timestamps.
func (m *BreakpointManager) Import(breakpoints []*Breakpoint) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.breakpoints = make(map[string]*Breakpoint, len(breakpoints))
	m.order = m.order[:0]
	for _, bp := range breakpoints {
		if bp == nil || bp.ID == "" {
			continue
		}
		copied := *bp
		m.breakpoints[copied.ID] = &copied
		m.order = append(m.order, copied.ID)
	}
}

// ToJSON serializes the breakpoint list.
func (m *BreakpointManager) ToJSON() ([]byte, error) {
	return json.Marshal(m.Export())
}

// FromJSON restores breakpoints from a serialized list. CreatedAt comes
// back as a real time value, not a string.
func (m *BreakpointManager) FromJSON(data []byte) error {
	var breakpoints []*Breakpoint
	if err := json.Unmarshal(data, &breakpoints); err != nil {
		return err
	}
	m.Import(breakpoints)
	return nil
}
