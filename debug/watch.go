package debug

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// WatchExpression is a caller-defined expression re-evaluated against the
// context on each step boundary. The Last* fields cache the most recent
// evaluation and are never rolled back.
type WatchExpression struct {
	ID              string     `json:"id"`
	Expression      string     `json:"expression"`
	Name            string     `json:"name,omitempty"`
	Enabled         bool       `json:"enabled"`
	LastValue       any        `json:"last_value,omitempty"`
	LastError       string     `json:"last_error,omitempty"`
	LastEvaluatedAt *time.Time `json:"last_evaluated_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// WatchEvaluation is the immutable result of evaluating one expression.
// Evaluation failures are data on this record, never raised errors.
type WatchEvaluation struct {
	ExpressionID string       `json:"expression_id"`
	Expression   string       `json:"expression"`
	Value        any          `json:"value,omitempty"`
	Type         VariableType `json:"type,omitempty"`
	Error        string       `json:"error,omitempty"`
	Timestamp    time.Time    `json:"timestamp"`
}

// WatchEvaluator owns the watch expressions of one debug session.
type WatchEvaluator struct {
	mu      sync.Mutex
	watches map[string]*WatchExpression
	order   []string
	logger  *slog.Logger
}

// NewWatchEvaluator creates an empty WatchEvaluator.
func NewWatchEvaluator(logger *slog.Logger) *WatchEvaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &WatchEvaluator{
		watches: make(map[string]*WatchExpression),
		logger:  logger,
	}
}

// Add registers a new watch expression and returns it.
func (e *WatchEvaluator) Add(expression, name string) *WatchExpression {
	e.mu.Lock()
	defer e.mu.Unlock()

	w := &WatchExpression{
		ID:         uuid.NewString(),
		Expression: expression,
		Name:       name,
		Enabled:    true,
		CreatedAt:  time.Now(),
	}
	e.watches[w.ID] = w
	e.order = append(e.order, w.ID)
	return w
}

// Remove deletes a watch by id. Returns false for an unknown id.
func (e *WatchEvaluator) Remove(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.watches[id]; !ok {
		return false
	}
	delete(e.watches, id)
	e.order = removeID(e.order, id)
	return true
}

// Update replaces a watch's expression text and clears its cached result.
// Returns nil for an unknown id.
func (e *WatchEvaluator) Update(id, expression string) *WatchExpression {
	e.mu.Lock()
	defer e.mu.Unlock()

	w, ok := e.watches[id]
	if !ok {
		return nil
	}
	w.Expression = expression
	w.LastValue = nil
	w.LastError = ""
	w.LastEvaluatedAt = nil
	return w
}

// Toggle flips a watch's enabled flag. Returns nil for an unknown id.
func (e *WatchEvaluator) Toggle(id string) *WatchExpression {
	e.mu.Lock()
	defer e.mu.Unlock()

	w, ok := e.watches[id]
	if !ok {
		return nil
	}
	w.Enabled = !w.Enabled
	return w
}

// Get returns a watch by id, or nil.
func (e *WatchEvaluator) Get(id string) *WatchExpression {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.watches[id]
}

// List returns all watches in insertion order.
func (e *WatchEvaluator) List() []*WatchExpression {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]*WatchExpression, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.watches[id])
	}
	return out
}

// ListEnabled returns the enabled watches in insertion order.
func (e *WatchEvaluator) ListEnabled() []*WatchExpression {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]*WatchExpression, 0, len(e.order))
	for _, id := range e.order {
		if w := e.watches[id]; w.Enabled {
			out = append(out, w)
		}
	}
	return out
}

// Clear removes all watches.
func (e *WatchEvaluator) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.watches = make(map[string]*WatchExpression)
	e.order = nil
}

// Evaluate evaluates a single watch by id against the context, updating its
// cached result. Returns nil for an unknown id.
func (e *WatchEvaluator) Evaluate(id string, context map[string]any) *WatchEvaluation {
	e.mu.Lock()
	defer e.mu.Unlock()

	w, ok := e.watches[id]
	if !ok {
		return nil
	}
	return e.evaluateLocked(w, context)
}

// EvaluateAll evaluates every enabled watch against the context. A broken
// expression yields an error result without affecting the others. onUpdate,
// when non-nil, is invoked per result to support streaming UI updates.
func (e *WatchEvaluator) EvaluateAll(context map[string]any, onUpdate func(*WatchEvaluation)) []*WatchEvaluation {
	e.mu.Lock()
	results := make([]*WatchEvaluation, 0, len(e.order))
	for _, id := range e.order {
		w := e.watches[id]
		if !w.Enabled {
			continue
		}
		results = append(results, e.evaluateLocked(w, context))
	}
	e.mu.Unlock()

	if onUpdate != nil {
		for _, r := range results {
			onUpdate(r)
		}
	}
	return results
}

// EvaluateExpression evaluates ad-hoc expression text without registering a
// watch or touching any cache.
func (e *WatchEvaluator) EvaluateExpression(expression string, context map[string]any) *WatchEvaluation {
	ev := &WatchEvaluation{
		Expression: expression,
		Timestamp:  time.Now(),
	}
	value, err := EvalExpression(expression, context)
	if err != nil {
		ev.Error = err.Error()
		return ev
	}
	ev.Value = value
	ev.Type = TypeOf(value)
	return ev
}

func (e *WatchEvaluator) evaluateLocked(w *WatchExpression, context map[string]any) *WatchEvaluation {
	now := time.Now()
	ev := &WatchEvaluation{
		ExpressionID: w.ID,
		Expression:   w.Expression,
		Timestamp:    now,
	}
	value, err := EvalExpression(w.Expression, context)
	if err != nil {
		ev.Error = err.Error()
		w.LastValue = nil
		w.LastError = err.Error()
	} else {
		ev.Value = value
		ev.Type = TypeOf(value)
		w.LastValue = value
		w.LastError = ""
	}
	w.LastEvaluatedAt = &now
	return ev
}

// Export returns a plain-record copy of all watches, suitable for storage
// between sessions.
func (e *WatchEvaluator) Export() []*WatchExpression {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]*WatchExpression, 0, len(e.order))
	for _, id := range e.order {
		copied := *e.watches[id]
		out = append(out, &copied)
	}
	return out
}

// Import replaces the current set with previously exported watches.
func (e *WatchEvaluator) Import(watches []*WatchExpression) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.watches = make(map[string]*WatchExpression, len(watches))
	e.order = e.order[:0]
	for _, w := range watches {
		if w == nil || w.ID == "" {
			continue
		}
		copied := *w
		e.watches[copied.ID] = &copied
		e.order = append(e.order, copied.ID)
	}
}

// ToJSON serializes the watch list.
func (e *WatchEvaluator) ToJSON() ([]byte, error) {
	return json.Marshal(e.Export())
}

// FromJSON restores watches from a serialized list. Timestamps come back as
// real time values via encoding/json.
func (e *WatchEvaluator) FromJSON(data []byte) error {
	var watches []*WatchExpression
	if err := json.Unmarshal(data, &watches); err != nil {
		return err
	}
	e.Import(watches)
	return nil
}

func removeID(order []string, id string) []string {
	for i, v := range order {
		if v == id {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}
