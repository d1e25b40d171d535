package debug

import (
	"testing"
)

func testContext() map[string]any {
	return map[string]any{
		"count":  3,
		"name":   "checkout",
		"active": true,
		"user": map[string]any{
			"name": "ada",
			"age":  36,
			"tags": []any{"admin", "beta"},
		},
		"items": []any{
			map[string]any{"sku": "A-1", "qty": 2},
			map[string]any{"sku": "B-7", "qty": 1},
		},
		"nothing": nil,
	}
}

func TestEvalExpressionPaths(t *testing.T) {
	ctx := testContext()

	tests := []struct {
		expr string
		want any
	}{
		{"count", 3},
		{"name", "checkout"},
		{"user.name", "ada"},
		{"user.tags[1]", "beta"},
		{"items[0].sku", "A-1"},
		{"items[1].qty", 1},
		{"user['name']", "ada"},
		{`user["age"]`, 36},
		{"nothing", nil},
	}
	for _, tt := range tests {
		got, err := EvalExpression(tt.expr, ctx)
		if err != nil {
			t.Fatalf("EvalExpression(%q) error: %v", tt.expr, err)
		}
		if got != tt.want {
			t.Errorf("EvalExpression(%q) = %v, want %v", tt.expr, got, tt.want)
		}
	}
}

func TestEvalExpressionDotAndBracketEquivalent(t *testing.T) {
	ctx := testContext()

	a, err := EvalExpression("user.name", ctx)
	if err != nil {
		t.Fatal(err)
	}
	b, err := EvalExpression("user['name']", ctx)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("dot and bracket access disagree: %v vs %v", a, b)
	}
}

func TestEvalExpressionMissingPathIsUndefined(t *testing.T) {
	ctx := testContext()

	for _, expr := range []string{"missing", "user.missing", "items[9]", "count.anything", "items[0].sku.deeper"} {
		got, err := EvalExpression(expr, ctx)
		if err != nil {
			t.Fatalf("EvalExpression(%q) error: %v", expr, err)
		}
		if _, ok := got.(undefinedValue); !ok {
			t.Errorf("EvalExpression(%q) = %v, want Undefined", expr, got)
		}
	}
}

func TestEvalExpressionSandboxFallback(t *testing.T) {
	ctx := testContext()

	got, err := EvalExpression("count * 2", ctx)
	if err != nil {
		t.Fatalf("arithmetic expression error: %v", err)
	}
	if got != 6 {
		t.Errorf("count * 2 = %v, want 6", got)
	}

	got, err = EvalExpression(`name == "checkout"`, ctx)
	if err != nil {
		t.Fatalf("comparison expression error: %v", err)
	}
	if got != true {
		t.Errorf("name comparison = %v, want true", got)
	}
}

func TestEvalExpressionErrorsAreValues(t *testing.T) {
	if _, err := EvalExpression("", testContext()); err == nil {
		t.Error("empty expression should return an error value")
	}
	if _, err := EvalExpression("count +* 2", testContext()); err == nil {
		t.Error("malformed expression should return an error value")
	}
}

func TestEvalCondition(t *testing.T) {
	ctx := testContext()

	tests := []struct {
		cond string
		want bool
	}{
		{"active", true},
		{"count > 2", true},
		{"count > 99", false},
		{"missing", false},
		{"nothing", false},
		{"count +* 2", false}, // broken conditions never pause
		{"name", true},
	}
	for _, tt := range tests {
		if got := EvalCondition(tt.cond, ctx); got != tt.want {
			t.Errorf("EvalCondition(%q) = %v, want %v", tt.cond, got, tt.want)
		}
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		val  any
		want bool
	}{
		{nil, false},
		{Undefined, false},
		{false, false},
		{true, true},
		{0, false},
		{1, true},
		{int64(0), false},
		{0.0, false},
		{0.5, true},
		{"", false},
		{"x", true},
		{[]any{}, true},
		{map[string]any{}, true},
	}
	for _, tt := range tests {
		if got := Truthy(tt.val); got != tt.want {
			t.Errorf("Truthy(%#v) = %v, want %v", tt.val, got, tt.want)
		}
	}
}

func TestRenderLogMessage(t *testing.T) {
	ctx := testContext()

	tests := []struct {
		template string
		want     string
	}{
		{"count is {count}", "count is 3"},
		{"hello {user.name}", "hello ada"},
		{"first sku {items[0].sku}", "first sku A-1"},
		{"no tokens here", "no tokens here"},
		{"unknown {missing} stays", "unknown {missing} stays"},
		{"items: {items}", "items: Array(2)"},
		{"{name} x{count}", "checkout x3"},
	}
	for _, tt := range tests {
		if got := RenderLogMessage(tt.template, ctx); got != tt.want {
			t.Errorf("RenderLogMessage(%q) = %q, want %q", tt.template, got, tt.want)
		}
	}
}

func TestHitConditionMet(t *testing.T) {
	tests := []struct {
		cond  string
		count int
		want  bool
	}{
		{"", 1, true},
		{"3", 3, true},
		{"3", 2, false},
		{"= 2", 2, true},
		{"== 2", 3, false},
		{"> 2", 3, true},
		{"> 2", 2, false},
		{">= 2", 2, true},
		{"< 2", 1, true},
		{"<= 2", 3, false},
		{"not a condition", 1, true},
	}
	for _, tt := range tests {
		if got := hitConditionMet(tt.cond, tt.count); got != tt.want {
			t.Errorf("hitConditionMet(%q, %d) = %v, want %v", tt.cond, tt.count, got, tt.want)
		}
	}
}
