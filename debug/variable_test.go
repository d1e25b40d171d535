package debug

import (
	"strings"
	"testing"
	"time"
)

func TestTypeOf(t *testing.T) {
	tests := []struct {
		val  any
		want VariableType
	}{
		{nil, TypeNull},
		{Undefined, TypeUndefined},
		{"x", TypeString},
		{true, TypeBoolean},
		{42, TypeNumber},
		{int64(42), TypeNumber},
		{4.2, TypeNumber},
		{time.Now(), TypeDate},
		{[]any{1}, TypeArray},
		{map[string]any{"a": 1}, TypeObject},
		{func() {}, TypeFunction},
		{struct{ X int }{1}, TypeObject},
	}
	for _, tt := range tests {
		if got := TypeOf(tt.val); got != tt.want {
			t.Errorf("TypeOf(%T) = %q, want %q", tt.val, got, tt.want)
		}
	}
}

func TestFormatValue(t *testing.T) {
	if got := FormatValue("hi", 0); got != `"hi"` {
		t.Errorf("FormatValue string = %q", got)
	}
	if got := FormatValue(nil, 0); got != "null" {
		t.Errorf("FormatValue nil = %q", got)
	}
	if got := FormatValue([]any{1, 2, 3}, 0); got != "Array(3)" {
		t.Errorf("FormatValue array = %q", got)
	}
	if got := FormatValue(true, 0); got != "true" {
		t.Errorf("FormatValue bool = %q", got)
	}
	if got := FormatValue(Undefined, 0); got != "undefined" {
		t.Errorf("FormatValue undefined = %q", got)
	}
}

func TestFormatValueTruncatesLongStrings(t *testing.T) {
	long := strings.Repeat("a", 150)
	got := FormatValue(long, 100)
	if !strings.HasSuffix(got, `..."`) {
		t.Errorf("long string not truncated with ellipsis: %q", got)
	}
	if len(got) >= len(long) {
		t.Errorf("truncated rendering is not shorter than input")
	}
}

func TestFormatValueObjectSummary(t *testing.T) {
	obj := map[string]any{"d": 1, "b": 2, "a": 3, "c": 4}
	got := FormatValue(obj, 0)
	if got != "{a, b, c, ...}" {
		t.Errorf("FormatValue object = %q, want {a, b, c, ...}", got)
	}
	if got := FormatValue(map[string]any{}, 0); got != "{}" {
		t.Errorf("FormatValue empty object = %q", got)
	}
}

func TestIsExpandable(t *testing.T) {
	if IsExpandable([]any{}) {
		t.Error("empty array should not be expandable")
	}
	if IsExpandable(map[string]any{}) {
		t.Error("empty object should not be expandable")
	}
	if !IsExpandable([]any{1}) {
		t.Error("non-empty array should be expandable")
	}
	if !IsExpandable(map[string]any{"a": 1}) {
		t.Error("non-empty object should be expandable")
	}
	if IsExpandable("not a container") {
		t.Error("scalar should not be expandable")
	}
}

func TestChildrenOfArray(t *testing.T) {
	v := NewVariable("tags", []any{"admin", "beta"}, "user.tags")
	children := Children(v)
	if len(children) != 2 {
		t.Fatalf("got %d children, want 2", len(children))
	}
	if children[0].Name != "0" || children[0].Path != "user.tags[0]" {
		t.Errorf("first child = %q at %q", children[0].Name, children[0].Path)
	}
	if children[1].Value != "beta" {
		t.Errorf("second child value = %v", children[1].Value)
	}
}

func TestChildrenOfObjectSorted(t *testing.T) {
	v := NewVariable("user", map[string]any{"name": "ada", "age": 36}, "user")
	children := Children(v)
	if len(children) != 2 {
		t.Fatalf("got %d children, want 2", len(children))
	}
	if children[0].Name != "age" || children[1].Name != "name" {
		t.Errorf("children not sorted: %q, %q", children[0].Name, children[1].Name)
	}
	if children[1].Path != "user.name" {
		t.Errorf("child path = %q, want user.name", children[1].Path)
	}
}

func TestChildrenOfScalarIsNil(t *testing.T) {
	if got := Children(NewVariable("n", 42, "n")); got != nil {
		t.Errorf("scalar children = %v, want nil", got)
	}
}

func TestBuildScopes(t *testing.T) {
	scopes := BuildScopes(map[string]any{"b": 1, "a": map[string]any{"k": 2}})
	if len(scopes) != 1 || scopes[0].Name != "Context" {
		t.Fatalf("unexpected scopes: %+v", scopes)
	}
	vars := scopes[0].Variables
	if len(vars) != 2 || vars[0].Name != "a" || vars[1].Name != "b" {
		t.Fatalf("variables not sorted by key: %+v", vars)
	}
	if !vars[0].Expandable {
		t.Error("object variable should be expandable")
	}
	if vars[1].Expandable {
		t.Error("scalar variable should not be expandable")
	}
}
