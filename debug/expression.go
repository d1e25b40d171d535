package debug

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
)

// pathSegment is one accessor in a property path: either a string key
// (from a dotted segment or a quoted/non-numeric bracket) or an integer
// index (from a numeric bracket).
type pathSegment struct {
	key     string
	index   int
	isIndex bool
}

// parsePath parses expressions of the form ident(.ident | [accessor])*.
// Returns false when the text is not a plain property path, in which case
// the caller falls back to the sandboxed evaluator.
func parsePath(text string) ([]pathSegment, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil, false
	}

	var segs []pathSegment
	i := 0
	readIdent := func() (string, bool) {
		start := i
		for i < len(s) && isIdentChar(s[i], i == start) {
			i++
		}
		if i == start {
			return "", false
		}
		return s[start:i], true
	}

	ident, ok := readIdent()
	if !ok {
		return nil, false
	}
	segs = append(segs, pathSegment{key: ident})

	for i < len(s) {
		switch s[i] {
		case '.':
			i++
			ident, ok := readIdent()
			if !ok {
				return nil, false
			}
			segs = append(segs, pathSegment{key: ident})
		case '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return nil, false
			}
			content := s[i+1 : i+end]
			i += end + 1
			segs = append(segs, bracketSegment(content))
		default:
			return nil, false
		}
	}
	return segs, true
}

func isIdentChar(c byte, first bool) bool {
	if c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
		return true
	}
	return !first && c >= '0' && c <= '9'
}

// bracketSegment interprets bracket content: an integer becomes an array
// index, anything else (quoted or bare) a string key.
func bracketSegment(content string) pathSegment {
	trimmed := strings.TrimSpace(content)
	if n, err := strconv.Atoi(trimmed); err == nil {
		return pathSegment{index: n, isIndex: true}
	}
	if len(trimmed) >= 2 {
		if (trimmed[0] == '\'' && trimmed[len(trimmed)-1] == '\'') ||
			(trimmed[0] == '"' && trimmed[len(trimmed)-1] == '"') {
			trimmed = trimmed[1 : len(trimmed)-1]
		}
	}
	return pathSegment{key: trimmed}
}

// resolvePath walks the context along the parsed segments. Any miss, nil,
// or non-container along the way yields Undefined; traversal never errors.
func resolvePath(segs []pathSegment, context map[string]any) any {
	if len(segs) == 0 {
		return Undefined
	}

	var current any
	first := segs[0]
	if first.isIndex {
		return Undefined
	}
	v, ok := context[first.key]
	if !ok {
		return Undefined
	}
	current = v

	for _, seg := range segs[1:] {
		switch c := current.(type) {
		case []any:
			if !seg.isIndex || seg.index < 0 || seg.index >= len(c) {
				return Undefined
			}
			current = c[seg.index]
		case map[string]any:
			key := seg.key
			if seg.isIndex {
				key = strconv.Itoa(seg.index)
			}
			v, ok := c[key]
			if !ok {
				return Undefined
			}
			current = v
		default:
			return Undefined
		}
	}
	return current
}

// EvalExpression evaluates a watch or condition expression against the
// context. Plain property paths are resolved by direct traversal; anything
// else goes through the expr sandbox with the context keys bound as
// variables. Failures come back as error values, never as panics.
func EvalExpression(text string, context map[string]any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("expression panic: %v", r)
		}
	}()

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, fmt.Errorf("empty expression")
	}
	if segs, ok := parsePath(trimmed); ok {
		return resolvePath(segs, context), nil
	}

	env := context
	if env == nil {
		env = map[string]any{}
	}
	program, err := expr.Compile(trimmed, expr.Env(env), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}
	return expr.Run(program, env)
}

// EvalCondition evaluates a breakpoint condition. Any evaluation failure is
// treated as false, never as a pause.
func EvalCondition(condition string, context map[string]any) bool {
	v, err := EvalExpression(condition, context)
	if err != nil {
		return false
	}
	return Truthy(v)
}

// Truthy reports whether a value counts as true for condition purposes.
func Truthy(val any) bool {
	switch v := val.(type) {
	case nil:
		return false
	case undefinedValue:
		return false
	case bool:
		return v
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case string:
		return v != ""
	default:
		return true
	}
}

var logTokenPattern = regexp.MustCompile(`\{([^{}]+)\}`)

// RenderLogMessage substitutes {key} tokens in a logpoint template with
// context values. Keys may be property paths. Tokens that do not resolve
// are left literally in place.
func RenderLogMessage(template string, context map[string]any) string {
	return logTokenPattern.ReplaceAllStringFunc(template, func(token string) string {
		key := token[1 : len(token)-1]
		segs, ok := parsePath(key)
		if !ok {
			return token
		}
		v := resolvePath(segs, context)
		if _, missing := v.(undefinedValue); missing {
			return token
		}
		return logValueString(v)
	})
}

// logValueString renders a value for log output: strings unquoted,
// containers summarized.
func logValueString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return "null"
	case []any:
		return fmt.Sprintf("Array(%d)", len(val))
	case map[string]any:
		return formatObject(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

var hitConditionPattern = regexp.MustCompile(`^\s*(>=|<=|==|=|>|<)?\s*(\d+)\s*$`)

// hitConditionMet evaluates a hit-condition string ("> 2", ">=3", "5", ...)
// against a hit count. Unrecognized text means no filtering.
func hitConditionMet(condition string, count int) bool {
	if condition == "" {
		return true
	}
	m := hitConditionPattern.FindStringSubmatch(condition)
	if m == nil {
		return true
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return true
	}
	switch m[1] {
	case ">":
		return count > n
	case ">=":
		return count >= n
	case "<":
		return count < n
	case "<=":
		return count <= n
	default:
		return count == n
	}
}
