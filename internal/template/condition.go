package template

import (
	"regexp"
	"strconv"
	"strings"
)

// The condition language is intentionally small: direct key presence or a
// single binary comparison. Operands are parsed into a closed tagged set
// before comparing. Anything unknown or unparseable evaluates to false, never
// to true and never to an error.

var bareKeyRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type operandKind int

const (
	operandParamRef operandKind = iota
	operandString
	operandNumber
	operandBool
)

type operand struct {
	kind operandKind
	key  string
	str  string
	num  float64
	b    bool
}

// comparison operators, two-char ones first so "==" is not split as "=","=".
var conditionOps = []string{"==", "!=", ">", "<"}

func evalCondition(cond string, params map[string]any) bool {
	cond = strings.TrimSpace(cond)
	if cond == "" {
		return false
	}

	// Direct key presence: truthiness of the value.
	if bareKeyRegexp.MatchString(cond) {
		v, ok := params[cond]
		return ok && truthy(v)
	}

	for _, op := range conditionOps {
		left, right, found := strings.Cut(cond, op)
		if !found {
			continue
		}

		lv, ok := resolveOperand(strings.TrimSpace(left), params)
		if !ok {
			return false
		}
		rv, ok := resolveOperand(strings.TrimSpace(right), params)
		if !ok {
			return false
		}

		return compare(lv, rv, op)
	}

	return false
}

func parseOperand(s string) (operand, bool) {
	switch {
	case strings.HasPrefix(s, "params."):
		key := strings.TrimPrefix(s, "params.")
		if !bareKeyRegexp.MatchString(key) {
			return operand{}, false
		}
		return operand{kind: operandParamRef, key: key}, true

	case len(s) >= 2 && (s[0] == '"' && s[len(s)-1] == '"' || s[0] == '\'' && s[len(s)-1] == '\''):
		return operand{kind: operandString, str: s[1 : len(s)-1]}, true

	case s == "true" || s == "false":
		return operand{kind: operandBool, b: s == "true"}, true
	}

	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return operand{kind: operandNumber, num: n}, true
	}

	if bareKeyRegexp.MatchString(s) {
		return operand{kind: operandParamRef, key: s}, true
	}

	return operand{}, false
}

// resolveOperand parses the operand and resolves param references against the
// parameter set. A reference to a missing parameter makes the whole condition
// unresolvable (false).
func resolveOperand(s string, params map[string]any) (any, bool) {
	op, ok := parseOperand(s)
	if !ok {
		return nil, false
	}

	switch op.kind {
	case operandParamRef:
		v, ok := params[op.key]
		return v, ok
	case operandString:
		return op.str, true
	case operandNumber:
		return op.num, true
	case operandBool:
		return op.b, true
	}

	return nil, false
}

func compare(left, right any, op string) bool {
	ln, lNum := toNumber(left)
	rn, rNum := toNumber(right)

	switch op {
	case ">":
		return lNum && rNum && ln > rn
	case "<":
		return lNum && rNum && ln < rn
	case "==", "!=":
		var eq bool
		if lNum && rNum {
			eq = ln == rn
		} else {
			eq = scalarString(left) == scalarString(right)
		}
		if op == "!=" {
			return !eq
		}
		return eq
	}

	return false
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}

	return 0, false
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t != "" && t != "false" && t != "0"
	case nil:
		return false
	}

	if n, ok := toNumber(v); ok {
		return n != 0
	}

	return true
}
