package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvalCondition(t *testing.T) {
	params := map[string]any{
		"redis_password": "s3cret",
		"enabled":        true,
		"disabled":       false,
		"workers":        4.0,
		"empty":          "",
		"env":            "prod",
	}

	tests := map[string]struct {
		cond string
		exp  bool
	}{
		"A present truthy key is true":                  {cond: "redis_password", exp: true},
		"A present false bool key is false":             {cond: "disabled", exp: false},
		"A present empty string key is false":           {cond: "empty", exp: false},
		"A missing key is false":                        {cond: "missing", exp: false},
		"String equality against a param":               {cond: `params.env == "prod"`, exp: true},
		"String inequality against a param":             {cond: `env != "prod"`, exp: false},
		"Single quoted literals work too":               {cond: `env == 'prod'`, exp: true},
		"Numeric greater than":                          {cond: "workers > 1", exp: true},
		"Numeric less than":                             {cond: "workers < 1", exp: false},
		"Numeric equality with a literal":               {cond: "workers == 4", exp: true},
		"Ordering on non-numeric operands is false":     {cond: `env > "a"`, exp: false},
		"Bool literal comparison":                       {cond: "enabled == true", exp: true},
		"A reference to a missing param is false":       {cond: "params.missing == 1", exp: false},
		"An empty condition is false":                   {cond: "", exp: false},
		"Garbage is false, never an error":              {cond: "!!! not a condition !!!", exp: false},
		"An unsupported operator is false":              {cond: "workers >= 1", exp: false},
		"A dangling operator is false":                  {cond: "workers >", exp: false},
		"Whitespace around the condition is tolerated":  {cond: "  enabled  ", exp: true},
		"Whitespace around the operands is tolerated":   {cond: "  workers  ==  4  ", exp: true},
		"Numeric strings compare numerically with ints": {cond: `workers == "4"`, exp: true},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.exp, evalCondition(test.cond, params))
		})
	}
}
