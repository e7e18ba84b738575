package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	context := map[string]any{
		"patient_name": "Lina",
		"age":          34,
		"appointment": map[string]any{
			"date": "2026-09-02",
		},
	}
	for scenario, tc := range map[string]struct {
		template string
		expected string
	}{
		"no tokens":          {"hello world", "hello world"},
		"simple key":         {"Hello {{patient_name}}", "Hello Lina"},
		"numeric value":      {"age: {{age}}", "age: 34"},
		"repeated token":     {"{{patient_name}} {{patient_name}}", "Lina Lina"},
		"unresolved kept":    {"Hello {{missing}}", "Hello {{missing}}"},
		"jsonpath key":       {"on {{$.appointment.date}}", "on 2026-09-02"},
		"jsonpath no match":  {"on {{$.appointment.time}}", "on {{$.appointment.time}}"},
		"whitespace trimmed": {"Hello {{ patient_name }}", "Hello Lina"},
	} {
		t.Run(scenario, func(t *testing.T) {
			require.Equal(t, tc.expected, Resolve(tc.template, context))
		})
	}
}

func TestResolveNilContext(t *testing.T) {
	require.Equal(t, "Hello {{name}}", Resolve("Hello {{name}}", nil))
}

func TestResolveParams(t *testing.T) {
	context := map[string]any{"name": "Lina", "id": "p-1"}
	params := map[string]any{
		"title": "Reminder for {{name}}",
		"count": 3,
		"nested": map[string]any{
			"patient_id": "{{id}}",
		},
		"tags": []any{"{{name}}", 7},
	}
	resolved := ResolveParams(params, context)
	require.Equal(t, "Reminder for Lina", resolved["title"])
	require.Equal(t, 3, resolved["count"])
	require.Equal(t, map[string]any{"patient_id": "p-1"}, resolved["nested"])
	require.Equal(t, []any{"Lina", 7}, resolved["tags"])
}
