package util

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/oliveagle/jsonpath"
)

var tokenRe = regexp.MustCompile(`\{\{(.*?)\}\}`)

// Resolve substitutes {{key}} tokens in a template from the context map.
// Keys starting with $ are treated as jsonpath expressions over the whole
// context. Tokens that resolve to nothing are left verbatim.
func Resolve(template string, context map[string]any) string {
	tokens := tokenRe.FindAllString(template, -1)
	if len(tokens) == 0 {
		return template
	}
	out := template
	for _, token := range tokens {
		key := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(token, "{{"), "}}"))
		value, ok := lookup(context, key)
		if !ok {
			continue
		}
		out = strings.ReplaceAll(out, token, fmt.Sprintf("%v", value))
	}
	return out
}

func lookup(context map[string]any, key string) (any, bool) {
	if context == nil {
		return nil, false
	}
	if strings.HasPrefix(key, "$") {
		value, err := jsonpath.JsonPathLookup(context, key)
		if err != nil {
			return nil, false
		}
		return value, true
	}
	value, ok := context[key]
	return value, ok
}

// ResolveParams walks a params map and substitutes tokens in every string
// value, recursing into nested maps and lists. Non-string values pass
// through untouched.
func ResolveParams(params map[string]any, context map[string]any) map[string]any {
	output := make(map[string]any, len(params))
	for k, v := range params {
		switch v := v.(type) {
		case map[string]any:
			output[k] = ResolveParams(v, context)
		case []any:
			output[k] = resolveList(v, context)
		case string:
			output[k] = Resolve(v, context)
		default:
			output[k] = v
		}
	}
	return output
}

func resolveList(list []any, context map[string]any) []any {
	output := make([]any, 0, len(list))
	for _, v := range list {
		switch v := v.(type) {
		case map[string]any:
			output = append(output, ResolveParams(v, context))
		case []any:
			output = append(output, resolveList(v, context))
		case string:
			output = append(output, Resolve(v, context))
		default:
			output = append(output, v)
		}
	}
	return output
}
