// Package expr evaluates step condition expressions inside an embedded
// ECMAScript VM. Context values are bound as data on a VM object, never
// substituted into the expression text, so a context value can not become
// executable code.
package expr

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/dop251/goja"
)

var tokenRe = regexp.MustCompile(`\{\{(.*?)\}\}`)

// Eval runs a condition against the context and reports the boolean result.
// {{key}} tokens are compiled to indexed lookups on the bound context
// object; a token for a missing key evaluates to undefined.
func Eval(condition string, context map[string]any) (bool, error) {
	if len(condition) == 0 {
		return true, nil
	}
	compiled := rewriteTokens(condition)
	vm := goja.New()
	if context == nil {
		context = map[string]any{}
	}
	if err := vm.Set("ctx", context); err != nil {
		return false, fmt.Errorf("error binding condition context %w", err)
	}
	val, err := vm.RunString(compiled)
	if err != nil {
		return false, fmt.Errorf("error evaluating condition %q %w", condition, err)
	}
	return val.ToBoolean(), nil
}

func rewriteTokens(condition string) string {
	return tokenRe.ReplaceAllStringFunc(condition, func(token string) string {
		key := strings.TrimSpace(tokenRe.FindStringSubmatch(token)[1])
		quoted, err := json.Marshal(key)
		if err != nil {
			return token
		}
		return fmt.Sprintf("ctx[%s]", quoted)
	})
}
