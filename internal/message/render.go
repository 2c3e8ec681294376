// Package message renders the guest notification texts.
package message

import (
	"fmt"
	"sort"
	"strings"
)

// Render substitutes [TOKEN] placeholders in tmpl with values from fields.
//
// Rendering is a pure function of its inputs: the template is scanned once,
// left to right, and substituted values are never re-scanned, so a field
// value that happens to look like a token stays literal text. Every
// placeholder must resolve: a token with no matching field is an error,
// never leaked literally into a guest email.
func Render(tmpl string, fields map[string]string) (string, error) {
	var b strings.Builder
	missing := map[string]bool{}

	for i := 0; i < len(tmpl); i++ {
		if tmpl[i] != '[' {
			b.WriteByte(tmpl[i])
			continue
		}
		j := i + 1
		for j < len(tmpl) && isTokenChar(tmpl[j]) {
			j++
		}
		if j == i+1 || j == len(tmpl) || tmpl[j] != ']' {
			// Not a placeholder, e.g. "[3pm]".
			b.WriteByte(tmpl[i])
			continue
		}
		key := tmpl[i+1 : j]
		val, ok := fields[key]
		if !ok {
			missing["["+key+"]"] = true
		}
		b.WriteString(val)
		i = j
	}

	if len(missing) > 0 {
		toks := make([]string, 0, len(missing))
		for tok := range missing {
			toks = append(toks, tok)
		}
		sort.Strings(toks)
		return "", fmt.Errorf("message: unresolved tokens: %s", strings.Join(toks, ", "))
	}
	return b.String(), nil
}

func isTokenChar(c byte) bool {
	return (c >= 'A' && c <= 'Z') || c == '_'
}
