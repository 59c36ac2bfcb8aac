package engine

import (
	"regexp"
	"strings"
)

var templateToken = regexp.MustCompile(`\{\{([^{}]*)\}\}`)

// Interpolate replaces every {{path}} token in the template with the string
// form of the dotted-path lookup in the context. Whitespace around the path
// inside the braces is ignored. Tokens whose path resolves to Undefined are
// left verbatim so an unresolved placeholder stays visible to the user
// instead of collapsing to a silent blank. Inputs without tokens are
// returned unchanged.
func Interpolate(template string, ectx Context) string {
	if !strings.Contains(template, "{{") {
		return template
	}

	return templateToken.ReplaceAllStringFunc(template, func(token string) string {
		path := strings.TrimSpace(token[2 : len(token)-2])
		value := ectx.Lookup(path)
		if value.IsUndefined() {
			return token
		}
		return value.String()
	})
}
