package prompt

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var ErrMissingVariables = errors.New("missing template variables")

var placeholder = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Render replaces {{name}} placeholders with values from vars. Every
// placeholder must have a value.
func Render(tmpl string, vars map[string]string) (string, error) {
	if missing := missingVars(tmpl, vars); len(missing) > 0 {
		return "", fmt.Errorf("%w: %s", ErrMissingVariables, strings.Join(missing, ", "))
	}

	return placeholder.ReplaceAllStringFunc(tmpl, func(match string) string {
		return vars[match[2:len(match)-2]]
	}), nil
}

// ExtractVariables lists placeholder names in order of first appearance.
func ExtractVariables(tmpl string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range placeholder.FindAllStringSubmatch(tmpl, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

func missingVars(tmpl string, vars map[string]string) []string {
	var missing []string
	for _, name := range ExtractVariables(tmpl) {
		if _, ok := vars[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
