// Package tags resolves image tag templates against the variables of a push
// or tag event. Templates contain {name} placeholders; rendering substitutes
// every placeholder whose variable is present and leaves the rest verbatim.
// Validate catches references to variables that can never exist, before any
// remote work happens, so configuration typos fail the run immediately
// instead of producing a malformed tag.
package tags

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// placeholderRe matches {name} tokens in a tag template.
var placeholderRe = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Render expands tag templates against the variable map.
// Placeholders whose variable is absent are left intact; Validate is the
// place where unknown names are rejected.
func Render(templates []string, vars map[string]string) []string {
	rendered := make([]string, 0, len(templates))
	for _, tmpl := range templates {
		tag := tmpl
		for name, val := range vars {
			tag = strings.ReplaceAll(tag, "{"+name+"}", val)
		}
		rendered = append(rendered, tag)
	}
	return rendered
}

// Validate scans templates for {name} placeholders and returns an error if
// any referenced name is not in the allowed set. All undeclared names across
// all templates are aggregated into a single error, each reported once.
func Validate(templates []string, allowed map[string]bool) error {
	seen := make(map[string]bool)
	var undeclared []string

	for _, tmpl := range templates {
		for _, m := range placeholderRe.FindAllStringSubmatch(tmpl, -1) {
			name := m[1]
			if allowed[name] || seen[name] {
				continue
			}
			seen[name] = true
			undeclared = append(undeclared, name)
		}
	}

	if len(undeclared) == 0 {
		return nil
	}

	names := make([]string, 0, len(allowed))
	for name := range allowed {
		names = append(names, name)
	}
	sort.Strings(names)

	return fmt.Errorf("tag templates reference undeclared variables: %s (available: %s)",
		strings.Join(undeclared, ", "), strings.Join(names, ", "))
}
