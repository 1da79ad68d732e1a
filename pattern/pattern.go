// Package pattern compiles path templates containing named wildcards of the
// form {name} into matchers and formatters. A wildcard matches any non-empty
// run of characters, including path separators. A literal dot in a template
// matches only a dot.
package pattern

import (
	"fmt"
	"regexp"
	"strings"
)

// placeholderPattern finds {name} placeholders. Braces that do not enclose a
// well-formed name are left as literal text.
var placeholderPattern = regexp.MustCompile(`\{([^{}]*)\}`)

// identPattern matches valid wildcard names.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// MalformedError reports a template that cannot be compiled.
type MalformedError struct {
	Template string
	Reason   string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed pattern %q: %s", e.Template, e.Reason)
}

// UnboundError reports a template placeholder with no value in the binding.
type UnboundError struct {
	Template string
	Name     string
}

func (e *UnboundError) Error() string {
	return fmt.Sprintf("pattern %q references unbound wildcard {%s}", e.Template, e.Name)
}

// Pattern is a compiled path template.
type Pattern struct {
	raw   string
	re    *regexp.Regexp
	names []string
}

// Compile parses a path template. Placeholder names must be valid
// identifiers and unique within the template.
func Compile(template string) (*Pattern, error) {
	var (
		names []string
		seen  = make(map[string]bool)
		expr  strings.Builder
		last  int
	)

	expr.WriteString("^")
	for _, loc := range placeholderPattern.FindAllStringSubmatchIndex(template, -1) {
		expr.WriteString(escapeLiteral(template[last:loc[0]]))
		last = loc[1]

		name := template[loc[2]:loc[3]]
		if name == "" {
			return nil, &MalformedError{Template: template, Reason: "empty wildcard name"}
		}
		if !identPattern.MatchString(name) {
			return nil, &MalformedError{Template: template, Reason: fmt.Sprintf("invalid wildcard name %q", name)}
		}
		if seen[name] {
			return nil, &MalformedError{Template: template, Reason: fmt.Sprintf("duplicate wildcard {%s}", name)}
		}
		seen[name] = true
		names = append(names, name)

		fmt.Fprintf(&expr, "(?P<%s>.+)", name)
	}
	expr.WriteString(escapeLiteral(template[last:]))
	expr.WriteString("$")

	re, err := regexp.Compile(expr.String())
	if err != nil {
		return nil, &MalformedError{Template: template, Reason: err.Error()}
	}

	return &Pattern{raw: template, re: re, names: names}, nil
}

// escapeLiteral makes a literal dot match only a dot. Other characters pass
// through to the matcher unchanged.
func escapeLiteral(s string) string {
	return strings.ReplaceAll(s, ".", `\.`)
}

// String returns the original template.
func (p *Pattern) String() string { return p.raw }

// Names returns the wildcard names in order of first appearance.
func (p *Pattern) Names() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

// Match matches a concrete path against the whole template and returns the
// wildcard binding. The second result is false when the path does not match.
func (p *Pattern) Match(path string) (map[string]string, bool) {
	m := p.re.FindStringSubmatch(path)
	if m == nil {
		return nil, false
	}
	binding := make(map[string]string, len(p.names))
	for i, name := range p.re.SubexpNames() {
		if name != "" {
			binding[name] = m[i]
		}
	}
	return binding, true
}

// Format substitutes the binding into the template, producing a concrete
// path. Every placeholder the template references must be bound.
func (p *Pattern) Format(binding map[string]string) (string, error) {
	return substitute(p.raw, binding)
}

// Substitute fills {name} placeholders in an arbitrary template from the
// given values. Unlike Format it performs no compilation, so the template
// may contain characters that are not valid in a matcher; braces that do not
// enclose a valid identifier are kept as literal text. Referencing an
// unbound name fails with UnboundError.
func Substitute(template string, values map[string]string) (string, error) {
	return substitute(template, values)
}

func substitute(template string, values map[string]string) (string, error) {
	var (
		out  strings.Builder
		last int
	)
	for _, loc := range placeholderPattern.FindAllStringSubmatchIndex(template, -1) {
		out.WriteString(template[last:loc[0]])
		last = loc[1]

		name := template[loc[2]:loc[3]]
		if !identPattern.MatchString(name) {
			// Not a placeholder, keep the braces as written.
			out.WriteString(template[loc[0]:loc[1]])
			continue
		}
		value, ok := values[name]
		if !ok {
			return "", &UnboundError{Template: template, Name: name}
		}
		out.WriteString(value)
	}
	out.WriteString(template[last:])
	return out.String(), nil
}
