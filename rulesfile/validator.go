package rulesfile

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/weftsh/weft/pattern"
)

// ValidationSeverity indicates how critical a validation issue is.
type ValidationSeverity int

const (
	// SeverityError indicates a rule that will definitely not work.
	SeverityError ValidationSeverity = iota
	// SeverityWarning indicates a rule that may not behave as intended.
	SeverityWarning
)

// ValidationError represents one problem detected in a rules file.
type ValidationError struct {
	Rule        string             // Rule name where the issue was found (empty for file-level issues)
	Field       string             // Field where the issue was found
	Description string             // Human-readable description of the issue
	Suggestion  string             // Actionable suggestion to fix the issue
	Severity    ValidationSeverity // How critical this issue is
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	location := ""
	if e.Rule != "" {
		location = fmt.Sprintf(" (rule: %s", e.Rule)
		if e.Field != "" {
			location += fmt.Sprintf(", field: %s", e.Field)
		}
		location += ")"
	} else if e.Field != "" {
		location = fmt.Sprintf(" (field: %s)", e.Field)
	}

	severityPrefix := ""
	if e.Severity == SeverityWarning {
		severityPrefix = "[warning] "
	}

	msg := fmt.Sprintf("%sinvalid rule%s: %s", severityPrefix, location, e.Description)
	if e.Suggestion != "" {
		msg += ". " + e.Suggestion
	}
	return msg
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []*ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d problems detected:\n", len(e)))
	for _, err := range e {
		sb.WriteString("  - ")
		sb.WriteString(err.Error())
		sb.WriteString("\n")
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// HasErrors returns true if any validation errors have SeverityError.
func (e ValidationErrors) HasErrors() bool {
	for _, err := range e {
		if err.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns only the validation errors with SeverityError.
func (e ValidationErrors) Errors() ValidationErrors {
	var errors ValidationErrors
	for _, err := range e {
		if err.Severity == SeverityError {
			errors = append(errors, err)
		}
	}
	return errors
}

// Warnings returns only the validation errors with SeverityWarning.
func (e ValidationErrors) Warnings() ValidationErrors {
	var warnings ValidationErrors
	for _, err := range e {
		if err.Severity == SeverityWarning {
			warnings = append(warnings, err)
		}
	}
	return warnings
}

// ruleNamePattern matches acceptable rule names. Names double as CLI
// targets, so they must not look like file paths.
var ruleNamePattern = regexp.MustCompile(`^[A-Za-z_][-A-Za-z0-9_]*$`)

// Validate checks a parsed rules file for problems. Returns nil if the
// file is usable, otherwise returns ValidationErrors which may contain
// both errors and warnings. Use HasErrors to check for blocking issues.
func Validate(f *File) ValidationErrors {
	var errs ValidationErrors

	seen := make(map[string]bool)
	for i, spec := range f.Rules {
		if spec == nil {
			continue
		}
		switch {
		case spec.Name == "":
			errs = append(errs, &ValidationError{
				Field:       "name",
				Description: fmt.Sprintf("rule %d has no name", i+1),
				Suggestion:  "Give every rule a unique name",
				Severity:    SeverityError,
			})
		case !ruleNamePattern.MatchString(spec.Name):
			errs = append(errs, &ValidationError{
				Rule:        spec.Name,
				Field:       "name",
				Description: fmt.Sprintf("%q is not a valid rule name", spec.Name),
				Suggestion:  "Use letters, digits, underscores and dashes, starting with a letter",
				Severity:    SeverityError,
			})
		case seen[spec.Name]:
			errs = append(errs, &ValidationError{
				Rule:        spec.Name,
				Field:       "name",
				Description: "duplicate rule name",
				Suggestion:  "Rename one of the rules",
				Severity:    SeverityError,
			})
		default:
			seen[spec.Name] = true
		}

		errs = append(errs, validateRule(spec)...)
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// validateRule checks a single rule spec.
func validateRule(spec *RuleSpec) ValidationErrors {
	var errs ValidationErrors

	if spec.Shell != "" && spec.Fetch != "" {
		errs = append(errs, &ValidationError{
			Rule:        spec.Name,
			Field:       "shell",
			Description: "a rule cannot both run a shell command and fetch a URL",
			Suggestion:  "Split it into two rules",
			Severity:    SeverityError,
		})
	}

	outputs, outErr := stringOrList(spec.Output)
	if outErr != nil {
		errs = append(errs, &ValidationError{
			Rule:        spec.Name,
			Field:       "output",
			Description: outErr.Error(),
			Severity:    SeverityError,
		})
	}
	errs = append(errs, validateOutputs(spec, outputs)...)
	errs = append(errs, validateInputs(spec, outputWildcards(outputs))...)

	if spec.Fetch != "" {
		errs = append(errs, validateFetch(spec, outputs)...)
	}

	return errs
}

// validateOutputs checks output templates for pattern problems.
func validateOutputs(spec *RuleSpec, outputs []string) ValidationErrors {
	var errs ValidationErrors
	for _, out := range outputs {
		if _, err := pattern.Compile(out); err != nil {
			errs = append(errs, &ValidationError{
				Rule:        spec.Name,
				Field:       "output",
				Description: err.Error(),
				Severity:    SeverityError,
			})
		}
	}
	return errs
}

// validateInputs checks input items: literal templates must compile and
// may only use wildcards the outputs bind; glob patterns must be valid.
func validateInputs(spec *RuleSpec, bound map[string]bool) ValidationErrors {
	entries, err := inputList(spec.Input)
	if err != nil {
		return ValidationErrors{&ValidationError{
			Rule:        spec.Name,
			Field:       "input",
			Description: err.Error(),
			Severity:    SeverityError,
		}}
	}

	var errs ValidationErrors
	for _, entry := range entries {
		if entry.isGlob {
			if !doublestar.ValidatePattern(entry.text) {
				errs = append(errs, &ValidationError{
					Rule:        spec.Name,
					Field:       "input",
					Description: fmt.Sprintf("invalid glob pattern %q", entry.text),
					Severity:    SeverityError,
				})
			}
			continue
		}

		p, err := pattern.Compile(entry.text)
		if err != nil {
			errs = append(errs, &ValidationError{
				Rule:        spec.Name,
				Field:       "input",
				Description: err.Error(),
				Severity:    SeverityError,
			})
			continue
		}
		for _, name := range p.Names() {
			if !bound[name] {
				errs = append(errs, &ValidationError{
					Rule:        spec.Name,
					Field:       "input",
					Description: fmt.Sprintf("input wildcard {%s} is not bound by any output", name),
					Suggestion:  "Every wildcard in an input must also appear in an output",
					Severity:    SeverityError,
				})
			}
		}
	}
	return errs
}

// validateFetch checks the constraints specific to fetch rules.
func validateFetch(spec *RuleSpec, outputs []string) ValidationErrors {
	var errs ValidationErrors

	if len(outputs) != 1 {
		errs = append(errs, &ValidationError{
			Rule:        spec.Name,
			Field:       "output",
			Description: fmt.Sprintf("a fetch rule needs exactly one output, got %d", len(outputs)),
			Severity:    SeverityError,
		})
	} else if p, err := pattern.Compile(outputs[0]); err == nil && len(p.Names()) > 0 {
		errs = append(errs, &ValidationError{
			Rule:        spec.Name,
			Field:       "output",
			Description: "a fetch output cannot contain wildcards",
			Suggestion:  "Fetch each file to a literal output path",
			Severity:    SeverityError,
		})
	}

	if !strings.HasPrefix(spec.Fetch, "http://") && !strings.HasPrefix(spec.Fetch, "https://") {
		errs = append(errs, &ValidationError{
			Rule:        spec.Name,
			Field:       "fetch",
			Description: fmt.Sprintf("%q does not look like an HTTP(S) URL", spec.Fetch),
			Suggestion:  "Only http:// and https:// sources are supported",
			Severity:    SeverityWarning,
		})
	}

	return errs
}

// outputWildcards collects the wildcard names the outputs bind.
func outputWildcards(outputs []string) map[string]bool {
	bound := make(map[string]bool)
	for _, out := range outputs {
		p, err := pattern.Compile(out)
		if err != nil {
			continue
		}
		for _, name := range p.Names() {
			bound[name] = true
		}
	}
	return bound
}
