// Package rulesfile loads weft.yaml files and turns them into executable
// workflows.
package rulesfile

import "fmt"

// DefaultFileName is the rules file weft looks for when --file is not given.
const DefaultFileName = "weft.yaml"

// File is a parsed rules file.
type File struct {
	Workdir string      `yaml:"workdir,omitempty"`
	Rules   []*RuleSpec `yaml:"rules"`
}

// RuleSpec is one rule entry as written in the file. Input and Output hold
// a single string or a list of strings; input lists may also contain
// {glob: pattern} items that expand against the working directory at build
// time. At most one of Shell and Fetch may be set.
type RuleSpec struct {
	Name    string `yaml:"name"`
	Input   any    `yaml:"input,omitempty"`
	Output  any    `yaml:"output,omitempty"`
	Message string `yaml:"message,omitempty"`
	Shell   string `yaml:"shell,omitempty"`
	Fetch   string `yaml:"fetch,omitempty"`
}

// inputEntry is one normalized input item.
type inputEntry struct {
	text   string
	isGlob bool
}

// stringOrList coerces a scalar-or-sequence YAML value into strings.
func stringOrList(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{val}, nil
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected a string, got %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a string or list of strings, got %T", v)
	}
}

// inputList coerces the input field, additionally allowing glob items.
func inputList(v any) ([]inputEntry, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []inputEntry{{text: val}}, nil
	case []any:
		out := make([]inputEntry, 0, len(val))
		for _, item := range val {
			switch entry := item.(type) {
			case string:
				out = append(out, inputEntry{text: entry})
			case map[string]any:
				g, ok := entry["glob"].(string)
				if !ok || len(entry) != 1 {
					return nil, fmt.Errorf("expected {glob: pattern}, got %v", entry)
				}
				out = append(out, inputEntry{text: g, isGlob: true})
			default:
				return nil, fmt.Errorf("expected a string or {glob: pattern}, got %T", item)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a string or list, got %T", v)
	}
}
