package rulesfile

import (
	"bytes"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

const (
	// maxFileSizeBytes is the maximum allowed size for a rules file (1MB).
	// This prevents resource exhaustion from maliciously large files.
	maxFileSizeBytes = 1 * 1024 * 1024
)

// validateContent checks for potentially malicious or malformed content
// before the YAML parser sees it.
func validateContent(data []byte) error {
	if len(data) > maxFileSizeBytes {
		return fmt.Errorf("rules file exceeds maximum size of %d bytes", maxFileSizeBytes)
	}

	// Null bytes indicate binary content disguised as YAML
	if bytes.Contains(data, []byte{0x00}) {
		return fmt.Errorf("rules file contains null bytes (binary content not allowed)")
	}

	// Check for excessive control characters (excluding newline, carriage return, tab)
	controlCount := 0
	for _, b := range data {
		if b < 32 && b != '\n' && b != '\r' && b != '\t' {
			controlCount++
		}
	}
	if controlCount > 10 {
		return fmt.Errorf("rules file contains excessive control characters (%d found)", controlCount)
	}

	return nil
}

// ParseFile reads and parses a rules file.
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // the user names their own rules file
	if err != nil {
		return nil, fmt.Errorf("reading rules file: %w", err)
	}
	return Parse(data)
}

// Parse parses rules file content.
func Parse(data []byte) (*File, error) {
	if err := validateContent(data); err != nil {
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing rules YAML: %w", err)
	}
	return &f, nil
}
