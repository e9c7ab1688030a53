package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateDatasetName validates a dataset folder name.
// Dataset names are used as directory and output file names, so they must be
// a single path element:
//   - No empty names
//   - No control characters or null bytes
//   - No path separators or traversal sequences
//   - Maximum length of 128 characters
func ValidateDatasetName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "dataset name cannot be empty")
	}

	if len(name) > 128 {
		return New(ErrCodeInvalidInput, "dataset name too long (max 128 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "dataset name contains invalid control characters")
		}
	}

	if name == "." || strings.Contains(name, "..") || strings.ContainsAny(name, "/\\") {
		return New(ErrCodeInvalidInput, "dataset name must be a single path element: %q", name)
	}

	return nil
}

// ValidatePath validates a relative file path for safety.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}

// identifierRegex matches unquoted SQL identifiers accepted as schema names.
var identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

// ValidateIdentifier validates a database schema name passed to a live key source.
// Names are bound as query parameters, but rejecting odd input early gives a
// clearer message than an empty introspection result.
func ValidateIdentifier(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "schema name cannot be empty")
	}
	if len(name) > 63 {
		return New(ErrCodeInvalidInput, "schema name too long (max 63 characters)")
	}
	if !identifierRegex.MatchString(name) {
		return New(ErrCodeInvalidInput, "invalid schema name: %q", name)
	}
	return nil
}
