package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// MaxTokenSize bounds the size of a serialized token accepted from any
// string channel (clipboard backend, HTTP body, file).
const MaxTokenSize = 4 << 20

// ValidateToken performs cheap structural checks on a raw token before it
// is handed to the JSON decoder. It does not validate the payload shape.
func ValidateToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return New(ErrCodeInvalidInput, "token cannot be empty")
	}
	if len(token) > MaxTokenSize {
		return New(ErrCodeInvalidInput, "token too large (max %d bytes)", MaxTokenSize)
	}
	if strings.ContainsRune(token, '\x00') {
		return New(ErrCodeInvalidInput, "token contains null bytes")
	}
	return nil
}

// shareCodeRegex matches the hex share codes produced by clipboard backends.
var shareCodeRegex = regexp.MustCompile(`^[0-9a-f]{12}$`)

// ValidateShareCode validates a clipboard share code.
func ValidateShareCode(code string) error {
	if code == "" {
		return New(ErrCodeInvalidCode, "share code cannot be empty")
	}
	if !shareCodeRegex.MatchString(code) {
		return New(ErrCodeInvalidCode, "invalid share code: %q", code)
	}
	return nil
}

// ValidatePath validates an output file path for safety.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No path traversal sequences (..)
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

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	return nil
}
