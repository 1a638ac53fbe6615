package errors

import (
	"strings"
	"unicode"
)

// ValidatePackageName validates a package name for safety and correctness.
// Package names end up in backend command lines and cache keys, so names
// that could be used for path traversal or injection are rejected:
//   - No empty names
//   - No control characters or null bytes
//   - No path traversal sequences (.., //, backslash)
//   - No leading dash (would be read as a flag by package managers)
//   - Maximum length of 256 characters
func ValidatePackageName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidPackage, "package name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidPackage, "package name too long (max 256 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPackage, "package name contains invalid control characters")
		}
	}

	if strings.HasPrefix(name, "-") {
		return New(ErrCodeInvalidPackage, "package name cannot start with '-'")
	}

	dangerousPatterns := []string{
		"..",   // Parent directory
		"//",   // Double slash
		"\x00", // Null byte
		"\\",   // Backslash (Windows path)
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidPackage, "package name contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// ValidateSource validates a repository source, which is either an http(s)
// URL or a local file path.
func ValidateSource(src string) error {
	if src == "" {
		return New(ErrCodeInvalidInput, "repository source cannot be empty")
	}
	if strings.Contains(src, "://") && !IsHTTP(src) {
		return New(ErrCodeInvalidInput, "repository URL must use http or https scheme")
	}
	for _, r := range src {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "repository source contains invalid characters")
		}
	}
	return nil
}

// IsHTTP reports whether src is an http or https URL.
func IsHTTP(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}
