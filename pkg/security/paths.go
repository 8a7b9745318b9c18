// Copyright 2024 O-RAN Intent MANO Project
// SPDX-License-Identifier: Apache-2.0

package security

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

const maxIdentifierLength = 128

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// PolicyFileExtensions are the extensions accepted for flight-plan files
var PolicyFileExtensions = []string{".json", ".yaml", ".yml"}

// ValidateIdentifier checks that an id (for example a UAV id) is safe to use
// as a file name or Kubernetes object name suffix.
func ValidateIdentifier(id string) error {
	if id == "" {
		return fmt.Errorf("identifier cannot be empty")
	}
	if len(id) > maxIdentifierLength {
		return fmt.Errorf("identifier too long: %d characters (max: %d)", len(id), maxIdentifierLength)
	}
	if strings.Contains(id, "..") {
		return fmt.Errorf("identifier contains directory traversal: %s", SanitizeForLog(id))
	}
	if !identifierPattern.MatchString(id) {
		return fmt.Errorf("invalid identifier format: %s", SanitizeForLog(id))
	}
	return nil
}

// SecureJoinPath safely joins path components and validates the result stays
// under base
func SecureJoinPath(base string, components ...string) (string, error) {
	if base == "" {
		return "", fmt.Errorf("base path cannot be empty")
	}
	if strings.Contains(base, "\x00") {
		return "", fmt.Errorf("base path contains null byte")
	}
	base = filepath.Clean(base)

	result := base
	for _, component := range components {
		clean := filepath.Clean(component)
		if component == "" || clean == "." || strings.Contains(clean, "..") ||
			strings.ContainsAny(clean, "/\\\x00") {
			return "", fmt.Errorf("invalid path component: %s", SanitizeForLog(component))
		}
		result = filepath.Join(result, clean)
	}

	relPath, err := filepath.Rel(base, result)
	if err != nil {
		return "", fmt.Errorf("failed to compute relative path: %w", err)
	}
	if strings.HasPrefix(relPath, "..") {
		return "", fmt.Errorf("path escapes base directory: %s", result)
	}
	return result, nil
}

// HasAllowedExtension reports whether path ends in one of the allowed
// extensions (case-insensitive)
func HasAllowedExtension(path string, allowed []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, a := range allowed {
		if ext == strings.ToLower(a) {
			return true
		}
	}
	return false
}
