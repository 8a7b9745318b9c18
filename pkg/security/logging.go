// Copyright 2024 O-RAN Intent MANO Project
// SPDX-License-Identifier: Apache-2.0

package security

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"
)

// maxLogValueLength bounds a single sanitized value to prevent log flooding
const maxLogValueLength = 512

// SanitizeForLog removes dangerous characters that could be used for log injection.
// UAV ids, cell ids and other request-supplied strings go through it before logging.
func SanitizeForLog(input string) string {
	if input == "" {
		return ""
	}

	var result strings.Builder
	result.Grow(len(input))

	for _, r := range input {
		switch {
		case r == '\n':
			result.WriteString("\\n")
		case r == '\r':
			result.WriteString("\\r")
		case r == '\t':
			result.WriteString("\\t")
		case r == 0x1b: // ESC starts ANSI sequences
			result.WriteString("\\e")
		case unicode.IsControl(r):
			result.WriteString(fmt.Sprintf("\\x%02x", r))
		default:
			result.WriteRune(r)
		}
	}

	sanitized := result.String()
	if len(sanitized) > maxLogValueLength {
		sanitized = sanitized[:maxLogValueLength-3] + "..."
	}
	return sanitized
}

// SanitizeErrorForLog safely formats error messages for logging
func SanitizeErrorForLog(err error) string {
	if err == nil {
		return "<nil>"
	}
	return SanitizeForLog(err.Error())
}

// LogFields builds logrus fields from untrusted string values.
func LogFields(kv map[string]string) logrus.Fields {
	fields := make(logrus.Fields, len(kv))
	for k, v := range kv {
		fields[k] = SanitizeForLog(v)
	}
	return fields
}
