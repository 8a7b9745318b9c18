// Copyright 2024 O-RAN Intent MANO Project
// SPDX-License-Identifier: Apache-2.0

// Package security provides log sanitization, path validation and least-privilege
// file helpers for the planner and xApp artifacts.
package security

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// SecureFileMode - Read/write for owner only (0600)
	// Used for: flight-plan policies, decision logs
	SecureFileMode os.FileMode = 0600

	// SecureDirMode - Read/write/execute for owner, read/execute for group (0750)
	SecureDirMode os.FileMode = 0750
)

// SecureCreateDir creates a directory with secure permissions (0750)
func SecureCreateDir(path string) error {
	return os.MkdirAll(path, SecureDirMode)
}

// SecureCreateFile creates or truncates a file with secure permissions (0600)
func SecureCreateFile(filename string) (*os.File, error) {
	return os.OpenFile(filepath.Clean(filename), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, SecureFileMode)
}

// SecureWriteFile writes data to a temporary file next to filename and renames
// it into place, so readers never observe a partially written file.
func SecureWriteFile(filename string, data []byte) error {
	dir := filepath.Dir(filename)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(filename)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	if err := tmp.Chmod(SecureFileMode); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set permissions on %s: %w", filename, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", filename, err)
	}
	if err := os.Rename(tmpName, filename); err != nil {
		return fmt.Errorf("failed to rename into %s: %w", filename, err)
	}
	return nil
}
