package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"sigs.k8s.io/yaml"

	apperrors "github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/pkg/errors"
	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/pkg/models"
	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/pkg/security"
)

// FileStore keeps one policy file per UAV in a directory. Policies are
// written as <uav_id>.json; hand-written <uav_id>.yaml or .yml files are
// accepted on read.
type FileStore struct {
	mu  sync.RWMutex
	dir string
}

// NewFileStore creates the directory if needed and returns a store rooted at it
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, apperrors.NewInvalidInputError("dir", "flight plan directory is required")
	}
	if err := security.SecureCreateDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create flight plan directory %s: %w", dir, err)
	}
	return &FileStore{dir: filepath.Clean(dir)}, nil
}

// Dir returns the store directory
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(uavID, ext string) (string, error) {
	if err := security.ValidateIdentifier(uavID); err != nil {
		return "", apperrors.NewInvalidInputError("uav_id", err.Error())
	}
	return security.SecureJoinPath(s.dir, uavID+ext)
}

// Get implements Store
func (s *FileStore) Get(_ context.Context, uavID string) (models.FlightPlanPolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ext := range security.PolicyFileExtensions {
		p, err := s.path(uavID, ext)
		if err != nil {
			return models.FlightPlanPolicy{}, err
		}
		data, err := os.ReadFile(p)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return models.FlightPlanPolicy{}, fmt.Errorf("failed to read %s: %w", p, err)
		}
		return decodeFile(uavID, ext, data)
	}
	return models.FlightPlanPolicy{}, apperrors.NewNotFoundError("flight plan", uavID)
}

func decodeFile(uavID, ext string, data []byte) (models.FlightPlanPolicy, error) {
	if ext != ".json" {
		converted, err := yaml.YAMLToJSON(data)
		if err != nil {
			return models.FlightPlanPolicy{}, apperrors.NewInvalidInputError("flight_plan", err.Error())
		}
		data = converted
	}
	policy, err := models.DecodePolicy(data)
	if err != nil {
		return models.FlightPlanPolicy{}, err
	}
	if policy.UavID != uavID {
		return models.FlightPlanPolicy{}, apperrors.NewInvalidInputError("uav_id",
			fmt.Sprintf("file for %s holds the policy of %s", uavID, policy.UavID)).WithValue(policy.UavID)
	}
	return policy, nil
}

// Put implements Store
func (s *FileStore) Put(_ context.Context, policy models.FlightPlanPolicy) error {
	if err := policy.Validate(); err != nil {
		return err
	}
	p, err := s.path(policy.UavID, ".json")
	if err != nil {
		return err
	}
	data, err := models.EncodePolicy(policy)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := security.SecureWriteFile(p, data); err != nil {
		return err
	}
	// A JSON write supersedes any YAML variant of the same UAV
	for _, ext := range security.PolicyFileExtensions[1:] {
		if other, err := s.path(policy.UavID, ext); err == nil {
			_ = os.Remove(other)
		}
	}
	return nil
}

// Delete implements Store
func (s *FileStore) Delete(_ context.Context, uavID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := false
	for _, ext := range security.PolicyFileExtensions {
		p, err := s.path(uavID, ext)
		if err != nil {
			return err
		}
		err = os.Remove(p)
		switch {
		case err == nil:
			removed = true
		case !os.IsNotExist(err):
			return fmt.Errorf("failed to remove %s: %w", p, err)
		}
	}
	if !removed {
		return apperrors.NewNotFoundError("flight plan", uavID)
	}
	return nil
}

// List implements Store
func (s *FileStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.dir, err)
	}

	seen := make(map[string]struct{})
	ids := []string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !security.HasAllowedExtension(name, security.PolicyFileExtensions) {
			continue
		}
		id := strings.TrimSuffix(name, filepath.Ext(name))
		if security.ValidateIdentifier(id) != nil {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
