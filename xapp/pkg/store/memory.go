package store

import (
	"context"
	"sort"
	"sync"

	apperrors "github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/pkg/errors"
	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/pkg/models"
)

// MemoryStore keeps policies in process memory
type MemoryStore struct {
	mu       sync.RWMutex
	policies map[string]models.FlightPlanPolicy
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{policies: make(map[string]models.FlightPlanPolicy)}
}

func clonePolicy(p models.FlightPlanPolicy) models.FlightPlanPolicy {
	segments := make([]models.PathSegmentPlan, len(p.Segments))
	copy(segments, p.Segments)
	return models.FlightPlanPolicy{UavID: p.UavID, Segments: segments}
}

// Get implements Store
func (s *MemoryStore) Get(_ context.Context, uavID string) (models.FlightPlanPolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.policies[uavID]
	if !ok {
		return models.FlightPlanPolicy{}, apperrors.NewNotFoundError("flight plan", uavID)
	}
	return clonePolicy(p), nil
}

// Put implements Store
func (s *MemoryStore) Put(_ context.Context, policy models.FlightPlanPolicy) error {
	if err := policy.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[policy.UavID] = clonePolicy(policy)
	return nil
}

// Delete implements Store
func (s *MemoryStore) Delete(_ context.Context, uavID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.policies[uavID]; !ok {
		return apperrors.NewNotFoundError("flight plan", uavID)
	}
	delete(s.policies, uavID)
	return nil
}

// List implements Store
func (s *MemoryStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.policies))
	for id := range s.policies {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
