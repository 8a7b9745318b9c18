// Package store provides flight-plan policy storage for the UAV policy xApp.
// Policies are provisioned out of band by the Non-RT planner and read by the
// decision path when an indication carries no inline flight plan.
package store

import (
	"context"
	"fmt"

	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/pkg/models"
)

// Backend names a Store implementation
type Backend string

const (
	BackendMemory    Backend = "memory"
	BackendFile      Backend = "file"
	BackendConfigMap Backend = "configmap"
)

// Store defines persistence for flight-plan policies keyed by UAV id
type Store interface {
	// Get retrieves the policy of a UAV; a missing policy is a NotFoundError
	Get(ctx context.Context, uavID string) (models.FlightPlanPolicy, error)

	// Put creates or replaces the policy of policy.UavID
	Put(ctx context.Context, policy models.FlightPlanPolicy) error

	// Delete removes the policy of a UAV
	Delete(ctx context.Context, uavID string) error

	// List returns the UAV ids with a stored policy, sorted
	List(ctx context.Context) ([]string, error)
}

// Options selects and configures a Store
type Options struct {
	Backend    Backend
	Dir        string
	Namespace  string
	Kubeconfig string
}

// New builds the Store selected by opts
func New(opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendFile:
		return NewFileStore(opts.Dir)
	case BackendConfigMap:
		client, err := NewKubernetesClient(opts.Kubeconfig)
		if err != nil {
			return nil, err
		}
		return NewConfigMapStore(client, opts.Namespace), nil
	default:
		return nil, fmt.Errorf("unknown flight plan backend %q", opts.Backend)
	}
}
