package orchestrator

import (
	"context"
	"errors"

	"github.com/vexa-ai/bot-manager/pkg/types"
)

var (
	// ErrNotFound is returned when the platform has no workload with the
	// given id or name.
	ErrNotFound = errors.New("workload not found")

	// ErrUnavailable is returned when the platform cannot be reached
	// after the bounded connection retries.
	ErrUnavailable = errors.New("orchestration platform unavailable")
)

// ExecutionUnitFilter narrows ListExecutionUnits.
type ExecutionUnitFilter struct {
	// WorkloadID selects units belonging to one workload.
	WorkloadID string

	// Running restricts the listing to units whose desired state is
	// running.
	Running bool
}

// Orchestrator is the capability interface over the container platform.
// Implementations are the source of truth for workload state; callers hold
// no authoritative local copy.
type Orchestrator interface {
	// ListWorkloads returns all workloads whose labels match every entry
	// of the selector.
	ListWorkloads(ctx context.Context, selector map[string]string) ([]*types.Workload, error)

	// CreateWorkload submits a declarative spec and returns the created
	// workload.
	CreateWorkload(ctx context.Context, spec *types.WorkloadSpec) (*types.Workload, error)

	// GetWorkload resolves a workload by id or name. Returns ErrNotFound
	// when absent.
	GetWorkload(ctx context.Context, idOrName string) (*types.Workload, error)

	// RemoveWorkload stops and removes a workload.
	RemoveWorkload(ctx context.Context, workload *types.Workload) error

	// ListExecutionUnits returns the execution units matching the filter.
	ListExecutionUnits(ctx context.Context, filter ExecutionUnitFilter) ([]*types.ExecutionUnit, error)

	// Close releases the platform connection.
	Close() error
}
