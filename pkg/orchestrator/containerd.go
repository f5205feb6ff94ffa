package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/containerd/containerd"
	"github.com/containerd/containerd/cio"
	"github.com/containerd/containerd/errdefs"
	"github.com/containerd/containerd/namespaces"
	"github.com/containerd/containerd/oci"
	specs "github.com/opencontainers/runtime-spec/specs-go"
	"github.com/rs/zerolog"

	"github.com/vexa-ai/bot-manager/pkg/log"
	"github.com/vexa-ai/bot-manager/pkg/types"
)

const (
	// DefaultNamespace is the containerd namespace bot workloads live in
	DefaultNamespace = "vexa-bots"

	// DefaultSocketPath is the default containerd socket
	DefaultSocketPath = "/run/containerd/containerd.sock"

	// Connection bootstrap bounds. Per-call timeouts beyond this are left
	// to the client's defaults.
	connectAttempts = 3
	connectDelay    = 2 * time.Second

	// stopTimeout is how long a task gets to exit on SIGTERM before it is
	// force-killed.
	stopTimeout = 10 * time.Second

	// Labels consumed by the platform's restart monitor.
	restartStatusLabel = "containerd.io/restart.status"
	restartPolicyLabel = "containerd.io/restart.policy"
)

// Containerd implements Orchestrator against a containerd endpoint.
type Containerd struct {
	client    *containerd.Client
	namespace string
	logger    zerolog.Logger
}

// NewContainerd connects to containerd with bounded retries. Failure to
// establish a verified connection within the retry budget returns
// ErrUnavailable.
func NewContainerd(ctx context.Context, socketPath string) (*Containerd, error) {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}

	logger := log.WithComponent("orchestrator")

	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		client, err := containerd.New(socketPath)
		if err == nil {
			// Verify the connection before handing the client out.
			_, err = client.Version(ctx)
			if err == nil {
				return &Containerd{
					client:    client,
					namespace: DefaultNamespace,
					logger:    logger,
				}, nil
			}
			client.Close()
		}

		lastErr = err
		logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("max_attempts", connectAttempts).
			Msg("failed to connect to containerd")

		if attempt < connectAttempts {
			select {
			case <-time.After(connectDelay):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
			}
		}
	}

	return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

// Close closes the containerd client connection
func (o *Containerd) Close() error {
	if o.client != nil {
		return o.client.Close()
	}
	return nil
}

// selectorFilter renders a label selector into containerd's filter syntax.
// Entries are ANDed.
func selectorFilter(selector map[string]string) string {
	keys := make([]string, 0, len(selector))
	for k := range selector {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("labels.%q==%q", k, selector[k]))
	}
	return strings.Join(parts, ",")
}

// ListWorkloads returns all workloads whose labels match the selector.
func (o *Containerd) ListWorkloads(ctx context.Context, selector map[string]string) ([]*types.Workload, error) {
	ctx = namespaces.WithNamespace(ctx, o.namespace)

	var filters []string
	if len(selector) > 0 {
		filters = append(filters, selectorFilter(selector))
	}

	containers, err := o.client.Containers(ctx, filters...)
	if err != nil {
		return nil, fmt.Errorf("failed to list workloads: %w", err)
	}

	workloads := make([]*types.Workload, 0, len(containers))
	for _, c := range containers {
		info, err := c.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to inspect workload %s: %w", c.ID(), err)
		}
		workloads = append(workloads, &types.Workload{
			ID:        info.ID,
			Name:      info.ID,
			Labels:    info.Labels,
			CreatedAt: info.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}

	return workloads, nil
}

// CreateWorkload creates a container from the spec and starts its task.
// The spec's name becomes the container id, so it must be unique within the
// namespace. Replica counts other than 1 are not supported by this backend.
func (o *Containerd) CreateWorkload(ctx context.Context, spec *types.WorkloadSpec) (*types.Workload, error) {
	ctx = namespaces.WithNamespace(ctx, o.namespace)

	image, err := o.client.GetImage(ctx, spec.Image)
	if err != nil {
		if !errdefs.IsNotFound(err) {
			return nil, fmt.Errorf("failed to get image %s: %w", spec.Image, err)
		}
		image, err = o.client.Pull(ctx, spec.Image, containerd.WithPullUnpack)
		if err != nil {
			return nil, fmt.Errorf("failed to pull image %s: %w", spec.Image, err)
		}
	}

	labels := make(map[string]string, len(spec.Labels)+2)
	for k, v := range spec.Labels {
		labels[k] = v
	}
	if policy := restartPolicyValue(spec.RestartPolicy); policy != "" {
		labels[restartStatusLabel] = "running"
		labels[restartPolicyLabel] = policy
	}

	opts := []oci.SpecOpts{
		oci.WithImageConfig(image),
		oci.WithEnv(spec.Env),
		// Headless-browser bots need a real shared-memory segment.
		oci.WithMounts([]specs.Mount{{
			Destination: "/dev/shm",
			Type:        "tmpfs",
			Source:      "shm",
			Options:     []string{"nosuid", "noexec", "nodev", "mode=1777", "size=2g"},
		}}),
	}
	if len(spec.Networks) > 0 && len(spec.Networks[0].Aliases) > 0 {
		opts = append(opts, oci.WithHostname(spec.Networks[0].Aliases[0]))
	}

	container, err := o.client.NewContainer(
		ctx,
		spec.Name,
		containerd.WithImage(image),
		containerd.WithNewSnapshot(spec.Name+"-snapshot", image),
		containerd.WithNewSpec(opts...),
		containerd.WithContainerLabels(labels),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create workload %s: %w", spec.Name, err)
	}

	task, err := container.NewTask(ctx, cio.NullIO)
	if err != nil {
		// The workload is considered not created; clean up the container
		// so the name can be reused.
		if derr := container.Delete(ctx, containerd.WithSnapshotCleanup); derr != nil {
			o.logger.Error().Err(derr).Str("workload", spec.Name).Msg("failed to clean up container after task creation failure")
		}
		return nil, fmt.Errorf("failed to create execution unit for %s: %w", spec.Name, err)
	}

	if err := task.Start(ctx); err != nil {
		if _, derr := task.Delete(ctx); derr != nil {
			o.logger.Error().Err(derr).Str("workload", spec.Name).Msg("failed to delete execution unit after start failure")
		}
		if derr := container.Delete(ctx, containerd.WithSnapshotCleanup); derr != nil {
			o.logger.Error().Err(derr).Str("workload", spec.Name).Msg("failed to clean up container after start failure")
		}
		return nil, fmt.Errorf("failed to start workload %s: %w", spec.Name, err)
	}

	info, err := container.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect workload %s: %w", spec.Name, err)
	}

	return &types.Workload{
		ID:        info.ID,
		Name:      info.ID,
		Labels:    info.Labels,
		CreatedAt: info.CreatedAt.UTC().Format(time.RFC3339Nano),
	}, nil
}

// GetWorkload resolves a workload by id or name.
func (o *Containerd) GetWorkload(ctx context.Context, idOrName string) (*types.Workload, error) {
	ctx = namespaces.WithNamespace(ctx, o.namespace)

	container, err := o.client.LoadContainer(ctx, idOrName)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, idOrName)
		}
		return nil, fmt.Errorf("failed to load workload %s: %w", idOrName, err)
	}

	info, err := container.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect workload %s: %w", idOrName, err)
	}

	return &types.Workload{
		ID:        info.ID,
		Name:      info.ID,
		Labels:    info.Labels,
		CreatedAt: info.CreatedAt.UTC().Format(time.RFC3339Nano),
	}, nil
}

// RemoveWorkload stops the workload's task and deletes the container and
// its snapshot.
func (o *Containerd) RemoveWorkload(ctx context.Context, workload *types.Workload) error {
	ctx = namespaces.WithNamespace(ctx, o.namespace)

	container, err := o.client.LoadContainer(ctx, workload.ID)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to load workload %s: %w", workload.ID, err)
	}

	if err := o.stopTask(ctx, container); err != nil {
		return err
	}

	if err := container.Delete(ctx, containerd.WithSnapshotCleanup); err != nil {
		return fmt.Errorf("failed to delete workload %s: %w", workload.ID, err)
	}

	return nil
}

// stopTask terminates a container's task, SIGTERM first and SIGKILL after
// the stop timeout.
func (o *Containerd) stopTask(ctx context.Context, container containerd.Container) error {
	task, err := container.Task(ctx, nil)
	if err != nil {
		// No task means nothing is running.
		return nil
	}

	stopCtx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()

	if err := task.Kill(stopCtx, syscall.SIGTERM); err != nil && !errdefs.IsNotFound(err) {
		return fmt.Errorf("failed to signal execution unit: %w", err)
	}

	statusC, err := task.Wait(stopCtx)
	if err != nil {
		return fmt.Errorf("failed to wait for execution unit: %w", err)
	}

	select {
	case <-statusC:
	case <-stopCtx.Done():
		if err := task.Kill(ctx, syscall.SIGKILL); err != nil && !errdefs.IsNotFound(err) {
			return fmt.Errorf("failed to force kill execution unit: %w", err)
		}
	}

	if _, err := task.Delete(ctx); err != nil && !errdefs.IsNotFound(err) {
		return fmt.Errorf("failed to delete execution unit: %w", err)
	}

	return nil
}

// ListExecutionUnits reports the execution units of a workload. Containerd
// runs at most one task per container, so the result has zero or one entry.
func (o *Containerd) ListExecutionUnits(ctx context.Context, filter ExecutionUnitFilter) ([]*types.ExecutionUnit, error) {
	ctx = namespaces.WithNamespace(ctx, o.namespace)

	container, err := o.client.LoadContainer(ctx, filter.WorkloadID)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load workload %s: %w", filter.WorkloadID, err)
	}

	info, err := container.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect workload %s: %w", filter.WorkloadID, err)
	}

	task, err := container.Task(ctx, nil)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get execution unit for %s: %w", filter.WorkloadID, err)
	}

	status, err := task.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get execution unit status: %w", err)
	}

	unit := &types.ExecutionUnit{
		ID:         task.ID(),
		WorkloadID: filter.WorkloadID,
		State:      mapTaskState(status),
		CreatedAt:  info.CreatedAt,
	}
	if status.Status == containerd.Stopped && status.ExitStatus != 0 {
		unit.Error = fmt.Sprintf("exit status %d", status.ExitStatus)
	}

	if filter.Running && unit.State != types.ExecStateRunning {
		return nil, nil
	}

	return []*types.ExecutionUnit{unit}, nil
}

// mapTaskState maps containerd task status to an ExecState.
func mapTaskState(status containerd.Status) types.ExecState {
	switch status.Status {
	case containerd.Running, containerd.Paused, containerd.Pausing:
		return types.ExecStateRunning
	case containerd.Stopped:
		if status.ExitStatus == 0 {
			return types.ExecStateComplete
		}
		return types.ExecStateFailed
	case containerd.Created:
		return types.ExecStatePending
	default:
		return types.ExecStatePending
	}
}

// restartPolicyValue renders a RestartPolicy for the restart monitor's
// policy label.
func restartPolicyValue(p *types.RestartPolicy) string {
	if p == nil {
		return ""
	}
	switch p.Condition {
	case types.RestartOnFailure:
		if p.MaxAttempts > 0 {
			return fmt.Sprintf("on-failure:%d", p.MaxAttempts)
		}
		return "on-failure"
	case types.RestartAlways:
		return "always"
	default:
		return ""
	}
}
