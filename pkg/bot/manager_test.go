package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vexa-ai/bot-manager/pkg/admission"
	"github.com/vexa-ai/bot-manager/pkg/config"
	"github.com/vexa-ai/bot-manager/pkg/events"
	"github.com/vexa-ai/bot-manager/pkg/log"
	"github.com/vexa-ai/bot-manager/pkg/orchestrator"
	"github.com/vexa-ai/bot-manager/pkg/storage"
	"github.com/vexa-ai/bot-manager/pkg/types"
)

func init() {
	log.Init(log.Config{Level: log.ErrorLevel})
}

// fakeOrch is an in-memory Orchestrator recording the order of calls.
type fakeOrch struct {
	workloads map[string]*types.Workload
	specs     map[string]*types.WorkloadSpec
	units     map[string][]*types.ExecutionUnit
	calls     []string

	createErr error
	listErr   error
	removeErr error
	unitsErr  error
}

func newFakeOrch() *fakeOrch {
	return &fakeOrch{
		workloads: map[string]*types.Workload{},
		specs:     map[string]*types.WorkloadSpec{},
		units:     map[string][]*types.ExecutionUnit{},
	}
}

func (o *fakeOrch) ListWorkloads(_ context.Context, selector map[string]string) ([]*types.Workload, error) {
	o.calls = append(o.calls, "list")
	if o.listErr != nil {
		return nil, o.listErr
	}
	var out []*types.Workload
	for _, w := range o.workloads {
		match := true
		for k, v := range selector {
			if w.Labels[k] != v {
				match = false
				break
			}
		}
		if match {
			out = append(out, w)
		}
	}
	return out, nil
}

func (o *fakeOrch) CreateWorkload(_ context.Context, spec *types.WorkloadSpec) (*types.Workload, error) {
	o.calls = append(o.calls, "create")
	if o.createErr != nil {
		return nil, o.createErr
	}
	w := &types.Workload{
		ID:        "id-" + spec.Name,
		Name:      spec.Name,
		Labels:    spec.Labels,
		CreatedAt: "2025-06-01T10:00:00.123456789Z",
	}
	o.workloads[w.ID] = w
	o.specs[w.ID] = spec
	o.units[w.ID] = []*types.ExecutionUnit{{
		ID:         w.ID + "-unit",
		WorkloadID: w.ID,
		State:      types.ExecStateRunning,
	}}
	return w, nil
}

func (o *fakeOrch) GetWorkload(_ context.Context, idOrName string) (*types.Workload, error) {
	o.calls = append(o.calls, "get")
	if w, ok := o.workloads[idOrName]; ok {
		return w, nil
	}
	for _, w := range o.workloads {
		if w.Name == idOrName {
			return w, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", orchestrator.ErrNotFound, idOrName)
}

func (o *fakeOrch) RemoveWorkload(_ context.Context, workload *types.Workload) error {
	o.calls = append(o.calls, "remove")
	if o.removeErr != nil {
		return o.removeErr
	}
	delete(o.workloads, workload.ID)
	delete(o.specs, workload.ID)
	delete(o.units, workload.ID)
	return nil
}

func (o *fakeOrch) ListExecutionUnits(_ context.Context, filter orchestrator.ExecutionUnitFilter) ([]*types.ExecutionUnit, error) {
	o.calls = append(o.calls, "units")
	if o.unitsErr != nil {
		return nil, o.unitsErr
	}
	var out []*types.ExecutionUnit
	for _, unit := range o.units[filter.WorkloadID] {
		if filter.Running && unit.State != types.ExecStateRunning {
			continue
		}
		out = append(out, unit)
	}
	return out, nil
}

func (o *fakeOrch) Close() error { return nil }

// fakeStore is an in-memory Store with failure injection.
type fakeStore struct {
	users      map[int]*types.User
	meetings   map[int]*types.Meeting
	sessions   []*types.Session
	sessionErr error
	meetingErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    map[int]*types.User{},
		meetings: map[int]*types.Meeting{},
	}
}

func (s *fakeStore) GetOrCreateUser(_ context.Context, id int) (*types.User, error) {
	if user, ok := s.users[id]; ok {
		return user, nil
	}
	limit := 1
	user := &types.User{ID: id, MaxConcurrentBots: &limit}
	s.users[id] = user
	return user, nil
}

func (s *fakeStore) GetMeeting(_ context.Context, id int) (*types.Meeting, error) {
	if s.meetingErr != nil {
		return nil, s.meetingErr
	}
	if meeting, ok := s.meetings[id]; ok {
		return meeting, nil
	}
	return nil, fmt.Errorf("%w: meeting %d", storage.ErrNotFound, id)
}

func (s *fakeStore) CreateSession(_ context.Context, session *types.Session) error {
	if s.sessionErr != nil {
		return s.sessionErr
	}
	s.sessions = append(s.sessions, session)
	return nil
}

func (s *fakeStore) UpdateSessionStatus(context.Context, string, string) error { return nil }
func (s *fakeStore) Close() error                                              { return nil }

// recordingPublisher captures published events.
type recordingPublisher struct {
	published []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.published = append(p.published, event)
	return nil
}
func (p *recordingPublisher) Close() error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		Network:           "vexa_vexa_default",
		BotImage:          "vexa-bot:dev",
		RedisURL:          "redis://localhost:6379",
		DeviceType:        "cuda",
		WhisperLiveGPUURL: "ws://whisperlive:9090",
		WhisperLiveCPUURL: "ws://whisperlive-cpu:9092",
		LogLevel:          "INFO",
	}
}

func newTestManager(orch *fakeOrch, store *fakeStore, pub events.Publisher) *Manager {
	return NewManager(orch, store, admission.NewController(store, orch), testConfig(), pub)
}

func withQuota(store *fakeStore, userID, quota int) {
	store.users[userID] = &types.User{ID: userID, MaxConcurrentBots: &quota}
}

func startRequest() StartRequest {
	return StartRequest{
		UserID:          7,
		MeetingID:       42,
		MeetingURL:      "https://meet.google.com/xyz-abc-pdq",
		Platform:        types.PlatformGoogleMeet,
		UserToken:       "tok-123",
		NativeMeetingID: "xyz-abc-pdq",
		Task:            "transcribe",
	}
}

func TestStartBotReturnsFullIdentity(t *testing.T) {
	orch := newFakeOrch()
	store := newFakeStore()
	pub := &recordingPublisher{}
	mgr := newTestManager(orch, store, pub)

	result, err := mgr.StartBot(context.Background(), startRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, result.WorkloadID)
	assert.NotEmpty(t, result.ConnectionID)

	// One workload, named from meeting id plus connection id prefix.
	require.Len(t, orch.workloads, 1)
	w := orch.workloads[result.WorkloadID]
	assert.Equal(t, "vexa-bot-svc-42-"+result.ConnectionID[:8], w.Name)
	assert.Equal(t, "7", w.Labels[types.LabelUserID])
	assert.Equal(t, "42", w.Labels[types.LabelMeetingID])
	assert.Equal(t, result.ConnectionID, w.Labels[types.LabelConnectionID])
	assert.Equal(t, "true", w.Labels[types.LabelBotService])

	// Session recorded against the same connection id.
	require.Len(t, store.sessions, 1)
	assert.Equal(t, 42, store.sessions[0].MeetingID)
	assert.Equal(t, result.ConnectionID, store.sessions[0].ConnectionID)
	assert.Equal(t, "active", store.sessions[0].Status)

	// Launch event published.
	require.Len(t, pub.published, 1)
	assert.Equal(t, events.TypeBotLaunched, pub.published[0].Type)
}

func TestStartBotSecondStartDeniedBeforeCreate(t *testing.T) {
	orch := newFakeOrch()
	store := newFakeStore()
	withQuota(store, 7, 1)
	mgr := newTestManager(orch, store, events.NopPublisher{})

	_, err := mgr.StartBot(context.Background(), startRequest())
	require.NoError(t, err)

	orch.calls = nil
	_, err = mgr.StartBot(context.Background(), startRequest())

	var quotaErr *admission.QuotaExceededError
	require.ErrorAs(t, err, &quotaErr)
	assert.Equal(t, 1, quotaErr.Current)
	assert.Equal(t, 1, quotaErr.Limit)

	// The denial happens before any workload creation is attempted.
	assert.NotContains(t, orch.calls, "create")
}

func TestStartBotCreationRejected(t *testing.T) {
	orch := newFakeOrch()
	orch.createErr = errors.New("image unavailable")
	store := newFakeStore()
	mgr := newTestManager(orch, store, events.NopPublisher{})

	result, err := mgr.StartBot(context.Background(), startRequest())
	assert.Nil(t, result)

	var creationErr *CreationError
	require.ErrorAs(t, err, &creationErr)
	assert.Empty(t, store.sessions)
}

func TestStartBotPlatformUnavailable(t *testing.T) {
	orch := newFakeOrch()
	orch.createErr = fmt.Errorf("%w: dial failed", orchestrator.ErrUnavailable)
	mgr := newTestManager(orch, newFakeStore(), events.NopPublisher{})

	result, err := mgr.StartBot(context.Background(), startRequest())
	assert.Nil(t, result)
	assert.ErrorIs(t, err, orchestrator.ErrUnavailable)
}

func TestStartBotSessionFailureDoesNotRollBack(t *testing.T) {
	orch := newFakeOrch()
	store := newFakeStore()
	store.sessionErr = errors.New("db down")
	mgr := newTestManager(orch, store, events.NopPublisher{})

	result, err := mgr.StartBot(context.Background(), startRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, result.WorkloadID)

	// The workload is still up even though the session row was lost.
	assert.Len(t, orch.workloads, 1)
}

func TestStartBotDefaultBotName(t *testing.T) {
	orch := newFakeOrch()
	mgr := newTestManager(orch, newFakeStore(), events.NopPublisher{})

	result, err := mgr.StartBot(context.Background(), startRequest())
	require.NoError(t, err)

	cfg := decodeBotConfig(t, orch, result.WorkloadID)
	assert.Equal(t, "VexaBot-"+result.ConnectionID[:6], cfg.BotName)
}

func TestStartBotExplicitBotName(t *testing.T) {
	orch := newFakeOrch()
	mgr := newTestManager(orch, newFakeStore(), events.NopPublisher{})

	req := startRequest()
	req.BotName = "Notetaker"
	result, err := mgr.StartBot(context.Background(), req)
	require.NoError(t, err)

	cfg := decodeBotConfig(t, orch, result.WorkloadID)
	assert.Equal(t, "Notetaker", cfg.BotName)
}

// decodeBotConfig extracts the BOT_CONFIG payload from the spec the fake
// recorded for a created workload.
func decodeBotConfig(t *testing.T, orch *fakeOrch, workloadID string) BotConfig {
	t.Helper()
	spec, ok := orch.specs[workloadID]
	require.True(t, ok, "no recorded spec for workload %s", workloadID)
	for _, entry := range spec.Env {
		if strings.HasPrefix(entry, "BOT_CONFIG=") {
			var cfg BotConfig
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(entry, "BOT_CONFIG=")), &cfg))
			return cfg
		}
	}
	t.Fatal("BOT_CONFIG entry not found")
	return BotConfig{}
}

func TestStopBotIdempotent(t *testing.T) {
	orch := newFakeOrch()
	mgr := newTestManager(orch, newFakeStore(), events.NopPublisher{})

	result, err := mgr.StartBot(context.Background(), startRequest())
	require.NoError(t, err)

	ok, err := mgr.StopBot(context.Background(), result.WorkloadID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, orch.workloads)

	// Second stop: already gone, still success.
	ok, err = mgr.StopBot(context.Background(), result.WorkloadID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStopBotNonexistentName(t *testing.T) {
	mgr := newTestManager(newFakeOrch(), newFakeStore(), events.NopPublisher{})

	ok, err := mgr.StopBot(context.Background(), "nonexistent-name")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStopBotRemovalFailure(t *testing.T) {
	orch := newFakeOrch()
	mgr := newTestManager(orch, newFakeStore(), events.NopPublisher{})

	result, err := mgr.StartBot(context.Background(), startRequest())
	require.NoError(t, err)

	orch.removeErr = errors.New("api error")
	ok, err := mgr.StopBot(context.Background(), result.WorkloadID)
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestStopBotByName(t *testing.T) {
	orch := newFakeOrch()
	mgr := newTestManager(orch, newFakeStore(), events.NopPublisher{})

	result, err := mgr.StartBot(context.Background(), startRequest())
	require.NoError(t, err)

	name := "vexa-bot-svc-42-" + result.ConnectionID[:8]
	ok, err := mgr.StopBot(context.Background(), name)
	require.NoError(t, err)
	assert.True(t, ok)
}
