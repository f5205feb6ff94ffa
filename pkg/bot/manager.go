package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vexa-ai/bot-manager/pkg/admission"
	"github.com/vexa-ai/bot-manager/pkg/config"
	"github.com/vexa-ai/bot-manager/pkg/events"
	"github.com/vexa-ai/bot-manager/pkg/log"
	"github.com/vexa-ai/bot-manager/pkg/metrics"
	"github.com/vexa-ai/bot-manager/pkg/orchestrator"
	"github.com/vexa-ai/bot-manager/pkg/storage"
	"github.com/vexa-ai/bot-manager/pkg/types"
)

// CreationError wraps a platform rejection of a workload spec. No identity
// is returned alongside it; the workload is considered not created.
type CreationError struct {
	Name string
	Err  error
}

func (e *CreationError) Error() string {
	return fmt.Sprintf("failed to create bot workload %s: %v", e.Name, e.Err)
}

func (e *CreationError) Unwrap() error { return e.Err }

// StartRequest carries the parameters of one bot start. MeetingURL,
// BotName, Language and Task are optional.
type StartRequest struct {
	UserID          int
	MeetingID       int
	MeetingURL      string
	Platform        types.Platform
	BotName         string
	UserToken       string
	NativeMeetingID string
	Language        string
	Task            string
}

// StartResult is the identity tuple of a started bot. Both fields are
// always set together; a failed start returns neither.
type StartResult struct {
	WorkloadID   string
	ConnectionID string
}

// Manager orchestrates the bot workload lifecycle: create, observe,
// remove. It holds no workload state of its own; the platform is the
// source of truth and the persistence layer only records sessions.
type Manager struct {
	orch      orchestrator.Orchestrator
	store     storage.Store
	admission *admission.Controller
	cfg       *config.Config
	publisher events.Publisher
	logger    zerolog.Logger
}

// NewManager creates a bot lifecycle manager.
func NewManager(orch orchestrator.Orchestrator, store storage.Store, adm *admission.Controller, cfg *config.Config, publisher events.Publisher) *Manager {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Manager{
		orch:      orch,
		store:     store,
		admission: adm,
		cfg:       cfg,
		publisher: publisher,
		logger:    log.WithComponent("bot"),
	}
}

// StartBot admits, assembles, and submits one bot workload, then records
// the session best-effort. Workload creation and session persistence are
// two independent operations with no transaction between them: a failure
// after the create leaves the workload running with no session row, which
// is accepted and logged rather than rolled back.
func (m *Manager) StartBot(ctx context.Context, req StartRequest) (*StartResult, error) {
	decision, err := m.admission.CheckAndReserve(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, &admission.QuotaExceededError{Current: decision.Current, Limit: decision.Limit}
	}

	connectionID := uuid.NewString()
	name := fmt.Sprintf("vexa-bot-svc-%d-%s", req.MeetingID, connectionID[:8])

	botName := req.BotName
	if botName == "" {
		// Derived from the connection id so a bot seen in a meeting can
		// be traced back to its session.
		botName = "VexaBot-" + connectionID[:6]
	}

	logger := m.logger.With().
		Str("workload", name).
		Str("connection_id", connectionID).
		Int("user_id", req.UserID).
		Int("meeting_id", req.MeetingID).
		Logger()
	logger.Info().Msg("preparing bot workload")

	botConfig := &BotConfig{
		MeetingID:       req.MeetingID,
		Platform:        req.Platform,
		MeetingURL:      req.MeetingURL,
		BotName:         botName,
		Token:           req.UserToken,
		NativeMeetingID: req.NativeMeetingID,
		ConnectionID:    connectionID,
		Language:        req.Language,
		Task:            req.Task,
		RedisURL:        m.cfg.RedisURL,
		AutomaticLeave:  defaultAutomaticLeave(),
	}

	env, err := buildEnv(botConfig, m.cfg.WhisperLiveURL(), m.cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	spec := &types.WorkloadSpec{
		Name:  name,
		Image: m.cfg.BotImage,
		Env:   env,
		Labels: map[string]string{
			types.LabelUserID:       strconv.Itoa(req.UserID),
			types.LabelMeetingID:    strconv.Itoa(req.MeetingID),
			types.LabelConnectionID: connectionID,
			types.LabelBotService:   "true",
		},
		RestartPolicy: &types.RestartPolicy{
			Condition:   types.RestartOnFailure,
			Delay:       5 * time.Second,
			MaxAttempts: 3,
			Window:      120 * time.Second,
		},
		Replicas: 1,
		Networks: []*types.NetworkAttachment{{
			Target:  m.cfg.Network,
			Aliases: []string{name},
		}},
	}

	workload, err := m.orch.CreateWorkload(ctx, spec)
	if err != nil {
		if errors.Is(err, orchestrator.ErrUnavailable) {
			return nil, err
		}
		metrics.CreationFailuresTotal.Inc()
		logger.Error().Err(err).Msg("platform rejected bot workload")
		return nil, &CreationError{Name: name, Err: err}
	}

	logger.Info().Str("workload_id", workload.ID).Msg("bot workload created")
	metrics.BotsStartedTotal.Inc()

	session := &types.Session{
		MeetingID:    req.MeetingID,
		ConnectionID: connectionID,
		Status:       "active",
		StartedAt:    time.Now().UTC(),
	}
	if err := m.store.CreateSession(ctx, session); err != nil {
		// Partial-failure policy: the workload stays up, the gap is
		// logged.
		logger.Error().Err(err).Msg("failed to record session start")
	}

	if err := m.publisher.Publish(ctx, events.Event{
		Type:         events.TypeBotLaunched,
		WorkloadID:   workload.ID,
		WorkloadName: name,
		ConnectionID: connectionID,
		MeetingID:    req.MeetingID,
		UserID:       req.UserID,
	}); err != nil {
		logger.Warn().Err(err).Msg("failed to publish launch event")
	}

	return &StartResult{WorkloadID: workload.ID, ConnectionID: connectionID}, nil
}

// StopBot removes a bot workload by id or name. A workload that no longer
// exists counts as success, so repeated stops are idempotent. The session
// row is deliberately left untouched.
func (m *Manager) StopBot(ctx context.Context, idOrName string) (bool, error) {
	workload, err := m.orch.GetWorkload(ctx, idOrName)
	if err != nil {
		if errors.Is(err, orchestrator.ErrNotFound) {
			m.logger.Warn().Str("workload", idOrName).Msg("bot workload not found, assuming already removed")
			return true, nil
		}
		m.logger.Error().Err(err).Str("workload", idOrName).Msg("failed to resolve bot workload")
		return false, err
	}

	connectionID := workload.Labels[types.LabelConnectionID]
	meetingID := workload.Labels[types.LabelMeetingID]

	if err := m.orch.RemoveWorkload(ctx, workload); err != nil {
		m.logger.Error().Err(err).Str("workload", idOrName).Msg("failed to remove bot workload")
		return false, err
	}

	m.logger.Info().
		Str("workload", idOrName).
		Str("connection_id", connectionID).
		Str("meeting_id", meetingID).
		Msg("bot workload removed")
	metrics.BotsStoppedTotal.Inc()

	if err := m.publisher.Publish(ctx, events.Event{
		Type:         events.TypeBotStopped,
		WorkloadID:   workload.ID,
		WorkloadName: workload.Name,
		ConnectionID: connectionID,
	}); err != nil {
		m.logger.Warn().Err(err).Str("workload", idOrName).Msg("failed to publish stop event")
	}

	return true, nil
}
