package admission

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/vexa-ai/bot-manager/pkg/log"
	"github.com/vexa-ai/bot-manager/pkg/metrics"
	"github.com/vexa-ai/bot-manager/pkg/orchestrator"
	"github.com/vexa-ai/bot-manager/pkg/storage"
	"github.com/vexa-ai/bot-manager/pkg/types"
)

// ErrLimitNotConfigured is returned when a user row exists without a
// concurrency quota. This is a deployment misconfiguration, not a denial.
var ErrLimitNotConfigured = errors.New("user bot limit not configured")

// QuotaExceededError is the typed denial carrying the observed count and
// the user's quota.
type QuotaExceededError struct {
	Current int
	Limit   int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("user has reached the maximum concurrent bot limit (%d/%d)", e.Current, e.Limit)
}

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed bool
	Current int
	Limit   int
}

// Controller decides whether a new bot workload may be started for a user.
//
// The check is count-then-act with no reservation held between the check
// and the subsequent create: two concurrent requests for the same user can
// both observe count < limit and both be admitted, exceeding the quota.
// This matches the behavior of the system it replaces and is accepted as a
// best-effort bound, not a linearizable one.
type Controller struct {
	store  storage.Store
	orch   orchestrator.Orchestrator
	logger zerolog.Logger
}

// NewController creates an admission controller.
func NewController(store storage.Store, orch orchestrator.Orchestrator) *Controller {
	return &Controller{
		store:  store,
		orch:   orch,
		logger: log.WithComponent("admission"),
	}
}

// CheckAndReserve resolves the user (creating the row on first use),
// counts the user's labeled workloads on the platform, and compares the
// count against the quota. The only side effects are the read-only count
// and the lazy user creation.
func (c *Controller) CheckAndReserve(ctx context.Context, userID int) (Decision, error) {
	timer := time.Now()
	defer func() {
		metrics.AdmissionCheckDuration.Observe(time.Since(timer).Seconds())
	}()

	user, err := c.store.GetOrCreateUser(ctx, userID)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to resolve user %d: %w", userID, err)
	}
	if user.MaxConcurrentBots == nil {
		return Decision{}, fmt.Errorf("user %d: %w", userID, ErrLimitNotConfigured)
	}
	limit := *user.MaxConcurrentBots

	running, err := c.orch.ListWorkloads(ctx, map[string]string{
		types.LabelUserID:     strconv.Itoa(userID),
		types.LabelBotService: "true",
	})
	if err != nil {
		return Decision{}, fmt.Errorf("failed to count running bots for user %d: %w", userID, err)
	}
	current := len(running)

	if current >= limit {
		c.logger.Warn().
			Int("user_id", userID).
			Int("current", current).
			Int("limit", limit).
			Msg("bot limit reached")
		metrics.BotsDeniedTotal.Inc()
		return Decision{Allowed: false, Current: current, Limit: limit}, nil
	}

	c.logger.Debug().
		Int("user_id", userID).
		Int("current", current).
		Int("limit", limit).
		Msg("user under bot limit")
	return Decision{Allowed: true, Current: current, Limit: limit}, nil
}
