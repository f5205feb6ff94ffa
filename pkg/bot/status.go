package bot

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/vexa-ai/bot-manager/pkg/metrics"
	"github.com/vexa-ai/bot-manager/pkg/orchestrator"
	"github.com/vexa-ai/bot-manager/pkg/types"
)

// noUnitsStatus is reported for a workload with no execution units at all.
const noUnitsStatus = "no execution units found"

// ListRunningBots returns one status entry per workload labeled with the
// user's id. Every entry is enriched best-effort: an unresolvable meeting
// or a per-workload platform hiccup degrades that entry, never the
// listing. A platform failure on the listing itself yields an empty
// result, not an error, so callers cannot distinguish "no bots" from
// "listing failed" without the logs.
func (m *Manager) ListRunningBots(ctx context.Context, userID int) ([]*types.BotStatus, error) {
	workloads, err := m.orch.ListWorkloads(ctx, map[string]string{
		types.LabelUserID:     strconv.Itoa(userID),
		types.LabelBotService: "true",
	})
	if err != nil {
		m.logger.Error().Err(err).Int("user_id", userID).Msg("failed to list bot workloads")
		return []*types.BotStatus{}, nil
	}

	m.logger.Debug().Int("user_id", userID).Int("count", len(workloads)).Msg("listing bot workloads")
	metrics.RunningBots.Set(float64(len(workloads)))

	statuses := make([]*types.BotStatus, 0, len(workloads))
	for _, workload := range workloads {
		meetingIDStr := workload.Labels[types.LabelMeetingID]

		status := &types.BotStatus{
			WorkloadID:   workload.ID,
			WorkloadName: workload.Name,
			ConnectionID: workload.Labels[types.LabelConnectionID],
			MeetingID:    meetingIDStr,
			Status:       m.deriveStatus(ctx, workload.ID),
			CreatedAt:    normalizeCreatedAt(workload.CreatedAt),
			Labels:       workload.Labels,
		}

		if meetingIDStr != "" {
			if meetingID, err := strconv.Atoi(meetingIDStr); err != nil {
				m.logger.Warn().Str("meeting_id", meetingIDStr).Str("workload", workload.Name).Msg("could not parse meeting id for enrichment")
			} else if meeting, err := m.store.GetMeeting(ctx, meetingID); err != nil {
				m.logger.Warn().Err(err).Int("meeting_id", meetingID).Str("workload", workload.Name).Msg("no meeting found for workload")
			} else {
				status.Platform = meeting.Platform
				status.NativeMeetingID = meeting.PlatformSpecificID
			}
		}

		statuses = append(statuses, status)
	}

	return statuses, nil
}

// deriveStatus renders a human-readable status from a workload's execution
// units: a running unit wins, then the most recent unit in any state, then
// the no-units marker.
func (m *Manager) deriveStatus(ctx context.Context, workloadID string) string {
	running, err := m.orch.ListExecutionUnits(ctx, orchestrator.ExecutionUnitFilter{
		WorkloadID: workloadID,
		Running:    true,
	})
	if err != nil {
		m.logger.Warn().Err(err).Str("workload", workloadID).Msg("failed to list execution units")
		return "unknown"
	}

	if len(running) > 0 {
		unit := running[0]
		var b strings.Builder
		b.WriteString(string(unit.State))
		if unit.Message != "" && unit.Message != "started" {
			b.WriteString(" (" + unit.Message + ")")
		}
		if unit.Error != "" {
			b.WriteString(" Error: " + unit.Error)
		}
		return b.String()
	}

	all, err := m.orch.ListExecutionUnits(ctx, orchestrator.ExecutionUnitFilter{WorkloadID: workloadID})
	if err != nil {
		m.logger.Warn().Err(err).Str("workload", workloadID).Msg("failed to list execution units")
		return "unknown"
	}
	if len(all) == 0 {
		return noUnitsStatus
	}

	latest := all[0]
	for _, unit := range all[1:] {
		if unit.CreatedAt.After(latest.CreatedAt) {
			latest = unit
		}
	}
	return "Task state: " + string(latest.State)
}

// normalizeCreatedAt parses a platform creation timestamp into RFC3339,
// tolerating irregular fractional-second precision (some backends report
// more digits than nanoseconds). Unparsable input yields an empty string.
func normalizeCreatedAt(ts string) string {
	if ts == "" {
		return ""
	}

	// Truncate over-long fractions to nanosecond precision before
	// parsing.
	if dot := strings.IndexByte(ts, '.'); dot != -1 {
		end := dot + 1
		for end < len(ts) && ts[end] >= '0' && ts[end] <= '9' {
			end++
		}
		if end-dot-1 > 9 {
			ts = ts[:dot+10] + ts[end:]
		}
	}

	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
