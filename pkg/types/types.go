package types

import (
	"time"
)

// Label keys applied to every bot workload. The orchestration platform is
// the source of truth for running bots; these labels are how we find ours.
const (
	LabelUserID       = "vexa.user_id"
	LabelMeetingID    = "vexa.meeting_id"
	LabelConnectionID = "vexa.connection_id"
	LabelBotService   = "vexa.bot_service"
)

// User is the owner of bot workloads. MaxConcurrentBots is the admission
// quota; a nil value means the row was provisioned without a limit, which
// the admission controller treats as a configuration error.
type User struct {
	ID                int       `json:"id"`
	MaxConcurrentBots *int      `json:"max_concurrent_bots"`
	CreatedAt         time.Time `json:"created_at"`
}

// Platform identifies the external meeting provider.
type Platform string

const (
	PlatformGoogleMeet Platform = "google_meet"
	PlatformZoom       Platform = "zoom"
	PlatformTeams      Platform = "teams"
)

// Meeting is owned by the booking subsystem; this module only reads it to
// enrich bot status with provider details.
type Meeting struct {
	ID                 int       `json:"id"`
	Platform           Platform  `json:"platform"`
	PlatformSpecificID string    `json:"platform_specific_id"`
	CreatedAt          time.Time `json:"created_at"`
}

// Session correlates a meeting with one bot connection. It is recorded
// best-effort after workload creation and is not transactionally tied to it.
type Session struct {
	MeetingID    int       `json:"meeting_id"`
	ConnectionID string    `json:"connection_id"`
	Status       string    `json:"status"`
	StartedAt    time.Time `json:"started_at"`
}

// RestartPolicy bounds how the platform restarts a failed bot.
type RestartPolicy struct {
	Condition   RestartCondition
	Delay       time.Duration
	MaxAttempts int
	Window      time.Duration
}

// RestartCondition defines when to restart
type RestartCondition string

const (
	RestartNever     RestartCondition = "never"
	RestartOnFailure RestartCondition = "on-failure"
	RestartAlways    RestartCondition = "always"
)

// NetworkAttachment places the workload on one overlay network under an
// alias. The alias shares a namespace with every other alias on the
// network, so callers must keep it unique.
type NetworkAttachment struct {
	Target  string
	Aliases []string
}

// WorkloadSpec is the declarative description submitted to the platform.
type WorkloadSpec struct {
	Name          string
	Image         string
	Env           []string
	Labels        map[string]string
	RestartPolicy *RestartPolicy
	Replicas      int
	Networks      []*NetworkAttachment
}

// Workload is one bot instance as reported by the platform. CreatedAt is
// kept in the platform's own string form; fractional-second precision
// varies by backend and is normalized only at presentation time.
type Workload struct {
	ID        string
	Name      string
	Labels    map[string]string
	CreatedAt string
}

// ExecState represents the state of an execution unit
type ExecState string

const (
	ExecStatePending  ExecState = "pending"
	ExecStateRunning  ExecState = "running"
	ExecStateComplete ExecState = "complete"
	ExecStateFailed   ExecState = "failed"
	ExecStateShutdown ExecState = "shutdown"
)

// ExecutionUnit is a single scheduled instance of a workload's process.
type ExecutionUnit struct {
	ID         string
	WorkloadID string
	State      ExecState
	Message    string
	Error      string
	CreatedAt  time.Time
}

// BotStatus is one entry of the per-user running-bots listing. Platform and
// NativeMeetingID come from the persistence layer and stay empty when the
// meeting cannot be resolved.
type BotStatus struct {
	WorkloadID      string            `json:"service_id"`
	WorkloadName    string            `json:"service_name"`
	ConnectionID    string            `json:"connection_id"`
	MeetingID       string            `json:"meeting_id"`
	Platform        Platform          `json:"platform,omitempty"`
	NativeMeetingID string            `json:"native_meeting_id,omitempty"`
	Status          string            `json:"status"`
	CreatedAt       string            `json:"created_at,omitempty"`
	Labels          map[string]string `json:"labels"`
}
