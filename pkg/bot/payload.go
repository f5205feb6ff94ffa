package bot

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vexa-ai/bot-manager/pkg/types"
)

// defaultLeaveTimeoutMs is the default for each automatic-leave timeout.
const defaultLeaveTimeoutMs = 300000

// AutomaticLeave is the idle-timeout policy block of the bot payload. All
// values are milliseconds.
type AutomaticLeave struct {
	WaitingRoomTimeout  int `json:"waitingRoomTimeout"`
	NoOneJoinedTimeout  int `json:"noOneJoinedTimeout"`
	EveryoneLeftTimeout int `json:"everyoneLeftTimeout"`
}

// BotConfig is the JSON configuration payload handed to a spawned bot via
// the BOT_CONFIG environment variable. Optional fields carry omitempty so
// absent values disappear from the serialized form entirely; the bot never
// sees a null.
type BotConfig struct {
	MeetingID       int            `json:"meeting_id"`
	Platform        types.Platform `json:"platform"`
	MeetingURL      string         `json:"meetingUrl,omitempty"`
	BotName         string         `json:"botName"`
	Token           string         `json:"token"`
	NativeMeetingID string         `json:"nativeMeetingId"`
	ConnectionID    string         `json:"connectionId"`
	Language        string         `json:"language,omitempty"`
	Task            string         `json:"task,omitempty"`
	RedisURL        string         `json:"redisUrl"`
	AutomaticLeave  AutomaticLeave `json:"automaticLeave"`
}

// defaultAutomaticLeave returns the idle-timeout policy applied to every
// bot.
func defaultAutomaticLeave() AutomaticLeave {
	return AutomaticLeave{
		WaitingRoomTimeout:  defaultLeaveTimeoutMs,
		NoOneJoinedTimeout:  defaultLeaveTimeoutMs,
		EveryoneLeftTimeout: defaultLeaveTimeoutMs,
	}
}

// buildEnv assembles the workload's environment entries: the serialized
// payload, the transcription backend endpoint, the log level, and the
// connection id as a discrete variable.
func buildEnv(config *BotConfig, whisperLiveURL, logLevel string) ([]string, error) {
	payload, err := json.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize bot config: %w", err)
	}

	return []string{
		"BOT_CONFIG=" + string(payload),
		"WHISPER_LIVE_URL=" + whisperLiveURL,
		"LOG_LEVEL=" + strings.ToUpper(logLevel),
		"CONNECTION_ID=" + config.ConnectionID,
	}, nil
}
