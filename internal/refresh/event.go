package refresh

import (
	"encoding/json"

	"github.com/brightreach/campaign-refresh/internal/models"
)

type EventKind int

const (
	EventProgress EventKind = iota
	EventComplete
	EventError
)

// Event is one element of the progress stream: many progress events, then
// exactly one complete or error event before the channel closes.
type Event struct {
	Kind     EventKind
	Progress models.CampaignProgress
	Summary  *models.BatchSummary
	Message  string
}

func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case EventComplete:
		return json.Marshal(struct {
			Type    string               `json:"type"`
			Summary *models.BatchSummary `json:"summary"`
		}{Type: "complete", Summary: e.Summary})
	case EventError:
		return json.Marshal(struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		}{Type: "error", Message: e.Message})
	default:
		return json.Marshal(e.Progress)
	}
}
