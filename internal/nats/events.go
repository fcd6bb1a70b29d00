package nats

import "time"

// Stream names.
const (
	StreamEvents = "ALCHEMIST_EVENTS"
)

// Subject constants.
const (
	SubjectEvents    = "alchemist.events.>"
	SubjectTurnEvent = "alchemist.events.turn"
)

// TurnEvent is published after every completed conversation turn.
type TurnEvent struct {
	TurnID          string            `json:"turn_id"`
	UserID          string            `json:"user_id"`
	Query           string            `json:"query"`
	Filters         map[string]string `json:"filters"`
	ProductCount    int               `json:"product_count"`
	SuggestionCount int               `json:"suggestion_count"`
	Personalization string            `json:"personalization"`
	DurationMS      int64             `json:"duration_ms"`
	Timestamp       time.Time         `json:"timestamp"`
}
