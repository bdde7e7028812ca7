// Package platform parses inbound webhook payloads into a common event
// shape and runs them through the moderation, rate limiting, and
// persistence pipeline.
package platform

import (
	"errors"
	"fmt"

	"relaybot/internal/model"
)

// ErrUnknownEvent is returned when a webhook payload does not match any
// recognized event shape.
var ErrUnknownEvent = errors.New("unrecognized event payload")

// Event is one inbound user action, normalized across platforms. Exactly
// the fields for its Type are set: Text for messages and reactions,
// Command and Args for commands, Payload for postbacks.
type Event struct {
	Platform model.Platform
	UserID   string
	ChatID   string
	Type     model.InteractionType
	Text     string
	Command  string
	Args     []string
	Payload  string
}

// Validate rejects events that the pipeline cannot process.
func (e *Event) Validate() error {
	if !e.Platform.Valid() {
		return fmt.Errorf("%w: platform %q", ErrUnknownEvent, e.Platform)
	}
	if e.UserID == "" {
		return fmt.Errorf("%w: missing user id", ErrUnknownEvent)
	}
	switch e.Type {
	case model.TypeMessage, model.TypeCommand, model.TypeReaction, model.TypePostback:
		return nil
	}
	return fmt.Errorf("%w: type %q", ErrUnknownEvent, e.Type)
}

// Reply is the pipeline's answer to an event. Rejected replies are sent
// back to the user but the event is not persisted.
type Reply struct {
	Text     string
	Rejected bool
}
