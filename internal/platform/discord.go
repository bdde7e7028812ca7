package platform

import (
	"fmt"

	"relaybot/internal/model"
)

// Discord interaction wire constants.
const (
	discordInteractionPing      = 1
	discordInteractionCommand   = 2
	discordInteractionComponent = 3

	discordResponsePong    = 1
	discordResponseMessage = 4
)

// discordInteraction is the subset of the interaction payload the adapter
// reads.
type discordInteraction struct {
	Type      int            `json:"type"`
	ChannelID string         `json:"channel_id"`
	Data      discordData    `json:"data"`
	Member    *discordMember `json:"member"`
	User      *discordUser   `json:"user"`
}

type discordData struct {
	Name     string          `json:"name"`
	CustomID string          `json:"custom_id"`
	Options  []discordOption `json:"options"`
}

type discordOption struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

type discordMember struct {
	User discordUser `json:"user"`
}

type discordUser struct {
	ID string `json:"id"`
}

// discordResponse is the synchronous interaction response body.
type discordResponse struct {
	Type int                  `json:"type"`
	Data *discordResponseData `json:"data,omitempty"`
}

type discordResponseData struct {
	Content string `json:"content"`
}

func (i *discordInteraction) userID() string {
	if i.Member != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

// parseDiscordInteraction maps a non-ping interaction to an Event.
func parseDiscordInteraction(i *discordInteraction) (Event, error) {
	ev := Event{
		Platform: model.PlatformDiscord,
		UserID:   i.userID(),
		ChatID:   i.ChannelID,
	}

	switch i.Type {
	case discordInteractionCommand:
		ev.Type = model.TypeCommand
		ev.Command = i.Data.Name
		for _, opt := range i.Data.Options {
			ev.Args = append(ev.Args, fmt.Sprintf("%v", opt.Value))
		}
	case discordInteractionComponent:
		ev.Type = model.TypePostback
		ev.Payload = i.Data.CustomID
	default:
		return Event{}, fmt.Errorf("%w: discord interaction type %d", ErrUnknownEvent, i.Type)
	}

	if err := ev.Validate(); err != nil {
		return Event{}, err
	}
	return ev, nil
}
