package platform

import (
	"fmt"

	"relaybot/internal/model"
)

// VerifyMetaSubscription implements the webhook verification handshake:
// on a subscribe request with the expected token, the challenge is echoed
// back.
func VerifyMetaSubscription(mode, token, challenge, expected string) (string, bool) {
	if mode == "subscribe" && expected != "" && token == expected {
		return challenge, true
	}
	return "", false
}

// metaPayload is the envelope shared by the whatsapp, facebook, and
// instagram webhook feeds. The object field selects the platform.
type metaPayload struct {
	Object string      `json:"object"`
	Entry  []metaEntry `json:"entry"`
}

type metaEntry struct {
	Messaging []metaMessaging `json:"messaging"`
	Changes   []metaChange    `json:"changes"`
}

// metaMessaging is the page/instagram messaging event shape.
type metaMessaging struct {
	Sender   metaID        `json:"sender"`
	Message  *metaMessage  `json:"message"`
	Postback *metaPostback `json:"postback"`
}

type metaID struct {
	ID string `json:"id"`
}

type metaMessage struct {
	Text string `json:"text"`
}

type metaPostback struct {
	Payload string `json:"payload"`
}

// metaChange is the whatsapp business account change shape.
type metaChange struct {
	Value metaChangeValue `json:"value"`
}

type metaChangeValue struct {
	Messages []metaWhatsAppMessage `json:"messages"`
}

type metaWhatsAppMessage struct {
	From   string      `json:"from"`
	Type   string      `json:"type"`
	Text   *metaText   `json:"text"`
	Button *metaButton `json:"button"`
}

type metaText struct {
	Body string `json:"body"`
}

type metaButton struct {
	Payload string `json:"payload"`
}

func metaPlatform(object string) (model.Platform, error) {
	switch object {
	case "whatsapp_business_account":
		return model.PlatformWhatsApp, nil
	case "page":
		return model.PlatformFacebook, nil
	case "instagram":
		return model.PlatformInstagram, nil
	}
	return "", fmt.Errorf("%w: meta object %q", ErrUnknownEvent, object)
}

// parseMetaPayload flattens a webhook delivery into events. Entries with
// no recognizable message are skipped rather than failing the delivery;
// an unknown object type fails it.
func parseMetaPayload(p *metaPayload) ([]Event, error) {
	platform, err := metaPlatform(p.Object)
	if err != nil {
		return nil, err
	}

	var events []Event
	for _, entry := range p.Entry {
		for _, m := range entry.Messaging {
			ev := Event{Platform: platform, UserID: m.Sender.ID}
			switch {
			case m.Postback != nil:
				ev.Type = model.TypePostback
				ev.Payload = m.Postback.Payload
			case m.Message != nil:
				ev.Type = model.TypeMessage
				ev.Text = m.Message.Text
			default:
				continue
			}
			if err := ev.Validate(); err != nil {
				continue
			}
			events = append(events, ev)
		}
		for _, ch := range entry.Changes {
			for _, m := range ch.Value.Messages {
				ev := Event{Platform: platform, UserID: m.From}
				switch {
				case m.Button != nil:
					ev.Type = model.TypePostback
					ev.Payload = m.Button.Payload
				case m.Text != nil:
					ev.Type = model.TypeMessage
					ev.Text = m.Text.Body
				default:
					continue
				}
				if err := ev.Validate(); err != nil {
					continue
				}
				events = append(events, ev)
			}
		}
	}
	return events, nil
}
