package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/AzielCF/az-juris/domains/chat"
	"github.com/AzielCF/az-juris/pkg/utils"
)

// Normalized event names.
const (
	EventMessagesUpsert   = "messages.upsert"
	EventMessagesUpdate   = "messages.update"
	EventConnectionUpdate = "connection.update"
	EventQRCodeUpdated    = "qrcode.updated"
)

// NormalizeEvent folds "MESSAGES_UPSERT" and "messages.upsert" together.
func NormalizeEvent(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", ".")
}

// Event is the envelope every gateway delivery arrives in.
type Event struct {
	Event    string          `json:"event"`
	Instance string          `json:"instance"`
	Data     json.RawMessage `json:"data"`
	DateTime string          `json:"date_time,omitempty"`
}

// Outcome summarizes what the pipeline did with one delivery.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeDropped   Outcome = "dropped"
	OutcomeFailed    Outcome = "failed"
)

type MessageKey struct {
	RemoteJID   string `json:"remoteJid"`
	FromMe      bool   `json:"fromMe"`
	ID          string `json:"id"`
	Participant string `json:"participant,omitempty"`
}

type MediaPayload struct {
	URL      string `json:"url"`
	Caption  string `json:"caption"`
	FileName string `json:"fileName"`
	Title    string `json:"title"`
	Mimetype string `json:"mimetype"`
}

type ExtendedTextPayload struct {
	Text string `json:"text"`
}

// MessagePayload is the subset of the WhatsApp message union the store
// understands. Exactly one variant is normally set.
type MessagePayload struct {
	Conversation               string               `json:"conversation"`
	ExtendedTextMessage        *ExtendedTextPayload `json:"extendedTextMessage"`
	ImageMessage               *MediaPayload        `json:"imageMessage"`
	VideoMessage               *MediaPayload        `json:"videoMessage"`
	AudioMessage               *MediaPayload        `json:"audioMessage"`
	DocumentMessage            *MediaPayload        `json:"documentMessage"`
	DocumentWithCaptionMessage *struct {
		Message *MessagePayload `json:"message"`
	} `json:"documentWithCaptionMessage"`
	MediaURL string `json:"mediaUrl"`
}

type MessageUpsertData struct {
	Key              MessageKey      `json:"key"`
	PushName         string          `json:"pushName"`
	Message          *MessagePayload `json:"message"`
	MessageType      string          `json:"messageType"`
	MessageTimestamp utils.FlexInt   `json:"messageTimestamp"`
	Status           string          `json:"status"`
}

type MessageUpdateData struct {
	KeyID     string      `json:"keyId"`
	MessageID string      `json:"messageId"`
	Key       *MessageKey `json:"key"`
	RemoteJID string      `json:"remoteJid"`
	Status    string      `json:"status"`
}

// GatewayMessageID picks the WhatsApp id; messageId is the gateway's own
// row id on some versions and is only a last resort.
func (d MessageUpdateData) GatewayMessageID() string {
	switch {
	case d.KeyID != "":
		return d.KeyID
	case d.Key != nil && d.Key.ID != "":
		return d.Key.ID
	default:
		return d.MessageID
	}
}

type ConnectionUpdateData struct {
	State             string `json:"state"`
	StatusReason      int    `json:"statusReason"`
	Wuid              string `json:"wuid"`
	Number            string `json:"number"`
	ProfileName       string `json:"profileName"`
	ProfilePictureURL string `json:"profilePictureUrl"`
}

// PhoneNumber prefers the explicit number, else the user part of wuid.
func (d ConnectionUpdateData) PhoneNumber() string {
	if d.Number != "" {
		return utils.DigitsOnly(d.Number)
	}
	if d.Wuid == "" {
		return ""
	}
	if contact, ok := utils.ParseRemoteJID(d.Wuid); ok {
		return contact.User
	}
	return ""
}

type QRCodeData struct {
	QRCode struct {
		Code        string  `json:"code"`
		Base64      string  `json:"base64"`
		PairingCode *string `json:"pairingCode"`
	} `json:"qrcode"`
}

// DecodeList accepts either a single object or an array of objects.
func DecodeList[T any](raw json.RawMessage) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		return items, nil
	}
	var item T
	if err := json.Unmarshal(trimmed, &item); err != nil {
		return nil, err
	}
	return []T{item}, nil
}

// Content extracts the displayable body: text, then extended text, then a
// media caption, then a placeholder label. Unknown shapes yield KindUnknown.
func (p *MessagePayload) Content() chat.Content {
	if p == nil {
		return chat.Content{Kind: chat.KindUnknown}
	}
	if text := strings.TrimSpace(p.Conversation); text != "" {
		return chat.Content{Kind: chat.KindText, Text: p.Conversation}
	}
	if p.ExtendedTextMessage != nil && strings.TrimSpace(p.ExtendedTextMessage.Text) != "" {
		return chat.Content{Kind: chat.KindText, Text: p.ExtendedTextMessage.Text}
	}

	media, kind := p.media()
	if media == nil {
		return chat.Content{Kind: chat.KindUnknown}
	}

	c := chat.Content{
		Kind:     kind,
		MediaURL: firstNonEmpty(p.MediaURL, media.URL),
		FileName: firstNonEmpty(media.FileName, media.Title),
		Caption:  strings.TrimSpace(media.Caption),
		MimeType: media.Mimetype,
	}
	switch {
	case c.Caption != "":
		c.Text = c.Caption
	case kind == chat.KindImage:
		c.Text = "[Image]"
	case kind == chat.KindVideo:
		c.Text = "[Video]"
	case kind == chat.KindAudio:
		c.Text = "[Audio]"
	case c.FileName != "":
		c.Text = "[Document] " + c.FileName
	default:
		c.Text = "[Document]"
	}
	return c
}

func (p *MessagePayload) media() (*MediaPayload, chat.Kind) {
	switch {
	case p.ImageMessage != nil:
		return p.ImageMessage, chat.KindImage
	case p.VideoMessage != nil:
		return p.VideoMessage, chat.KindVideo
	case p.AudioMessage != nil:
		return p.AudioMessage, chat.KindAudio
	case p.DocumentMessage != nil:
		return p.DocumentMessage, chat.KindDocument
	case p.DocumentWithCaptionMessage != nil && p.DocumentWithCaptionMessage.Message != nil &&
		p.DocumentWithCaptionMessage.Message.DocumentMessage != nil:
		return p.DocumentWithCaptionMessage.Message.DocumentMessage, chat.KindDocument
	}
	return nil, chat.KindUnknown
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// IWebhookUsecase processes one gateway delivery for a tenant. Failures
// inside handlers are logged and reported through the Outcome.
type IWebhookUsecase interface {
	Handle(ctx context.Context, tenantID string, event Event) Outcome
}
