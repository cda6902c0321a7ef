package chat

import (
	"context"
	"time"
)

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

type Kind string

const (
	KindText     Kind = "text"
	KindImage    Kind = "image"
	KindVideo    Kind = "video"
	KindAudio    Kind = "audio"
	KindDocument Kind = "document"
	KindUnknown  Kind = "unknown"
)

type Status string

const (
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
	StatusError     Status = "error"
)

// Rank orders statuses so updates never move a message backwards.
// error is terminal.
func (s Status) Rank() int {
	switch s {
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusRead:
		return 3
	case StatusError:
		return 4
	default:
		return 0
	}
}

// Advances reports whether moving from current to s is a forward step.
func (s Status) Advances(current Status) bool {
	if current == StatusError {
		return false
	}
	return s.Rank() > current.Rank()
}

// Replaceable lists the stored statuses s may overwrite. Used to make
// status writes conditional in a single UPDATE.
func (s Status) Replaceable() []Status {
	var out []Status
	for _, candidate := range []Status{"", StatusSent, StatusDelivered, StatusRead} {
		if s.Advances(candidate) {
			out = append(out, candidate)
		}
	}
	return out
}

// MapGatewayStatus converts gateway ack names; unknown values map to sent.
func MapGatewayStatus(gatewayStatus string) Status {
	switch gatewayStatus {
	case "ERROR":
		return StatusError
	case "DELIVERY_ACK":
		return StatusDelivered
	case "READ", "PLAYED":
		return StatusRead
	default:
		return StatusSent
	}
}

// Chat is a conversation between one instance and one remote JID.
type Chat struct {
	ID            string     `json:"id"`
	TenantID      string     `json:"tenant_id"`
	InstanceID    string     `json:"instance_id"`
	RemoteJID     string     `json:"remote_jid"`
	DisplayName   string     `json:"display_name,omitempty"`
	CaseID        string     `json:"case_id,omitempty"`
	LastMessage   string     `json:"last_message,omitempty"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	UnreadCount   int        `json:"unread_count"`
	IsGroup       bool       `json:"is_group"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Content is the extracted body of a message. Text always holds something
// displayable: the message text, a caption or a placeholder label.
type Content struct {
	Kind     Kind   `json:"kind"`
	Text     string `json:"text"`
	MediaURL string `json:"media_url,omitempty"`
	FileName string `json:"file_name,omitempty"`
	Caption  string `json:"caption,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
}

type Message struct {
	ID               string    `json:"id"`
	TenantID         string    `json:"tenant_id"`
	ChatID           string    `json:"chat_id"`
	GatewayMessageID string    `json:"gateway_message_id"`
	RemoteJID        string    `json:"remote_jid"`
	Direction        Direction `json:"direction"`
	Content          Content   `json:"content"`
	Status           Status    `json:"status"`
	PushName         string    `json:"push_name,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
	CreatedAt        time.Time `json:"created_at"`
}

// StoreResult tells the caller whether the message row was new.
type StoreResult struct {
	Message  Message
	Inserted bool
}

type ListMessagesRequest struct {
	Limit  int        `json:"limit" query:"limit"`
	Before *time.Time `json:"before,omitempty" query:"before"`
}

const (
	DefaultMessagePageSize = 50
	MaxMessagePageSize     = 500
)

// RecordOutboundRequest stores a message this system sent through the gateway.
type RecordOutboundRequest struct {
	TenantID         string
	InstanceID       string
	RemoteJID        string
	GatewayMessageID string
	Text             string
	Status           Status
	Timestamp        time.Time
}

type IChatRepository interface {
	UpsertChat(ctx context.Context, chat Chat) (Chat, error)
	GetChat(ctx context.Context, tenantID, chatID string) (Chat, error)
	LinkCase(ctx context.Context, chatID, caseID string) error
	AppendOrUpdateMessage(ctx context.Context, msg Message) (StoreResult, error)
	ApplyStatus(ctx context.Context, tenantID, gatewayMessageID string, status Status) (bool, error)
	ListChats(ctx context.Context, tenantID, instanceID string) ([]Chat, error)
	ListMessages(ctx context.Context, tenantID, chatID string, limit int, before *time.Time) ([]Message, error)
	MarkRead(ctx context.Context, tenantID, chatID string) error
}

type IChatUsecase interface {
	UpsertChat(ctx context.Context, chat Chat) (Chat, error)
	AppendOrUpdateMessage(ctx context.Context, chat Chat, msg Message) (StoreResult, error)
	ApplyStatus(ctx context.Context, tenantID, gatewayMessageID string, status Status) (bool, error)
	RecordOutbound(ctx context.Context, request RecordOutboundRequest) (StoreResult, error)
	GetChat(ctx context.Context, tenantID, chatID string) (Chat, error)
	ListChats(ctx context.Context, tenantID, instanceName string) ([]Chat, error)
	ListMessages(ctx context.Context, tenantID, chatID string, request ListMessagesRequest) ([]Message, error)
	MarkRead(ctx context.Context, tenantID, chatID string) error
}

// SendMessageRequest is an operator-initiated text message. Phone may be a
// bare number or a full JID.
type SendMessageRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

type ISendUsecase interface {
	SendText(ctx context.Context, tenantID, instanceName string, request SendMessageRequest) (Message, error)
}
