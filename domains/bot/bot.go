package bot

import (
	"context"
	"time"

	"github.com/AzielCF/az-juris/domains/chat"
)

// MenuOption maps a keyword to a canned reply. Options nest: a sub-option
// is matched like any other keyword.
type MenuOption struct {
	Keyword  string       `json:"keyword"`
	Response string       `json:"response"`
	Options  []MenuOption `json:"options,omitempty"`
}

// BusinessHours is a Monday to Friday window in an IANA timezone.
type BusinessHours struct {
	Start          string `json:"start"`
	End            string `json:"end"`
	Timezone       string `json:"timezone"`
	OfflineMessage string `json:"offline_message"`
}

// Config drives the auto-responder for one instance.
type Config struct {
	ID              string         `json:"id"`
	TenantID        string         `json:"tenant_id"`
	InstanceID      string         `json:"instance_id"`
	Active          bool           `json:"active"`
	WelcomeMessage  string         `json:"welcome_message"`
	MenuOptions     []MenuOption   `json:"menu_options"`
	FallbackMessage string         `json:"fallback_message"`
	BusinessHours   *BusinessHours `json:"business_hours,omitempty"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

type SaveConfigRequest struct {
	Active          bool           `json:"active"`
	WelcomeMessage  string         `json:"welcome_message"`
	MenuOptions     []MenuOption   `json:"menu_options"`
	FallbackMessage string         `json:"fallback_message"`
	BusinessHours   *BusinessHours `json:"business_hours,omitempty"`
}

// RespondRequest is one newly stored inbound message handed to the responder.
type RespondRequest struct {
	TenantID     string
	InstanceName string
	Chat         chat.Chat
	Message      chat.Message
}

// Rule names which step produced a reply.
type Rule string

const (
	RuleNone     Rule = "none"
	RuleOffline  Rule = "offline"
	RuleMenu     Rule = "menu"
	RuleWelcome  Rule = "welcome"
	RuleBuiltin  Rule = "builtin"
	RuleKeyword  Rule = "keyword"
	RuleDocument Rule = "document"
	RuleFallback Rule = "fallback"
)

type Reply struct {
	Rule Rule   `json:"rule"`
	Text string `json:"text,omitempty"`
	Sent bool   `json:"sent"`
}

type IBotConfigRepository interface {
	GetByInstance(ctx context.Context, tenantID, instanceID string) (Config, error)
	Upsert(ctx context.Context, cfg *Config) error
}

type IBotUsecase interface {
	Get(ctx context.Context, tenantID, instanceName string) (Config, error)
	Save(ctx context.Context, tenantID, instanceName string, request SaveConfigRequest) (Config, error)
}

type IAutoResponder interface {
	Respond(ctx context.Context, request RespondRequest) (Reply, error)
}
