package utils

import (
	"strings"

	"go.mau.fi/whatsmeow/types"
)

// RemoteContact is a parsed remote JID as delivered by the gateway.
type RemoteContact struct {
	JID         string
	User        string
	IsGroup     bool
	IsBroadcast bool
}

// ParseRemoteJID normalizes a JID, dropping any device suffix. Bare phone
// numbers are treated as user JIDs.
func ParseRemoteJID(raw string) (RemoteContact, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return RemoteContact{}, false
	}
	if !strings.Contains(raw, "@") {
		digits := DigitsOnly(raw)
		if digits == "" {
			return RemoteContact{}, false
		}
		raw = digits + "@" + types.DefaultUserServer
	}

	jid, err := types.ParseJID(raw)
	if err != nil || (jid.User == "" && jid.Server != types.BroadcastServer) {
		return RemoteContact{}, false
	}
	jid = jid.ToNonAD()

	return RemoteContact{
		JID:         jid.String(),
		User:        jid.User,
		IsGroup:     jid.Server == types.GroupServer,
		IsBroadcast: jid.Server == types.BroadcastServer || jid.Server == types.NewsletterServer,
	}, true
}

// UserJID builds a personal chat JID from a phone number.
func UserJID(phone string) string {
	return types.NewJID(DigitsOnly(phone), types.DefaultUserServer).String()
}
