package rest

import (
	"time"

	domainInstance "github.com/AzielCF/az-juris/domains/instance"
	pkgError "github.com/AzielCF/az-juris/pkg/error"
	"github.com/AzielCF/az-juris/pkg/utils"
	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v2"
)

// InstanceResponse is the UI view of an instance.
type InstanceResponse struct {
	domainInstance.Instance
	LastSeen   string `json:"last_seen,omitempty"`
	UpdatedAgo string `json:"updated_ago,omitempty"`
}

func toInstanceResponse(inst domainInstance.Instance) InstanceResponse {
	res := InstanceResponse{Instance: inst}
	if inst.LastSeenAt != nil {
		res.LastSeen = humanize.Time(*inst.LastSeenAt)
	}
	if !inst.UpdatedAt.IsZero() {
		res.UpdatedAgo = humanize.Time(inst.UpdatedAt)
	}
	return res
}

func toInstanceResponses(instances []domainInstance.Instance) []InstanceResponse {
	out := make([]InstanceResponse, 0, len(instances))
	for _, inst := range instances {
		out = append(out, toInstanceResponse(inst))
	}
	return out
}

// parseBefore accepts RFC 3339 or unix seconds.
func parseBefore(raw string) (*time.Time, bool) {
	if raw == "" {
		return nil, true
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return &t, true
	}
	var secs int64
	for _, r := range raw {
		if r < '0' || r > '9' {
			return nil, false
		}
		secs = secs*10 + int64(r-'0')
	}
	t := time.Unix(secs, 0).UTC()
	return &t, true
}

// parseBody decodes the request body or fails the request with a 400.
func parseBody(c *fiber.Ctx, out any) {
	if err := c.BodyParser(out); err != nil {
		utils.PanicIfNeeded(pkgError.ValidationError("invalid request body: " + err.Error()))
	}
}
