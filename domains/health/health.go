package health

import (
	"context"
	"time"
)

type Status string

const (
	StatusOk    Status = "OK"
	StatusError Status = "ERROR"
)

// Probe checks one dependency. A nil error means healthy.
type Probe func(ctx context.Context) error

type ComponentStatus struct {
	Name      string `json:"name"`
	Status    Status `json:"status"`
	Message   string `json:"message,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

type Report struct {
	Status     Status            `json:"status"`
	Components []ComponentStatus `json:"components"`
	CheckedAt  time.Time         `json:"checked_at"`
	Uptime     string            `json:"uptime"`
	Extra      map[string]any    `json:"extra,omitempty"`
}

type IHealthUsecase interface {
	Check(ctx context.Context) Report
}
