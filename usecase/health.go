package usecase

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/AzielCF/az-juris/domains/health"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

const probeTimeout = 3 * time.Second

type healthService struct {
	probes  map[string]health.Probe
	extras  map[string]func() any
	started time.Time
}

// NewHealthService runs the given probes on every check. extras are
// attached verbatim to the report, e.g. worker pool stats.
func NewHealthService(probes map[string]health.Probe, extras map[string]func() any) health.IHealthUsecase {
	return &healthService{probes: probes, extras: extras, started: time.Now()}
}

func (s *healthService) Check(ctx context.Context) health.Report {
	names := make([]string, 0, len(s.probes))
	for name := range s.probes {
		names = append(names, name)
	}
	sort.Strings(names)

	report := health.Report{
		Status:     health.StatusOk,
		Components: make([]health.ComponentStatus, 0, len(names)),
		CheckedAt:  time.Now().UTC(),
		Uptime:     strings.TrimSpace(humanize.RelTime(s.started, time.Now(), "", "")),
	}

	for _, name := range names {
		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		started := time.Now()
		err := s.probes[name](probeCtx)
		cancel()

		component := health.ComponentStatus{
			Name:      name,
			Status:    health.StatusOk,
			LatencyMS: time.Since(started).Milliseconds(),
		}
		if err != nil {
			component.Status = health.StatusError
			component.Message = err.Error()
			report.Status = health.StatusError
			logrus.WithError(err).Warnf("[HEALTH] %s probe failed", name)
		}
		report.Components = append(report.Components, component)
	}

	if len(s.extras) > 0 {
		report.Extra = make(map[string]any, len(s.extras))
		for name, fn := range s.extras {
			report.Extra[name] = fn()
		}
	}
	return report
}
