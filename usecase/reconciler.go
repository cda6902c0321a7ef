package usecase

import (
	"context"
	"time"

	domainGateway "github.com/AzielCF/az-juris/domains/gateway"
	domainInstance "github.com/AzielCF/az-juris/domains/instance"
	domainNotify "github.com/AzielCF/az-juris/domains/notify"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const defaultReconcileConcurrency = 4

type reconcilerService struct {
	repo        domainInstance.IInstanceRepository
	gateway     domainGateway.IGatewayClient
	notifier    domainNotify.INotifier
	interval    time.Duration
	concurrency int
}

func NewReconcilerService(
	repo domainInstance.IInstanceRepository,
	gateway domainGateway.IGatewayClient,
	notifier domainNotify.INotifier,
	interval time.Duration,
	concurrency int,
) domainInstance.IReconcilerUsecase {
	if notifier == nil {
		notifier = domainNotify.Multi()
	}
	if concurrency <= 0 {
		concurrency = defaultReconcileConcurrency
	}
	return &reconcilerService{
		repo:        repo,
		gateway:     gateway,
		notifier:    notifier,
		interval:    interval,
		concurrency: concurrency,
	}
}

// ReconcileInstance compares inst with the gateway and writes only on drift.
// On error the given copy is returned unchanged alongside the error.
func (s *reconcilerService) ReconcileInstance(ctx context.Context, inst domainInstance.Instance) (domainInstance.Instance, error) {
	gatewayState, err := s.gateway.ConnectionState(ctx, inst.TenantID, inst.Name)
	if err != nil {
		if !domainGateway.IsNotFound(err) {
			logrus.WithError(err).Warnf("[RECONCILER] state query failed for %s/%s", inst.TenantID, inst.Name)
			return inst, err
		}
		gatewayState = ""
	}

	if gatewayState == domainInstance.GatewayStateConnecting && inst.State.IsPairing() {
		return inst, nil
	}

	change := domainInstance.StateChange{State: domainInstance.MapGatewayState(gatewayState)}
	if change.State == domainInstance.StateConnected && needsProfile(inst) {
		info, err := s.gateway.FetchInstance(ctx, inst.TenantID, inst.Name)
		if err != nil {
			logrus.WithError(err).Debugf("[RECONCILER] profile fetch failed for %s/%s", inst.TenantID, inst.Name)
		} else {
			change.Profile = domainInstance.Profile{
				Name:       info.ProfileName,
				Number:     info.Number,
				PictureURL: info.ProfilePictureURL,
			}
		}
	}

	if !change.DiffersFrom(inst) {
		return inst, nil
	}

	updated, err := s.repo.ApplyStateChange(ctx, inst.TenantID, inst.Name, change)
	if err != nil {
		logrus.WithError(err).Errorf("[RECONCILER] failed to write state for %s/%s", inst.TenantID, inst.Name)
		return inst, err
	}
	if updated.State != inst.State {
		logrus.Infof("[RECONCILER] %s/%s drifted: %s -> %s", inst.TenantID, inst.Name, inst.State, updated.State)
	}
	s.notifier.InstanceChanged(ctx, updated)
	return updated, nil
}

func needsProfile(inst domainInstance.Instance) bool {
	return inst.State != domainInstance.StateConnected || inst.Number == "" || inst.ProfileName == ""
}

// ReconcileTenant reconciles the tenant's active instances, or only those
// named. Per-instance failures are logged and leave the stored copy.
func (s *reconcilerService) ReconcileTenant(ctx context.Context, tenantID string, names ...string) ([]domainInstance.Instance, error) {
	tenantID, err := requireTenant(tenantID)
	if err != nil {
		return nil, err
	}
	instances, err := s.repo.List(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if len(names) > 0 {
		wanted := make(map[string]struct{}, len(names))
		for _, name := range names {
			wanted[name] = struct{}{}
		}
		filtered := instances[:0]
		for _, inst := range instances {
			if _, ok := wanted[inst.Name]; ok {
				filtered = append(filtered, inst)
			}
		}
		instances = filtered
	}

	return s.reconcileAll(ctx, instances)
}

// Sweep reconciles every active instance across all tenants.
func (s *reconcilerService) Sweep(ctx context.Context) error {
	instances, err := s.repo.ListAllActive(ctx)
	if err != nil {
		return err
	}
	started := time.Now()
	if _, err := s.reconcileAll(ctx, instances); err != nil {
		return err
	}
	logrus.Debugf("[RECONCILER] swept %d instances in %s", len(instances), time.Since(started))
	return nil
}

func (s *reconcilerService) reconcileAll(ctx context.Context, instances []domainInstance.Instance) ([]domainInstance.Instance, error) {
	results := make([]domainInstance.Instance, len(instances))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, inst := range instances {
		g.Go(func() error {
			results[i], _ = s.ReconcileInstance(ctx, inst)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, ctx.Err()
}

// Start runs a sweep immediately and then every interval until ctx is done.
// It returns at once; a non-positive interval disables the loop.
func (s *reconcilerService) Start(ctx context.Context) {
	if s.interval <= 0 {
		logrus.Info("[RECONCILER] periodic sweep disabled")
		return
	}

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		logrus.Infof("[RECONCILER] sweeping every %s", s.interval)
		for {
			if err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
				logrus.WithError(err).Error("[RECONCILER] sweep failed")
			}
			select {
			case <-ctx.Done():
				logrus.Info("[RECONCILER] stopped")
				return
			case <-ticker.C:
			}
		}
	}()
}
