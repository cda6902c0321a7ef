package usecase

import (
	"context"
	"errors"
	"strings"

	domainGateway "github.com/AzielCF/az-juris/domains/gateway"
	domainInstance "github.com/AzielCF/az-juris/domains/instance"
	domainNotify "github.com/AzielCF/az-juris/domains/notify"
	pkgError "github.com/AzielCF/az-juris/pkg/error"
	"github.com/AzielCF/az-juris/validations"
	"github.com/sirupsen/logrus"
)

type instanceService struct {
	repo       domainInstance.IInstanceRepository
	gateway    domainGateway.IGatewayClient
	reconciler domainInstance.IReconcilerUsecase
	notifier   domainNotify.INotifier
	webhookURL func(tenantID string) string
}

// NewInstanceService builds the instance registry service. webhookURL
// returns the public webhook address for a tenant, or "" when this server
// is not reachable from the gateway.
func NewInstanceService(
	repo domainInstance.IInstanceRepository,
	gateway domainGateway.IGatewayClient,
	reconciler domainInstance.IReconcilerUsecase,
	notifier domainNotify.INotifier,
	webhookURL func(tenantID string) string,
) domainInstance.IInstanceUsecase {
	if notifier == nil {
		notifier = domainNotify.Multi()
	}
	if webhookURL == nil {
		webhookURL = func(string) string { return "" }
	}
	return &instanceService{
		repo:       repo,
		gateway:    gateway,
		reconciler: reconciler,
		notifier:   notifier,
		webhookURL: webhookURL,
	}
}

func requireTenant(tenantID string) (string, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return "", domainInstance.ErrTenantRequired
	}
	return tenantID, nil
}

func (s *instanceService) Create(ctx context.Context, tenantID string, request domainInstance.CreateInstanceRequest) (domainInstance.Instance, error) {
	tenantID, err := requireTenant(tenantID)
	if err != nil {
		return domainInstance.Instance{}, err
	}
	request.Name = strings.TrimSpace(request.Name)
	if err := validations.ValidateCreateInstance(ctx, request); err != nil {
		return domainInstance.Instance{}, err
	}

	_, err = s.repo.GetByName(ctx, tenantID, request.Name)
	switch {
	case err == nil:
		return domainInstance.Instance{}, domainInstance.ErrInstanceConflict
	case !errors.Is(err, domainInstance.ErrInstanceNotFound):
		return domainInstance.Instance{}, err
	}

	var hook *domainGateway.WebhookSettings
	if url := s.webhookURL(tenantID); url != "" && (request.ConfigureWebhook == nil || *request.ConfigureWebhook) {
		hook = &domainGateway.WebhookSettings{URL: url, Enabled: true}
	}

	if _, err := s.gateway.CreateInstance(ctx, tenantID, request.Name, hook); err != nil {
		logrus.WithError(err).Warnf("[INSTANCE] gateway create failed for %s/%s", tenantID, request.Name)
		return domainInstance.Instance{}, err
	}

	inst := domainInstance.Instance{
		TenantID:          tenantID,
		Name:              request.Name,
		State:             domainInstance.StateConnecting,
		WebhookConfigured: hook != nil,
		Active:            true,
	}
	if err := s.repo.Create(ctx, &inst); err != nil {
		return domainInstance.Instance{}, err
	}

	logrus.Infof("[INSTANCE] created %s for tenant %s (webhook=%t)", inst.Name, tenantID, inst.WebhookConfigured)
	s.notifier.InstanceChanged(ctx, inst)
	return inst, nil
}

// List returns the tenant's active instances, reconciled against the gateway.
func (s *instanceService) List(ctx context.Context, tenantID string) ([]domainInstance.Instance, error) {
	tenantID, err := requireTenant(tenantID)
	if err != nil {
		return nil, err
	}
	if s.reconciler != nil {
		return s.reconciler.ReconcileTenant(ctx, tenantID)
	}
	return s.repo.List(ctx, tenantID)
}

func (s *instanceService) Status(ctx context.Context, tenantID, name string) (domainInstance.Instance, error) {
	inst, err := s.get(ctx, tenantID, name)
	if err != nil {
		return domainInstance.Instance{}, err
	}
	if s.reconciler == nil {
		return inst, nil
	}
	// A failed reconcile still returns the stored copy.
	reconciled, _ := s.reconciler.ReconcileInstance(ctx, inst)
	return reconciled, nil
}

func (s *instanceService) Connect(ctx context.Context, tenantID, name string) (domainInstance.ConnectResult, error) {
	inst, err := s.get(ctx, tenantID, name)
	if err != nil {
		return domainInstance.ConnectResult{}, err
	}

	res, err := s.gateway.Connect(ctx, inst.TenantID, inst.Name)
	if err != nil {
		logrus.WithError(err).Warnf("[INSTANCE] connect failed for %s/%s", inst.TenantID, inst.Name)
		return domainInstance.ConnectResult{}, err
	}

	change := domainInstance.StateChange{State: domainInstance.StateConnecting, CountAttempt: true}
	switch {
	case res.State == domainInstance.GatewayStateOpen:
		change.State = domainInstance.StateConnected
	case res.QRCode != "":
		change.State = domainInstance.StateQRCode
		change.QRCode = res.QRCode
		change.PairingCode = res.PairingCode
	}

	updated, err := s.repo.ApplyStateChange(ctx, inst.TenantID, inst.Name, change)
	if err != nil {
		return domainInstance.ConnectResult{}, err
	}
	s.notifier.InstanceChanged(ctx, updated)

	return domainInstance.ConnectResult{
		Instance:         updated,
		QRCode:           res.QRCode,
		PairingCode:      res.PairingCode,
		AlreadyConnected: change.State == domainInstance.StateConnected,
	}, nil
}

func (s *instanceService) Disconnect(ctx context.Context, tenantID, name string) (domainInstance.Instance, error) {
	inst, err := s.get(ctx, tenantID, name)
	if err != nil {
		return domainInstance.Instance{}, err
	}
	// Local state may be stale, so the gateway is always asked to log out.
	// A session it no longer knows about is already logged out.
	if err := s.gateway.Logout(ctx, inst.TenantID, inst.Name); err != nil && !domainGateway.IsNotConnected(err) {
		logrus.WithError(err).Warnf("[INSTANCE] logout failed for %s/%s", inst.TenantID, inst.Name)
		return domainInstance.Instance{}, err
	}

	updated, err := s.repo.ApplyStateChange(ctx, inst.TenantID, inst.Name, domainInstance.StateChange{State: domainInstance.StateDisconnected})
	if err != nil {
		return domainInstance.Instance{}, err
	}
	s.notifier.InstanceChanged(ctx, updated)
	return updated, nil
}

// Delete removes the instance from the gateway and deactivates it locally.
// A gateway 404 counts as confirmed; any other gateway failure still
// deactivates the local record and is reported in the result.
func (s *instanceService) Delete(ctx context.Context, tenantID, name string) (domainInstance.DeleteResult, error) {
	inst, err := s.get(ctx, tenantID, name)
	if err != nil {
		return domainInstance.DeleteResult{}, err
	}

	result := domainInstance.DeleteResult{Name: inst.Name, RemoteConfirmed: true}
	if err := s.gateway.DeleteInstance(ctx, inst.TenantID, inst.Name); err != nil {
		if domainGateway.IsNotFound(err) {
			logrus.Debugf("[INSTANCE] %s/%s already gone from gateway", inst.TenantID, inst.Name)
		} else {
			logrus.WithError(err).Warnf("[INSTANCE] gateway delete failed for %s/%s, deactivating locally", inst.TenantID, inst.Name)
			result.RemoteConfirmed = false
			result.RemoteError = err.Error()
		}
	}

	if err := s.repo.Deactivate(ctx, inst.TenantID, inst.Name); err != nil && !errors.Is(err, domainInstance.ErrInstanceNotFound) {
		return domainInstance.DeleteResult{}, err
	}
	result.Deleted = true

	inst.Active = false
	inst.State = domainInstance.StateDisconnected
	s.notifier.InstanceChanged(ctx, inst)
	return result, nil
}

func (s *instanceService) ConfigureWebhook(ctx context.Context, tenantID, name string) (domainInstance.Instance, error) {
	inst, err := s.get(ctx, tenantID, name)
	if err != nil {
		return domainInstance.Instance{}, err
	}
	url := s.webhookURL(inst.TenantID)
	if url == "" {
		return domainInstance.Instance{}, pkgError.ValidationError("webhook: public url is not configured.")
	}

	err = s.gateway.SetWebhook(ctx, inst.TenantID, inst.Name, domainGateway.WebhookSettings{URL: url, Enabled: true})
	if err != nil {
		return domainInstance.Instance{}, err
	}

	updated, err := s.repo.SetWebhookConfigured(ctx, inst.TenantID, inst.Name, true)
	if err != nil {
		return domainInstance.Instance{}, err
	}
	s.notifier.InstanceChanged(ctx, updated)
	return updated, nil
}

// HandleConnectionUpdate applies a connection.update delivery. "open" means
// connected and carries the profile; anything else is a disconnect.
func (s *instanceService) HandleConnectionUpdate(ctx context.Context, tenantID, name string, update domainInstance.ConnectionUpdate) (domainInstance.Instance, error) {
	inst, err := s.get(ctx, tenantID, name)
	if err != nil {
		return domainInstance.Instance{}, err
	}
	change := domainInstance.StateChange{State: domainInstance.MapGatewayState(update.State)}
	if change.State == domainInstance.StateConnected {
		change.Profile = update.Profile
	}

	updated, err := s.repo.ApplyStateChange(ctx, inst.TenantID, inst.Name, change)
	if err != nil {
		return domainInstance.Instance{}, err
	}
	if updated.State != inst.State {
		logrus.Infof("[INSTANCE] %s/%s %s -> %s", inst.TenantID, inst.Name, inst.State, updated.State)
	}
	s.notifier.InstanceChanged(ctx, updated)
	return updated, nil
}

func (s *instanceService) HandleQRCodeUpdate(ctx context.Context, tenantID, name string, update domainInstance.QRCodeUpdate) (domainInstance.Instance, error) {
	tenantID, err := requireTenant(tenantID)
	if err != nil {
		return domainInstance.Instance{}, err
	}

	updated, err := s.repo.ApplyStateChange(ctx, tenantID, strings.TrimSpace(name), domainInstance.StateChange{
		State:       domainInstance.StateQRCode,
		QRCode:      update.Code,
		PairingCode: update.PairingCode,
	})
	if err != nil {
		return domainInstance.Instance{}, err
	}
	s.notifier.InstanceChanged(ctx, updated)
	return updated, nil
}

func (s *instanceService) get(ctx context.Context, tenantID, name string) (domainInstance.Instance, error) {
	tenantID, err := requireTenant(tenantID)
	if err != nil {
		return domainInstance.Instance{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return domainInstance.Instance{}, pkgError.ValidationError("name: cannot be blank.")
	}
	return s.repo.GetByName(ctx, tenantID, name)
}
