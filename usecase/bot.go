package usecase

import (
	"context"
	"strings"
	"time"

	domainBot "github.com/AzielCF/az-juris/domains/bot"
	domainInstance "github.com/AzielCF/az-juris/domains/instance"
	"github.com/AzielCF/az-juris/validations"
	"github.com/sirupsen/logrus"
)

type botService struct {
	configs   domainBot.IBotConfigRepository
	instances domainInstance.IInstanceRepository
}

func NewBotService(configs domainBot.IBotConfigRepository, instances domainInstance.IInstanceRepository) domainBot.IBotUsecase {
	return &botService{configs: configs, instances: instances}
}

func (s *botService) Get(ctx context.Context, tenantID, instanceName string) (domainBot.Config, error) {
	inst, err := s.instance(ctx, tenantID, instanceName)
	if err != nil {
		return domainBot.Config{}, err
	}
	return s.configs.GetByInstance(ctx, inst.TenantID, inst.ID)
}

func (s *botService) Save(ctx context.Context, tenantID, instanceName string, request domainBot.SaveConfigRequest) (domainBot.Config, error) {
	inst, err := s.instance(ctx, tenantID, instanceName)
	if err != nil {
		return domainBot.Config{}, err
	}
	if err := validations.ValidateSaveBotConfig(ctx, request); err != nil {
		return domainBot.Config{}, err
	}

	cfg := domainBot.Config{
		TenantID:        inst.TenantID,
		InstanceID:      inst.ID,
		Active:          request.Active,
		WelcomeMessage:  strings.TrimSpace(request.WelcomeMessage),
		MenuOptions:     request.MenuOptions,
		FallbackMessage: strings.TrimSpace(request.FallbackMessage),
		BusinessHours:   request.BusinessHours,
		UpdatedAt:       time.Now().UTC(),
	}
	if err := s.configs.Upsert(ctx, &cfg); err != nil {
		return domainBot.Config{}, err
	}
	logrus.Infof("[AUTORESPONDER] config saved for %s/%s (active=%t)", inst.TenantID, inst.Name, cfg.Active)
	return cfg, nil
}

func (s *botService) instance(ctx context.Context, tenantID, name string) (domainInstance.Instance, error) {
	tenantID, err := requireTenant(tenantID)
	if err != nil {
		return domainInstance.Instance{}, err
	}
	return s.instances.GetByName(ctx, tenantID, strings.TrimSpace(name))
}
