package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domainBot "github.com/AzielCF/az-juris/domains/bot"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type botConfigModel struct {
	ID              string    `gorm:"primaryKey"`
	TenantID        string    `gorm:"column:tenant_id;not null;index"`
	InstanceID      string    `gorm:"column:instance_id;not null;uniqueIndex"`
	Active          bool      `gorm:"column:active;not null;default:false"`
	WelcomeMessage  string    `gorm:"column:welcome_message;type:text"`
	MenuOptions     string    `gorm:"column:menu_options;type:text;default:'[]'"` // JSON
	FallbackMessage string    `gorm:"column:fallback_message;type:text"`
	HoursStart      string    `gorm:"column:hours_start"`
	HoursEnd        string    `gorm:"column:hours_end"`
	HoursTimezone   string    `gorm:"column:hours_timezone"`
	OfflineMessage  string    `gorm:"column:offline_message;type:text"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

func (botConfigModel) TableName() string {
	return "bot_configs"
}

type BotConfigGormRepository struct {
	db *gorm.DB
}

func NewBotConfigGormRepository(db *gorm.DB) *BotConfigGormRepository {
	return &BotConfigGormRepository{db: db}
}

func (r *BotConfigGormRepository) InitSchema(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&botConfigModel{})
}

func (r *BotConfigGormRepository) GetByInstance(ctx context.Context, tenantID, instanceID string) (domainBot.Config, error) {
	var m botConfigModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND instance_id = ?", tenantID, instanceID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainBot.Config{}, domainBot.ErrConfigNotFound
		}
		return domainBot.Config{}, err
	}
	return fromBotConfigModel(m)
}

// Upsert keeps exactly one config per instance.
func (r *BotConfigGormRepository) Upsert(ctx context.Context, cfg *domainBot.Config) error {
	if cfg.ID == "" {
		cfg.ID = uuid.New().String()
	}
	cfg.UpdatedAt = time.Now().UTC()

	model, err := toBotConfigModel(*cfg)
	if err != nil {
		return err
	}
	model.CreatedAt = cfg.UpdatedAt

	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "instance_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"active", "welcome_message", "menu_options", "fallback_message",
			"hours_start", "hours_end", "hours_timezone", "offline_message", "updated_at",
		}),
	}).Create(&model).Error
	if err != nil {
		return err
	}

	stored, err := r.GetByInstance(ctx, cfg.TenantID, cfg.InstanceID)
	if err != nil {
		return err
	}
	*cfg = stored
	return nil
}

func toBotConfigModel(cfg domainBot.Config) (botConfigModel, error) {
	options := cfg.MenuOptions
	if options == nil {
		options = []domainBot.MenuOption{}
	}
	raw, err := json.Marshal(options)
	if err != nil {
		return botConfigModel{}, fmt.Errorf("encoding menu options: %w", err)
	}

	m := botConfigModel{
		ID:              cfg.ID,
		TenantID:        cfg.TenantID,
		InstanceID:      cfg.InstanceID,
		Active:          cfg.Active,
		WelcomeMessage:  cfg.WelcomeMessage,
		MenuOptions:     string(raw),
		FallbackMessage: cfg.FallbackMessage,
		UpdatedAt:       cfg.UpdatedAt,
	}
	if h := cfg.BusinessHours; h != nil {
		m.HoursStart = h.Start
		m.HoursEnd = h.End
		m.HoursTimezone = h.Timezone
		m.OfflineMessage = h.OfflineMessage
	}
	return m, nil
}

func fromBotConfigModel(m botConfigModel) (domainBot.Config, error) {
	cfg := domainBot.Config{
		ID:              m.ID,
		TenantID:        m.TenantID,
		InstanceID:      m.InstanceID,
		Active:          m.Active,
		WelcomeMessage:  m.WelcomeMessage,
		FallbackMessage: m.FallbackMessage,
		UpdatedAt:       m.UpdatedAt,
	}
	if m.MenuOptions != "" {
		if err := json.Unmarshal([]byte(m.MenuOptions), &cfg.MenuOptions); err != nil {
			return domainBot.Config{}, fmt.Errorf("decoding menu options: %w", err)
		}
	}
	if m.HoursStart != "" && m.HoursEnd != "" {
		cfg.BusinessHours = &domainBot.BusinessHours{
			Start:          m.HoursStart,
			End:            m.HoursEnd,
			Timezone:       m.HoursTimezone,
			OfflineMessage: m.OfflineMessage,
		}
	}
	return cfg, nil
}
