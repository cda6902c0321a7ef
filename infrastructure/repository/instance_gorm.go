package repository

import (
	"context"
	"errors"
	"time"

	domainInstance "github.com/AzielCF/az-juris/domains/instance"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type instanceModel struct {
	ID                 string     `gorm:"primaryKey"`
	TenantID           string     `gorm:"column:tenant_id;not null;index;uniqueIndex:idx_instances_tenant_name_active,where:active = true"`
	Name               string     `gorm:"column:name;not null;uniqueIndex:idx_instances_tenant_name_active,where:active = true"`
	State              string     `gorm:"column:state;not null;default:'connecting'"`
	ProfileName        string     `gorm:"column:profile_name"`
	Number             string     `gorm:"column:number"`
	ProfilePictureURL  string     `gorm:"column:profile_picture_url;type:text"`
	QRCode             string     `gorm:"column:qr_code;type:text"`
	PairingCode        string     `gorm:"column:pairing_code"`
	WebhookConfigured  bool       `gorm:"column:webhook_configured;not null;default:false"`
	Active             bool       `gorm:"column:active;not null;default:true;index"`
	LastSeenAt         *time.Time `gorm:"column:last_seen_at"`
	ConnectionAttempts int        `gorm:"column:connection_attempts;not null;default:0"`
	CreatedAt          time.Time  `gorm:"not null"`
	UpdatedAt          time.Time  `gorm:"not null"`
}

func (instanceModel) TableName() string {
	return "instances"
}

type InstanceGormRepository struct {
	db *gorm.DB
}

func NewInstanceGormRepository(db *gorm.DB) *InstanceGormRepository {
	return &InstanceGormRepository{db: db}
}

func (r *InstanceGormRepository) InitSchema(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&instanceModel{})
}

func (r *InstanceGormRepository) Create(ctx context.Context, inst *domainInstance.Instance) error {
	if inst.ID == "" {
		inst.ID = uuid.New().String()
	}
	if inst.State == "" {
		inst.State = domainInstance.StateConnecting
	}
	now := time.Now().UTC()
	inst.Active = true
	inst.CreatedAt = now
	inst.UpdatedAt = now

	model := toInstanceModel(*inst)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domainInstance.ErrInstanceConflict
		}
		return err
	}
	return nil
}

func (r *InstanceGormRepository) GetByName(ctx context.Context, tenantID, name string) (domainInstance.Instance, error) {
	var m instanceModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND name = ? AND active = ?", tenantID, name, true).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainInstance.Instance{}, domainInstance.ErrInstanceNotFound
		}
		return domainInstance.Instance{}, err
	}
	return fromInstanceModel(m), nil
}

func (r *InstanceGormRepository) List(ctx context.Context, tenantID string) ([]domainInstance.Instance, error) {
	var models []instanceModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND active = ?", tenantID, true).
		Order("name ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	return fromInstanceModels(models), nil
}

func (r *InstanceGormRepository) ListAllActive(ctx context.Context) ([]domainInstance.Instance, error) {
	var models []instanceModel
	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("tenant_id ASC, name ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	return fromInstanceModels(models), nil
}

// ApplyStateChange writes the change in one UPDATE scoped to the active
// (tenant, name) row and returns the row as stored afterwards.
func (r *InstanceGormRepository) ApplyStateChange(ctx context.Context, tenantID, name string, change domainInstance.StateChange) (domainInstance.Instance, error) {
	updates := map[string]any{"state": string(change.State)}

	switch change.State {
	case domainInstance.StateConnected:
		updates["last_seen_at"] = time.Now().UTC()
		updates["qr_code"] = ""
		updates["pairing_code"] = ""
	case domainInstance.StateDisconnected:
		updates["qr_code"] = ""
		updates["pairing_code"] = ""
	}
	if change.QRCode != "" {
		updates["qr_code"] = change.QRCode
	}
	if change.PairingCode != "" {
		updates["pairing_code"] = change.PairingCode
	}
	if change.Profile.Name != "" {
		updates["profile_name"] = change.Profile.Name
	}
	if change.Profile.Number != "" {
		updates["number"] = change.Profile.Number
	}
	if change.Profile.PictureURL != "" {
		updates["profile_picture_url"] = change.Profile.PictureURL
	}
	if change.CountAttempt {
		updates["connection_attempts"] = gorm.Expr("connection_attempts + 1")
	}

	return r.update(ctx, tenantID, name, updates)
}

func (r *InstanceGormRepository) SetWebhookConfigured(ctx context.Context, tenantID, name string, configured bool) (domainInstance.Instance, error) {
	return r.update(ctx, tenantID, name, map[string]any{"webhook_configured": configured})
}

// Deactivate soft-deletes the instance, freeing its name for reuse.
func (r *InstanceGormRepository) Deactivate(ctx context.Context, tenantID, name string) error {
	res := r.db.WithContext(ctx).Model(&instanceModel{}).
		Where("tenant_id = ? AND name = ? AND active = ?", tenantID, name, true).
		Updates(map[string]any{
			"active":       false,
			"state":        string(domainInstance.StateDisconnected),
			"qr_code":      "",
			"pairing_code": "",
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domainInstance.ErrInstanceNotFound
	}
	return nil
}

func (r *InstanceGormRepository) update(ctx context.Context, tenantID, name string, updates map[string]any) (domainInstance.Instance, error) {
	res := r.db.WithContext(ctx).Model(&instanceModel{}).
		Where("tenant_id = ? AND name = ? AND active = ?", tenantID, name, true).
		Updates(updates)
	if res.Error != nil {
		return domainInstance.Instance{}, res.Error
	}
	if res.RowsAffected == 0 {
		return domainInstance.Instance{}, domainInstance.ErrInstanceNotFound
	}
	return r.GetByName(ctx, tenantID, name)
}

func toInstanceModel(inst domainInstance.Instance) instanceModel {
	return instanceModel{
		ID:                 inst.ID,
		TenantID:           inst.TenantID,
		Name:               inst.Name,
		State:              string(inst.State),
		ProfileName:        inst.ProfileName,
		Number:             inst.Number,
		ProfilePictureURL:  inst.ProfilePictureURL,
		QRCode:             inst.QRCode,
		PairingCode:        inst.PairingCode,
		WebhookConfigured:  inst.WebhookConfigured,
		Active:             inst.Active,
		LastSeenAt:         inst.LastSeenAt,
		ConnectionAttempts: inst.ConnectionAttempts,
		CreatedAt:          inst.CreatedAt,
		UpdatedAt:          inst.UpdatedAt,
	}
}

func fromInstanceModel(m instanceModel) domainInstance.Instance {
	return domainInstance.Instance{
		ID:                 m.ID,
		TenantID:           m.TenantID,
		Name:               m.Name,
		State:              domainInstance.State(m.State),
		ProfileName:        m.ProfileName,
		Number:             m.Number,
		ProfilePictureURL:  m.ProfilePictureURL,
		QRCode:             m.QRCode,
		PairingCode:        m.PairingCode,
		WebhookConfigured:  m.WebhookConfigured,
		Active:             m.Active,
		LastSeenAt:         m.LastSeenAt,
		ConnectionAttempts: m.ConnectionAttempts,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

func fromInstanceModels(models []instanceModel) []domainInstance.Instance {
	out := make([]domainInstance.Instance, 0, len(models))
	for _, m := range models {
		out = append(out, fromInstanceModel(m))
	}
	return out
}
