package repository

import (
	"context"
	"errors"
	"time"

	domainCredential "github.com/AzielCF/az-juris/domains/credential"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gatewayCredentialModel struct {
	TenantID  string    `gorm:"column:tenant_id;primaryKey"`
	APIKey    string    `gorm:"column:api_key;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (gatewayCredentialModel) TableName() string {
	return "gateway_credentials"
}

type CredentialGormRepository struct {
	db *gorm.DB
}

func NewCredentialGormRepository(db *gorm.DB) *CredentialGormRepository {
	return &CredentialGormRepository{db: db}
}

func (r *CredentialGormRepository) InitSchema(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&gatewayCredentialModel{})
}

func (r *CredentialGormRepository) Get(ctx context.Context, tenantID string) (domainCredential.GatewayCredential, bool, error) {
	var m gatewayCredentialModel
	err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainCredential.GatewayCredential{}, false, nil
		}
		return domainCredential.GatewayCredential{}, false, err
	}
	return domainCredential.GatewayCredential{TenantID: m.TenantID, APIKey: m.APIKey, UpdatedAt: m.UpdatedAt}, true, nil
}

func (r *CredentialGormRepository) Save(ctx context.Context, cred domainCredential.GatewayCredential) error {
	m := gatewayCredentialModel{TenantID: cred.TenantID, APIKey: cred.APIKey, UpdatedAt: time.Now().UTC()}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"api_key", "updated_at"}),
	}).Create(&m).Error
}
