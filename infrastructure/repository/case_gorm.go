package repository

import (
	"context"
	"errors"

	domainLegalCase "github.com/AzielCF/az-juris/domains/legalcase"
	"gorm.io/gorm"
)

// caseModel maps the columns this service reads from the cases table. The
// table itself is owned by the case management side.
type caseModel struct {
	ID            string `gorm:"primaryKey"`
	TenantID      string `gorm:"column:tenant_id;not null;index"`
	ClientName    string `gorm:"column:client_name"`
	ClientPhone   string `gorm:"column:client_phone;index"`
	Status        string `gorm:"column:status"`
	BenefitType   string `gorm:"column:benefit_type"`
	BenefitStatus string `gorm:"column:benefit_status"`
	ProcessNumber string `gorm:"column:process_number"`
}

func (caseModel) TableName() string {
	return "cases"
}

type CaseGormRepository struct {
	db *gorm.DB
}

func NewCaseGormRepository(db *gorm.DB) *CaseGormRepository {
	return &CaseGormRepository{db: db}
}

// InitSchema creates the cases table for standalone SQLite setups; against
// the shared database the table already exists.
func (r *CaseGormRepository) InitSchema(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&caseModel{})
}

func (r *CaseGormRepository) GetByID(ctx context.Context, tenantID, id string) (domainLegalCase.Case, bool, error) {
	var m caseModel
	err := r.db.WithContext(ctx).Where("tenant_id = ? AND id = ?", tenantID, id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainLegalCase.Case{}, false, nil
		}
		return domainLegalCase.Case{}, false, err
	}
	return fromCaseModel(m), true, nil
}

func (r *CaseGormRepository) FindByPhone(ctx context.Context, tenantID string, candidates []string) (domainLegalCase.Case, bool, error) {
	for _, phone := range candidates {
		if phone == "" {
			continue
		}
		var m caseModel
		err := r.db.WithContext(ctx).
			Where("tenant_id = ? AND client_phone = ?", tenantID, phone).
			Order("id ASC").
			First(&m).Error
		if err == nil {
			return fromCaseModel(m), true, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return domainLegalCase.Case{}, false, err
		}
	}
	return domainLegalCase.Case{}, false, nil
}

// Save inserts or replaces a case row. Only used to seed standalone setups.
func (r *CaseGormRepository) Save(ctx context.Context, c domainLegalCase.Case) error {
	m := caseModel(c)
	return r.db.WithContext(ctx).Save(&m).Error
}

func fromCaseModel(m caseModel) domainLegalCase.Case {
	return domainLegalCase.Case(m)
}
