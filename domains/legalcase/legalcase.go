package legalcase

import "context"

// Case is the read-only view of a case record owned by the case management
// side of the platform.
type Case struct {
	ID            string `json:"id"`
	TenantID      string `json:"tenant_id"`
	ClientName    string `json:"client_name"`
	ClientPhone   string `json:"client_phone"`
	Status        string `json:"status"`
	BenefitType   string `json:"benefit_type"`
	BenefitStatus string `json:"benefit_status"`
	ProcessNumber string `json:"process_number"`
}

// ICaseRepository resolves contacts to cases. FindByPhone tries each
// candidate in order and returns the first match.
type ICaseRepository interface {
	GetByID(ctx context.Context, tenantID, id string) (Case, bool, error)
	FindByPhone(ctx context.Context, tenantID string, candidates []string) (Case, bool, error)
}
