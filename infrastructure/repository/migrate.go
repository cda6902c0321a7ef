package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

type schemaOwner interface {
	InitSchema(ctx context.Context) error
}

// Migrate creates or updates the tables this package owns. withCases also
// creates the cases table, for setups without the case management schema.
func Migrate(ctx context.Context, db *gorm.DB, withCases bool) error {
	owners := []schemaOwner{
		NewInstanceGormRepository(db),
		NewBotConfigGormRepository(db),
		NewCredentialGormRepository(db),
		NewChatGormRepository(db),
	}
	if withCases {
		owners = append(owners, NewCaseGormRepository(db))
	}
	for _, owner := range owners {
		if err := owner.InitSchema(ctx); err != nil {
			return fmt.Errorf("migrating %T: %w", owner, err)
		}
	}
	return nil
}
