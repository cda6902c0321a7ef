package repository

import (
	"context"
	"testing"

	"github.com/AzielCF/az-juris/core/database"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewMemoryDatabase("repo_" + uuid.NewString())
	require.NoError(t, err)
	require.NoError(t, Migrate(context.Background(), db, true))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}
