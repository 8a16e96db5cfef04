package testutils

import (
	"testing"

	"github.com/ahmetcoskunkizilkaya/nippogen/internal/models"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB returns a migrated in-memory SQLite database that lives for the test.
// A single connection keeps every goroutine on the same in-memory database
// and serializes writers.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(models.All()...))

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

const TestEncryptionKey = "0123456789abcdef0123456789abcdef"
