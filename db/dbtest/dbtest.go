// Package dbtest opens throwaway SQLite databases for tests.
package dbtest

import (
	"testing"

	"SlackScheduler/db"
	"SlackScheduler/utils"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const CipherKey = "0123456789abcdef0123456789abcdef"

// Open returns a migrated in-memory database. The pool is pinned to a single
// connection because every new SQLite memory connection is a separate database.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(conn))
	return conn
}

func Cipher(t *testing.T) *utils.Cipher {
	t.Helper()
	c, err := utils.NewCipher(CipherKey)
	require.NoError(t, err)
	return c
}
