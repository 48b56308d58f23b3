// Package testdb bootstraps a throwaway database for service tests.
// Tests needing it are skipped unless TEST_DATABASE_URL is set.
package testdb

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/KDS-OurMemory/Server-sub001/internal/db"
)

func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	gdb, err := db.Connect(dsn)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrateAndIndexes(gdb))

	err = gdb.Exec(`truncate users, friends, rooms, room_members, memories, memory_rooms, user_memories, notices, jobs restart identity cascade`).Error
	require.NoError(t, err)

	return gdb
}
