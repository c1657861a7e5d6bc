package repositories

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err, "open sqlite")
	return db
}

func mustExec(t *testing.T, db *gorm.DB, q string, args ...interface{}) {
	t.Helper()
	require.NoError(t, db.Exec(q, args...).Error, "exec failed: query=%s", q)
}

func createProfileTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE creator_profiles (
		address TEXT PRIMARY KEY,
		username TEXT NOT NULL DEFAULT '',
		bio TEXT NOT NULL DEFAULT '',
		avatar_uri TEXT NOT NULL DEFAULT '',
		socials TEXT NOT NULL DEFAULT '[]',
		total_tips_received TEXT NOT NULL DEFAULT '0',
		tip_count INTEGER NOT NULL DEFAULT 0,
		exists_on_chain BOOLEAN NOT NULL DEFAULT 0,
		synced_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	);`)
}

func createTipTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE tips (
		tx_hash TEXT PRIMARY KEY,
		tip_index TEXT,
		from_address TEXT NOT NULL,
		to_address TEXT NOT NULL,
		amount TEXT NOT NULL,
		token TEXT,
		message TEXT NOT NULL DEFAULT '',
		timestamp INTEGER NOT NULL,
		timestamp_source TEXT NOT NULL,
		block_number INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME
	);`)
}

func createSyncCursorTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE sync_cursors (
		name TEXT PRIMARY KEY,
		block_number INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME
	);`)
}

func createIndexerTables(t *testing.T, db *gorm.DB) {
	createProfileTable(t, db)
	createTipTable(t, db)
	createSyncCursorTable(t, db)
}
