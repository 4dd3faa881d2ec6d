// Package dbtest opens isolated in-memory SQLite databases carrying the application schema.
package dbtest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var schema = []string{
	`CREATE TABLE users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,
		last_login_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE suppliers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		user_id TEXT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
		diamond_balance INTEGER NOT NULL DEFAULT 0,
		low_balance_threshold INTEGER NOT NULL DEFAULT 1000,
		google_sheet_id TEXT,
		google_sync_enabled BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE orders (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		server_id TEXT NOT NULL,
		in_game_name TEXT NOT NULL,
		skin_name TEXT NOT NULL,
		diamond_price INTEGER NOT NULL CHECK (diamond_price > 0),
		supplier_id TEXT NOT NULL REFERENCES suppliers(id),
		assigned_by_id TEXT NOT NULL REFERENCES users(id),
		status TEXT NOT NULL DEFAULT 'PENDING',
		ready_for_gifting BOOLEAN NOT NULL DEFAULT 0,
		notes TEXT,
		release_date DATETIME,
		followed_at DATETIME,
		completed_at DATETIME,
		balance_deducted_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE balance_logs (
		id TEXT PRIMARY KEY,
		supplier_id TEXT NOT NULL REFERENCES suppliers(id) ON DELETE CASCADE,
		change_amount INTEGER NOT NULL CHECK (change_amount <> 0),
		reason TEXT NOT NULL,
		order_id TEXT REFERENCES orders(id) ON DELETE SET NULL,
		created_at DATETIME NOT NULL
	)`,
}

// Open returns a fresh database private to the calling test.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()) + "_" + uuid.NewString()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", name)
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	// a shared-cache database lives as long as one connection stays open
	sqlDB.SetMaxIdleConns(4)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}
