package testutil

import (
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/ashwinyue/traintrack/internal/database"
)

// inMemoryDSN 每个连接独立的内存库，开启外键约束
const inMemoryDSN = "file::memory:?_pragma=foreign_keys(1)"

// NewTestDB 创建已迁移的内存 SQLite 数据库
// 连接池限制为 1，保证所有会话看到同一个内存库
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(sqlite.Open(inMemoryDSN), false)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	t.Cleanup(func() {
		sqlDB.Close()
	})
	return db
}
