package database

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/ashwinyue/traintrack/internal/config"
	"github.com/ashwinyue/traintrack/internal/model"
)

func TestOpenAndMigrate(t *testing.T) {
	db, err := Open(sqlite.Open("file::memory:?_pragma=foreign_keys(1)"), false)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	// 重复迁移是幂等的
	if err := Migrate(db); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}

	for _, table := range []interface{}{&model.Model{}, &model.TrainingRun{}, &model.Loss{}, &model.Metric{}} {
		if !db.Migrator().HasTable(table) {
			t.Errorf("table for %T not created", table)
		}
	}
	if !db.Migrator().HasIndex(&model.Model{}, "uq_model_name_project") {
		t.Error("unique index on (name, project_name) not created")
	}

	wrapped := &DB{DB: db}
	if err := wrapped.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestOpen_UTCNow(t *testing.T) {
	db, err := Open(sqlite.Open("file::memory:"), false)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	if loc := db.NowFunc().Location(); loc != time.UTC {
		t.Errorf("NowFunc() location = %v, want UTC", loc)
	}
}

func TestNew_GivesUpAfterRetries(t *testing.T) {
	cfg := &config.Config{
		Database: config.DatabaseConfig{
			Host:            "127.0.0.1",
			Port:            1,
			User:            "postgres",
			DBName:          "ml_tracking",
			SSLMode:         "disable",
			ConnectRetries:  1,
			ConnectInterval: 1,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := New(ctx, cfg)
	if err == nil {
		db.Close()
		t.Fatal("New() should fail when the database is unreachable")
	}
	if db != nil {
		t.Errorf("New() returned a DB alongside error %v", err)
	}
}

func openMemory(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(sqlite.Open("file::memory:"), false)
	if err != nil {
		t.Fatal(err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	return db
}

func TestOpenWithRetry_RetriesDialOnly(t *testing.T) {
	cfg := &config.Config{Database: config.DatabaseConfig{ConnectRetries: 5}}

	calls := 0
	dial := func(context.Context) (*gorm.DB, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("connection refused")
		}
		return openMemory(t), nil
	}

	db, err := openWithRetry(context.Background(), cfg, dial)
	if err != nil {
		t.Fatalf("openWithRetry() error = %v", err)
	}
	defer db.Close()

	if calls != 3 {
		t.Errorf("dial called %d times, want 3", calls)
	}
	if !db.Migrator().HasTable(&model.TrainingRun{}) {
		t.Error("tables not migrated after connecting")
	}
}

func TestOpenWithRetry_MigrationFailureNotRetried(t *testing.T) {
	cfg := &config.Config{Database: config.DatabaseConfig{ConnectRetries: 5}}

	calls := 0
	dial := func(context.Context) (*gorm.DB, error) {
		calls++
		db := openMemory(t)
		// 连接已关闭，迁移必然失败
		sqlDB, _ := db.DB()
		sqlDB.Close()
		return db, nil
	}

	db, err := openWithRetry(context.Background(), cfg, dial)
	if err == nil {
		db.Close()
		t.Fatal("openWithRetry() should fail when migration fails")
	}
	if !strings.Contains(err.Error(), "auto migrate") {
		t.Errorf("error = %v, want a migration error", err)
	}
	if calls != 1 {
		t.Errorf("dial called %d times, want 1", calls)
	}
}
