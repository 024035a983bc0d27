package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ashwinyue/traintrack/internal/config"
	"github.com/ashwinyue/traintrack/internal/model"
)

// DB 数据库封装
type DB struct {
	*gorm.DB
}

// New 创建数据库连接
// 数据库未就绪时按指数退避重试，超过 ConnectRetries 次后放弃。
// 只有启动阶段会重试，请求过程中的存储故障直接返回给调用方。
func New(ctx context.Context, cfg *config.Config) (*DB, error) {
	return openWithRetry(ctx, cfg, func(ctx context.Context) (*gorm.DB, error) {
		return connect(ctx, cfg)
	})
}

// openWithRetry 重试 dial 直到连接可用，然后执行一次迁移
func openWithRetry(ctx context.Context, cfg *config.Config, dial func(context.Context) (*gorm.DB, error)) (*DB, error) {
	var db *gorm.DB
	attempt := 0

	operation := func() error {
		attempt++
		conn, err := dial(ctx)
		if err != nil {
			return err
		}
		db = conn
		return nil
	}

	b := backoff.NewExponentialBackOff()
	if cfg.Database.ConnectInterval > 0 {
		b.InitialInterval = time.Duration(cfg.Database.ConnectInterval) * time.Second
	}
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(max(cfg.Database.ConnectRetries-1, 0))), ctx)
	notify := func(err error, next time.Duration) {
		log.Printf("Database not ready yet (%d/%d), retrying in %v: %v",
			attempt, cfg.Database.ConnectRetries, next.Round(time.Millisecond), err)
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return nil, fmt.Errorf("cannot connect to the database after %d attempts: %w", attempt, err)
	}

	// 连接成功后只迁移一次，迁移失败不重试
	wrapped := &DB{DB: db}
	if err := Migrate(db); err != nil {
		wrapped.Close()
		return nil, fmt.Errorf("failed to auto migrate: %w", err)
	}

	return wrapped, nil
}

func connect(ctx context.Context, cfg *config.Config) (*gorm.DB, error) {
	db, err := Open(postgres.Open(cfg.Database.GetDSN()), cfg.App.Debug)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database: %w", err)
	}

	// 连接池配置
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.Database.MaxLifetime) * time.Second)

	// 健康检查
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// Open 使用给定方言打开 gorm 连接
// TranslateError 让驱动把约束冲突翻译成 gorm.ErrDuplicatedKey / gorm.ErrForeignKeyViolated
func Open(dialector gorm.Dialector, debug bool) (*gorm.DB, error) {
	logLevel := gormlogger.Silent
	if debug {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(logLevel),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return db, nil
}

// Migrate 创建四张表及其约束
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(model.AllModels...)
}

// Close 关闭数据库连接
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping 检查数据库连接
func (db *DB) Ping(ctx context.Context) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
