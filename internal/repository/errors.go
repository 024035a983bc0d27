package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/ashwinyue/traintrack/internal/apperr"
)

// 实体名称，用于错误信息
const (
	entityModel  = "model"
	entityRun    = "training run"
	entityLoss   = "loss"
	entityMetric = "metric"
)

// owners 外键指向的父实体
var owners = map[string]string{
	entityRun:    entityModel,
	entityLoss:   entityRun,
	entityMetric: entityRun,
}

// translateError 把存储层错误映射为 apperr 分类
// 唯一约束 -> Conflict，外键 -> 父实体 NotFound，连接失败 -> StoreUnavailable。
// 约束检查由存储引擎完成，这里只负责解释结果。
func translateError(err error, entity, identity string) error {
	if err == nil {
		return nil
	}
	if apperr.Kind(err) != nil {
		return err
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.NotFound(entity, "%s", identity)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.Conflict(entity, "%s already exists", identity)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return apperr.NotFound(owners[entity], "referenced by %s %s", entity, identity)
	case errors.Is(err, gorm.ErrCheckConstraintViolated):
		return apperr.Validation("%s %s: %v", entity, identity, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return apperr.Conflict(entity, "%s already exists (constraint: %s)", identity, pgErr.ConstraintName)
		case pgerrcode.ForeignKeyViolation:
			return apperr.NotFound(owners[entity], "referenced by %s %s (constraint: %s)", entity, identity, pgErr.ConstraintName)
		case pgerrcode.CheckViolation, pgerrcode.InvalidTextRepresentation, pgerrcode.StringDataRightTruncationDataException:
			return apperr.Validation("%s %s: %s", entity, identity, pgErr.Message)
		}
		if pgerrcode.IsConnectionException(pgErr.Code) || pgerrcode.IsOperatorIntervention(pgErr.Code) {
			return apperr.Unavailable(err)
		}
		return fmt.Errorf("%s %s: %w", entity, identity, err)
	}

	// SQLite 驱动的约束错误
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return apperr.Conflict(entity, "%s already exists", identity)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return apperr.NotFound(owners[entity], "referenced by %s %s", entity, identity)
	case strings.Contains(msg, "CHECK constraint failed"):
		return apperr.Validation("%s %s: %s", entity, identity, msg)
	}

	if isConnectionError(err) {
		return apperr.Unavailable(err)
	}
	return fmt.Errorf("%s %s: %w", entity, identity, err)
}

func isConnectionError(err error) bool {
	var connErr *pgconn.ConnectError
	var netErr net.Error
	return errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.As(err, &connErr) ||
		errors.As(err, &netErr) ||
		pgconn.Timeout(err)
}
