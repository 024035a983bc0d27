// Package apperr 定义跨层使用的错误分类
//
// 仓库层和服务层返回的错误都可以用 errors.Is 归入以下四类之一，
// handler 据此映射 HTTP 状态码。
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound 引用的实体不存在
	ErrNotFound = errors.New("not found")
	// ErrConflict 唯一约束冲突或非法的状态迁移
	ErrConflict = errors.New("conflict")
	// ErrValidation 输入格式错误
	ErrValidation = errors.New("validation error")
	// ErrStoreUnavailable 无法连接存储
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Error 带实体信息的分类错误
type Error struct {
	Kind   error
	Entity string
	Detail string
}

var _ error = (*Error)(nil)

func (e *Error) Error() string {
	switch {
	case e.Entity == "":
		return fmt.Sprintf("%v: %s", e.Kind, e.Detail)
	case e.Detail == "":
		return fmt.Sprintf("%s %v", e.Entity, e.Kind)
	default:
		return fmt.Sprintf("%s %v: %s", e.Entity, e.Kind, e.Detail)
	}
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// NotFound 创建 NotFound 错误
func NotFound(entity, format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Entity: entity, Detail: fmt.Sprintf(format, args...)}
}

// Conflict 创建 Conflict 错误
func Conflict(entity, format string, args ...any) error {
	return &Error{Kind: ErrConflict, Entity: entity, Detail: fmt.Sprintf(format, args...)}
}

// Validation 创建校验错误
func Validation(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Detail: fmt.Sprintf(format, args...)}
}

// Unavailable 包装存储不可用错误，保留原始错误
func Unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

// Kind 返回错误所属分类，不属于任何分类时返回 nil
func Kind(err error) error {
	for _, kind := range []error{ErrNotFound, ErrConflict, ErrValidation, ErrStoreUnavailable} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
