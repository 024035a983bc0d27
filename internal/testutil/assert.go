// Package testutil 提供测试辅助工具
package testutil

import (
	"errors"
	"testing"
)

// AssertHelper 提供断言相关的测试辅助
type AssertHelper struct {
	t *testing.T
}

// NewAssertHelper 创建断言辅助器
func NewAssertHelper(t *testing.T) *AssertHelper {
	return &AssertHelper{t: t}
}

// NoError 断言没有错误
func (h *AssertHelper) NoError(err error, msgAndArgs ...interface{}) {
	h.t.Helper()
	if err != nil {
		h.t.Fatalf("Unexpected error: %v %v", err, msgAndArgs)
	}
}

// ErrorIs 断言错误链中包含 target，用于检查 apperr 分类
func (h *AssertHelper) ErrorIs(err, target error, msgAndArgs ...interface{}) {
	h.t.Helper()
	if !errors.Is(err, target) {
		h.t.Fatalf("Expected error %v, got %v %v", target, err, msgAndArgs)
	}
}

// Equal 断言相等
func (h *AssertHelper) Equal(expected, actual interface{}, msgAndArgs ...interface{}) {
	h.t.Helper()
	if expected != actual {
		h.t.Fatalf("Expected %v, got %v %v", expected, actual, msgAndArgs)
	}
}

// NotEmpty 断言字符串非空
func (h *AssertHelper) NotEmpty(s string, msgAndArgs ...interface{}) {
	h.t.Helper()
	if s == "" {
		h.t.Fatalf("Expected non-empty string %v", msgAndArgs)
	}
}

// True 断言为真
func (h *AssertHelper) True(condition bool, msgAndArgs ...interface{}) {
	h.t.Helper()
	if !condition {
		h.t.Fatalf("Expected true, got false %v", msgAndArgs)
	}
}
