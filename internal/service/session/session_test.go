// Package session 提供 Session 服务单元测试
package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ashwinyue/traintrack/internal/apperr"
)

// ========== Create / Get 测试 ==========

func TestManager_CreateAndGet(t *testing.T) {
	m := NewManager(nil)
	ctx := context.Background()

	sess, err := m.Create(ctx)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if sess.ID == "" {
		t.Fatal("Create() returned empty ID")
	}
	if sess.ModelID != "" || sess.RunID != "" {
		t.Errorf("new session should have no handles, got %+v", sess)
	}

	got, err := m.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ID != sess.ID || !got.CreatedAt.Equal(sess.CreatedAt) {
		t.Errorf("Get() = %+v, want %+v", got, sess)
	}
}

func TestManager_GetUnknown(t *testing.T) {
	m := NewManager(nil)
	_, err := m.Get(context.Background(), "nope")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get() error = %v, want not found", err)
	}
}

// ========== Bind 测试 ==========

func TestManager_Bind(t *testing.T) {
	m := NewManager(nil)
	ctx := context.Background()

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	sess, _ := m.Create(ctx)

	withModel, err := m.BindModel(ctx, sess.ID, "model-1")
	if err != nil {
		t.Fatalf("BindModel() error = %v", err)
	}
	if withModel.ModelID != "model-1" {
		t.Errorf("ModelID = %q", withModel.ModelID)
	}
	if !withModel.UpdatedAt.After(sess.UpdatedAt) {
		t.Error("UpdatedAt should advance on bind")
	}

	withRun, err := m.BindRun(ctx, sess.ID, "run-1")
	if err != nil {
		t.Fatalf("BindRun() error = %v", err)
	}
	if withRun.ModelID != "model-1" || withRun.RunID != "run-1" {
		t.Errorf("after BindRun = %+v", withRun)
	}

	// 切换模型后旧的运行不再有效
	switched, _ := m.BindModel(ctx, sess.ID, "model-2")
	if switched.RunID != "" {
		t.Errorf("RunID = %q after switching model, want empty", switched.RunID)
	}

	if _, err := m.BindRun(ctx, "nope", "run-1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("BindRun() on unknown session error = %v", err)
	}
}

func TestManager_ReturnsCopies(t *testing.T) {
	m := NewManager(nil)
	ctx := context.Background()

	sess, _ := m.Create(ctx)
	sess.ModelID = "mutated"

	got, _ := m.Get(ctx, sess.ID)
	if got.ModelID != "" {
		t.Errorf("caller mutation leaked into manager: %+v", got)
	}
}

// ========== Delete 测试 ==========

func TestManager_Delete(t *testing.T) {
	m := NewManager(nil)
	ctx := context.Background()

	sess, _ := m.Create(ctx)
	if err := m.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := m.Get(ctx, sess.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get() after Delete error = %v", err)
	}
	if err := m.Delete(ctx, sess.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want not found", err)
	}
}

// ========== 过期测试 ==========

func TestManager_Expiry(t *testing.T) {
	m := NewManager(nil)
	ctx := context.Background()

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	idle, _ := m.Create(ctx)
	active, _ := m.Create(ctx)

	// 更新会顺延过期时间
	clock = clock.Add(20 * time.Hour)
	if _, err := m.BindModel(ctx, active.ID, "model-1"); err != nil {
		t.Fatalf("BindModel() error = %v", err)
	}

	clock = clock.Add(5 * time.Hour)
	if _, err := m.Get(ctx, idle.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get(idle) error = %v, want not found after %v", err, sessionTTL)
	}
	if _, err := m.BindRun(ctx, idle.ID, "run-1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("BindRun(idle) error = %v, want not found", err)
	}
	if got, err := m.Get(ctx, active.ID); err != nil || got.ModelID != "model-1" {
		t.Errorf("Get(active) = %+v, %v", got, err)
	}

	m.mu.RLock()
	_, kept := m.memory[idle.ID]
	m.mu.RUnlock()
	if kept {
		t.Error("expired session should be dropped from memory")
	}
}

func TestManager_CreateSweepsExpired(t *testing.T) {
	m := NewManager(nil)
	ctx := context.Background()

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	for i := 0; i < 3; i++ {
		m.Create(ctx)
	}

	clock = clock.Add(sessionTTL + time.Minute)
	fresh, _ := m.Create(ctx)

	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.memory) != 1 {
		t.Errorf("sessions in memory = %d, want 1", len(m.memory))
	}
	if _, ok := m.memory[fresh.ID]; !ok {
		t.Error("new session missing from memory")
	}
}

func TestManager_DeleteExpired(t *testing.T) {
	m := NewManager(nil)
	ctx := context.Background()

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	sess, _ := m.Create(ctx)
	clock = clock.Add(sessionTTL)
	if err := m.Delete(ctx, sess.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Delete(expired) error = %v, want not found", err)
	}
}

// ========== 并发测试 ==========

func TestManager_Concurrent(t *testing.T) {
	m := NewManager(nil)
	ctx := context.Background()
	sess, _ := m.Create(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			m.BindRun(ctx, sess.ID, "run")
		}()
		go func() {
			defer wg.Done()
			m.Get(ctx, sess.ID)
		}()
	}
	wg.Wait()

	got, err := m.Get(ctx, sess.ID)
	if err != nil || got.RunID != "run" {
		t.Errorf("Get() = %+v, %v", got, err)
	}
}
