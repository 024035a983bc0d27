// Package session 管理追踪会话
//
// 会话保存当前使用的模型和运行，客户端创建后在每次调用时显式传回会话 ID。
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ashwinyue/traintrack/internal/apperr"
)

const (
	// 会话在 Redis 中的过期时间（24小时）
	sessionTTL = 24 * time.Hour
	// Redis key 前缀
	sessionKeyPrefix = "session:"
	// 清理内存中过期会话的最小间隔
	sweepInterval = time.Hour
)

// Manager 会话管理器
// 会话保存在内存中，配置了 Redis 时同步写入，进程重启后可从 Redis 恢复。
// 内存和 Redis 使用同一个过期规则：最后一次更新后 sessionTTL 失效。
type Manager struct {
	mu        sync.RWMutex
	memory    map[string]*Session
	redis     *redis.Client
	now       func() time.Time
	lastSweep time.Time
}

// Session 追踪会话
type Session struct {
	ID        string    `json:"id"`
	ModelID   string    `json:"model_id,omitempty"`
	RunID     string    `json:"run_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewManager 创建会话管理器，redisClient 可以为 nil
func NewManager(redisClient *redis.Client) *Manager {
	return &Manager{
		memory: make(map[string]*Session),
		redis:  redisClient,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create 创建空会话
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	now := m.now()
	sess := &Session{
		ID:        uuid.New().String(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	m.mu.Lock()
	if now.Sub(m.lastSweep) >= sweepInterval {
		m.sweepLocked(now)
	}
	m.memory[sess.ID] = sess
	snapshot := sess.clone()
	m.mu.Unlock()

	m.save(ctx, snapshot)
	return snapshot, nil
}

// Get 获取会话，先查内存再查 Redis
func (m *Manager) Get(ctx context.Context, sessionID string) (*Session, error) {
	sess, err := m.lookup(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sess.clone(), nil
}

// BindModel 把模型绑定到会话，同时清除已绑定的运行
func (m *Manager) BindModel(ctx context.Context, sessionID, modelID string) (*Session, error) {
	return m.update(ctx, sessionID, func(s *Session) {
		s.ModelID = modelID
		s.RunID = ""
	})
}

// BindRun 把运行绑定到会话
func (m *Manager) BindRun(ctx context.Context, sessionID, runID string) (*Session, error) {
	return m.update(ctx, sessionID, func(s *Session) {
		s.RunID = runID
	})
}

// Delete 删除会话
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	sess, existed := m.memory[sessionID]
	existed = existed && !sess.expired(m.now())
	delete(m.memory, sessionID)
	m.mu.Unlock()

	// 从 Redis 删除
	if m.redis != nil {
		n, err := m.redis.Del(ctx, sessionKeyPrefix+sessionID).Result()
		if err != nil {
			log.Printf("Warning: failed to delete session from redis: %v", err)
		}
		existed = existed || n > 0
	}

	if !existed {
		return apperr.NotFound("session", "id=%s", sessionID)
	}
	return nil
}

func (m *Manager) update(ctx context.Context, sessionID string, fn func(*Session)) (*Session, error) {
	sess, err := m.lookup(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	fn(sess)
	sess.UpdatedAt = m.now()
	snapshot := sess.clone()
	m.mu.Unlock()

	m.save(ctx, snapshot)
	return snapshot, nil
}

func (m *Manager) lookup(ctx context.Context, sessionID string) (*Session, error) {
	now := m.now()

	m.mu.RLock()
	sess, ok := m.memory[sessionID]
	expired := ok && sess.expired(now)
	m.mu.RUnlock()
	if ok && !expired {
		return sess, nil
	}
	if expired {
		m.mu.Lock()
		if current, ok := m.memory[sessionID]; ok && current.expired(now) {
			delete(m.memory, sessionID)
		}
		m.mu.Unlock()
	}

	// 从 Redis 加载
	if m.redis != nil {
		if loaded := m.loadFromRedis(ctx, sessionID); loaded != nil && !loaded.expired(now) {
			m.mu.Lock()
			if existing, ok := m.memory[sessionID]; ok {
				loaded = existing
			} else {
				m.memory[sessionID] = loaded
			}
			m.mu.Unlock()
			return loaded, nil
		}
	}

	return nil, apperr.NotFound("session", "id=%s", sessionID)
}

// sweepLocked 删除内存中所有过期会话，调用方需持有写锁
func (m *Manager) sweepLocked(now time.Time) {
	for id, sess := range m.memory {
		if sess.expired(now) {
			delete(m.memory, id)
		}
	}
	m.lastSweep = now
}

func (m *Manager) save(ctx context.Context, sess *Session) {
	if m.redis == nil {
		return
	}
	if err := m.saveToRedis(ctx, sess); err != nil {
		// 记录错误但不影响主流程
		log.Printf("Warning: failed to save session to redis: %v", err)
	}
}

// loadFromRedis 从 Redis 加载会话
func (m *Manager) loadFromRedis(ctx context.Context, sessionID string) *Session {
	data, err := m.redis.Get(ctx, sessionKeyPrefix+sessionID).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("Warning: failed to load session from redis: %v", err)
		}
		return nil
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil
	}
	return &sess
}

// saveToRedis 保存会话到 Redis
func (m *Manager) saveToRedis(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return m.redis.Set(ctx, sessionKeyPrefix+sess.ID, data, sessionTTL).Err()
}

func (s *Session) expired(now time.Time) bool {
	return !now.Before(s.UpdatedAt.Add(sessionTTL))
}

func (s *Session) clone() *Session {
	c := *s
	return &c
}
