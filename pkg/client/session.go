package client

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrNoModel 会话尚未创建或选择模型
	ErrNoModel = errors.New("session has no model; call CreateModel or UseModel first")
	// ErrNoRun 会话尚未开始运行
	ErrNoRun = errors.New("session has no run; call StartRun or UseRun first")
)

// Session 保存当前模型和运行的显式句柄
// 每个训练进程持有自己的 Session，多个 Session 之间互不影响
type Session struct {
	client *Client

	mu      sync.Mutex
	modelID string
	runID   string
}

// NewSession 创建空会话
func (c *Client) NewSession() *Session {
	return &Session{client: c}
}

// ModelID 当前模型
func (s *Session) ModelID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modelID
}

// RunID 当前运行
func (s *Session) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}

// UseModel 选择已有模型，同时清除当前运行
func (s *Session) UseModel(modelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modelID = modelID
	s.runID = ""
}

// UseRun 选择已有运行
func (s *Session) UseRun(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runID = runID
}

// CreateModel 注册模型并设为当前模型
func (s *Session) CreateModel(ctx context.Context, name, projectName string) (*Model, error) {
	m, err := s.client.CreateModel(ctx, name, projectName)
	if err != nil {
		return nil, err
	}
	s.UseModel(m.ID)
	return m, nil
}

// StartRun 为当前模型开始运行并设为当前运行
func (s *Session) StartRun(ctx context.Context, hyperparameters map[string]interface{}) (*Run, error) {
	modelID := s.ModelID()
	if modelID == "" {
		return nil, ErrNoModel
	}

	r, err := s.client.CreateRun(ctx, modelID, hyperparameters)
	if err != nil {
		return nil, err
	}
	s.UseRun(r.ID)
	return r, nil
}

// LogLoss 为当前运行写入损失值
func (s *Session) LogLoss(ctx context.Context, step int64, split string, value float64) (*Loss, error) {
	runID, err := s.currentRun()
	if err != nil {
		return nil, err
	}
	return s.client.LogLoss(ctx, LossPoint{RunID: runID, Step: step, Split: split, Value: value})
}

// LogMetric 为当前运行写入指标
func (s *Session) LogMetric(ctx context.Context, step int64, split, metricName string, value float64) (*Metric, error) {
	runID, err := s.currentRun()
	if err != nil {
		return nil, err
	}
	return s.client.LogMetric(ctx, MetricPoint{RunID: runID, Step: step, Split: split, MetricName: metricName, Value: value})
}

// LogLosses 为当前运行批量写入损失值
func (s *Session) LogLosses(ctx context.Context, points []LossPoint) (int, error) {
	runID, err := s.currentRun()
	if err != nil {
		return 0, err
	}
	return s.client.LogLosses(ctx, runID, points)
}

// LogMetrics 为当前运行批量写入指标
func (s *Session) LogMetrics(ctx context.Context, points []MetricPoint) (int, error) {
	runID, err := s.currentRun()
	if err != nil {
		return 0, err
	}
	return s.client.LogMetrics(ctx, runID, points)
}

// Complete 把当前运行标记为 completed
func (s *Session) Complete(ctx context.Context) error {
	return s.finish(ctx, "completed")
}

// Fail 把当前运行标记为 failed
func (s *Session) Fail(ctx context.Context) error {
	return s.finish(ctx, "failed")
}

func (s *Session) finish(ctx context.Context, status string) error {
	runID, err := s.currentRun()
	if err != nil {
		return err
	}
	_, err = s.client.UpdateStatus(ctx, runID, status)
	return err
}

func (s *Session) currentRun() (string, error) {
	runID := s.RunID()
	if runID == "" {
		return "", ErrNoRun
	}
	return runID, nil
}
