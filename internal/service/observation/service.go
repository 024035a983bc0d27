// Package observation 写入损失值和评估指标
package observation

import (
	"context"
	"fmt"
	"math"

	"github.com/ashwinyue/traintrack/internal/apperr"
	"github.com/ashwinyue/traintrack/internal/model"
	"github.com/ashwinyue/traintrack/internal/repository"
	"github.com/ashwinyue/traintrack/internal/telemetry"
)

// Service 观测值写入服务
type Service struct {
	repo     *repository.Repositories
	recorder telemetry.Recorder
}

// NewService 创建观测值写入服务
func NewService(repo *repository.Repositories, recorder telemetry.Recorder) *Service {
	if recorder == nil {
		recorder = telemetry.Noop{}
	}
	return &Service{repo: repo, recorder: recorder}
}

// LossInput 一条损失值
type LossInput struct {
	RunID string  `json:"run_id"`
	Step  int64   `json:"step"`
	Split string  `json:"split"`
	Value float64 `json:"value"`
}

// MetricInput 一条评估指标
type MetricInput struct {
	RunID      string  `json:"run_id"`
	Step       int64   `json:"step"`
	Split      string  `json:"split"`
	MetricName string  `json:"metric_name"`
	Value      float64 `json:"value"`
}

// LossBatchRequest 批量写入损失值请求
type LossBatchRequest struct {
	RunID string      `json:"run_id" binding:"required"`
	Items []LossInput `json:"items"`
}

// MetricBatchRequest 批量写入指标请求
type MetricBatchRequest struct {
	RunID string        `json:"run_id" binding:"required"`
	Items []MetricInput `json:"items"`
}

// BatchResult 批量写入结果
type BatchResult struct {
	Inserted int `json:"inserted"`
}

// LogLoss 写入一条损失值
func (s *Service) LogLoss(ctx context.Context, in *LossInput) (*model.Loss, error) {
	loss, err := toLoss(in)
	if err == nil {
		err = s.repo.Loss.Create(ctx, loss)
	}
	if err != nil {
		s.recorder.ObservationsRejected(ctx, telemetry.KindLoss, telemetry.Reason(err))
		return nil, fmt.Errorf("failed to log loss: %w", err)
	}

	s.recorder.ObservationsAccepted(ctx, telemetry.KindLoss, 1)
	return loss, nil
}

// LogLosses 在一个事务内写入一批损失值，任一条失败则整批拒绝
func (s *Service) LogLosses(ctx context.Context, req *LossBatchRequest) (*BatchResult, error) {
	losses, err := s.buildLosses(req)
	if err == nil {
		err = s.repo.Loss.CreateBatch(ctx, losses)
	}
	if err != nil {
		s.recorder.ObservationsRejected(ctx, telemetry.KindLoss, telemetry.Reason(err))
		return nil, fmt.Errorf("failed to log loss batch: %w", err)
	}

	s.recorder.ObservationsAccepted(ctx, telemetry.KindLoss, len(losses))
	return &BatchResult{Inserted: len(losses)}, nil
}

// LogMetric 写入一条评估指标
func (s *Service) LogMetric(ctx context.Context, in *MetricInput) (*model.Metric, error) {
	metric, err := toMetric(in)
	if err == nil {
		err = s.repo.Metric.Create(ctx, metric)
	}
	if err != nil {
		s.recorder.ObservationsRejected(ctx, telemetry.KindMetric, telemetry.Reason(err))
		return nil, fmt.Errorf("failed to log metric: %w", err)
	}

	s.recorder.ObservationsAccepted(ctx, telemetry.KindMetric, 1)
	return metric, nil
}

// LogMetrics 在一个事务内写入一批指标，任一条失败则整批拒绝
func (s *Service) LogMetrics(ctx context.Context, req *MetricBatchRequest) (*BatchResult, error) {
	metrics, err := s.buildMetrics(req)
	if err == nil {
		err = s.repo.Metric.CreateBatch(ctx, metrics)
	}
	if err != nil {
		s.recorder.ObservationsRejected(ctx, telemetry.KindMetric, telemetry.Reason(err))
		return nil, fmt.Errorf("failed to log metric batch: %w", err)
	}

	s.recorder.ObservationsAccepted(ctx, telemetry.KindMetric, len(metrics))
	return &BatchResult{Inserted: len(metrics)}, nil
}

func (s *Service) buildLosses(req *LossBatchRequest) ([]*model.Loss, error) {
	runID, err := model.ParseID("run_id", req.RunID)
	if err != nil {
		return nil, err
	}

	losses := make([]*model.Loss, 0, len(req.Items))
	seen := make(map[string]int, len(req.Items))
	for i := range req.Items {
		item := req.Items[i]
		if item.RunID == "" {
			item.RunID = runID
		}

		loss, err := toLoss(&item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		if loss.RunID != runID {
			return nil, apperr.Validation("item %d: run_id %s does not match batch run_id %s", i, loss.RunID, runID)
		}

		key := fmt.Sprintf("%d/%s", loss.Step, loss.Split)
		if j, ok := seen[key]; ok {
			return nil, apperr.Conflict("loss", "items %d and %d both log step=%d split=%s", j, i, loss.Step, loss.Split)
		}
		seen[key] = i
		losses = append(losses, loss)
	}
	return losses, nil
}

func (s *Service) buildMetrics(req *MetricBatchRequest) ([]*model.Metric, error) {
	runID, err := model.ParseID("run_id", req.RunID)
	if err != nil {
		return nil, err
	}

	metrics := make([]*model.Metric, 0, len(req.Items))
	seen := make(map[string]int, len(req.Items))
	for i := range req.Items {
		item := req.Items[i]
		if item.RunID == "" {
			item.RunID = runID
		}

		metric, err := toMetric(&item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		if metric.RunID != runID {
			return nil, apperr.Validation("item %d: run_id %s does not match batch run_id %s", i, metric.RunID, runID)
		}

		key := fmt.Sprintf("%d/%s/%s", metric.Step, metric.Split, metric.MetricName)
		if j, ok := seen[key]; ok {
			return nil, apperr.Conflict("metric", "items %d and %d both log step=%d split=%s metric_name=%s",
				j, i, metric.Step, metric.Split, metric.MetricName)
		}
		seen[key] = i
		metrics = append(metrics, metric)
	}
	return metrics, nil
}

func toLoss(in *LossInput) (*model.Loss, error) {
	runID, err := validatePoint(in.RunID, in.Step, in.Value)
	if err != nil {
		return nil, err
	}
	split, err := model.ParseSplit(in.Split)
	if err != nil {
		return nil, err
	}
	return &model.Loss{RunID: runID, Step: in.Step, Split: split, Value: in.Value}, nil
}

func toMetric(in *MetricInput) (*model.Metric, error) {
	runID, err := validatePoint(in.RunID, in.Step, in.Value)
	if err != nil {
		return nil, err
	}
	split, err := model.ParseSplit(in.Split)
	if err != nil {
		return nil, err
	}
	name, err := model.ParseMetricName(in.MetricName)
	if err != nil {
		return nil, err
	}
	return &model.Metric{RunID: runID, Step: in.Step, Split: split, MetricName: name, Value: in.Value}, nil
}

// validatePoint 校验观测值公共字段，返回规范的 run_id
func validatePoint(runID string, step int64, value float64) (string, error) {
	runID, err := model.ParseID("run_id", runID)
	if err != nil {
		return "", err
	}
	if step < 0 {
		return "", apperr.Validation("step must be >= 0, got %d", step)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return "", apperr.Validation("value must be finite, got %v", value)
	}
	return runID, nil
}
