// Package query 提供运行和观测值的只读查询
//
// 每个列表查询先确认所属实体存在：不存在返回 NotFound，存在则返回可能为空的列表。
package query

import (
	"context"
	"fmt"

	"github.com/ashwinyue/traintrack/internal/apperr"
	"github.com/ashwinyue/traintrack/internal/model"
	"github.com/ashwinyue/traintrack/internal/repository"
)

// Service 查询服务
type Service struct {
	repo *repository.Repositories
}

// NewService 创建查询服务
func NewService(repo *repository.Repositories) *Service {
	return &Service{repo: repo}
}

// LossQuery 损失值查询参数
type LossQuery struct {
	RunID string `form:"run_id" binding:"required"`
	Split string `form:"split"`
	Limit int    `form:"limit"`
}

// MetricQuery 指标查询参数
type MetricQuery struct {
	RunID      string `form:"run_id" binding:"required"`
	Split      string `form:"split"`
	MetricName string `form:"metric_name"`
	Limit      int    `form:"limit"`
}

// RunsByModel 列出模型的运行，按开始时间倒序
func (s *Service) RunsByModel(ctx context.Context, modelID string) ([]*model.TrainingRun, error) {
	modelID, err := model.ParseID("model id", modelID)
	if err != nil {
		return nil, err
	}
	if _, err := s.repo.Model.GetByID(ctx, modelID); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	runs, err := s.repo.Run.ListByModel(ctx, modelID)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// RunsByProject 列出项目下所有模型的运行，按开始时间倒序
func (s *Service) RunsByProject(ctx context.Context, projectName string) ([]*model.TrainingRun, error) {
	ok, err := s.repo.Model.ProjectExists(ctx, projectName)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	if !ok {
		return nil, apperr.NotFound("project", "%q has no models", projectName)
	}

	runs, err := s.repo.Run.ListByProject(ctx, projectName)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// Losses 按 step 倒序列出运行的损失值
func (s *Service) Losses(ctx context.Context, q *LossQuery) ([]*model.Loss, error) {
	runID, err := model.ParseID("run_id", q.RunID)
	if err != nil {
		return nil, err
	}
	filter := repository.ObservationFilter{RunID: runID, Limit: q.Limit}
	if q.Split != "" {
		split, err := model.ParseSplit(q.Split)
		if err != nil {
			return nil, err
		}
		filter.Split = split
	}

	if err := s.requireRun(ctx, runID); err != nil {
		return nil, fmt.Errorf("failed to list losses: %w", err)
	}

	losses, err := s.repo.Loss.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list losses: %w", err)
	}
	return losses, nil
}

// Metrics 按 step 倒序列出运行的评估指标
func (s *Service) Metrics(ctx context.Context, q *MetricQuery) ([]*model.Metric, error) {
	runID, err := model.ParseID("run_id", q.RunID)
	if err != nil {
		return nil, err
	}
	filter := repository.ObservationFilter{RunID: runID, Limit: q.Limit}
	if q.Split != "" {
		split, err := model.ParseSplit(q.Split)
		if err != nil {
			return nil, err
		}
		filter.Split = split
	}
	if q.MetricName != "" {
		name, err := model.ParseMetricName(q.MetricName)
		if err != nil {
			return nil, err
		}
		filter.MetricName = name
	}

	if err := s.requireRun(ctx, runID); err != nil {
		return nil, fmt.Errorf("failed to list metrics: %w", err)
	}

	metrics, err := s.repo.Metric.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list metrics: %w", err)
	}
	return metrics, nil
}

func (s *Service) requireRun(ctx context.Context, runID string) error {
	ok, err := s.repo.Run.Exists(ctx, runID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("training run", "id=%s", runID)
	}
	return nil
}
