// Package run 管理训练运行的生命周期
//
// 运行创建时处于 running，只能迁移一次到 completed 或 failed。
package run

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/datatypes"

	"github.com/ashwinyue/traintrack/internal/apperr"
	"github.com/ashwinyue/traintrack/internal/model"
	"github.com/ashwinyue/traintrack/internal/repository"
	"github.com/ashwinyue/traintrack/internal/telemetry"
)

// Service 训练运行服务
type Service struct {
	repo     *repository.Repositories
	recorder telemetry.Recorder
}

// NewService 创建训练运行服务
func NewService(repo *repository.Repositories, recorder telemetry.Recorder) *Service {
	if recorder == nil {
		recorder = telemetry.Noop{}
	}
	return &Service{repo: repo, recorder: recorder}
}

// CreateRunRequest 创建运行请求
type CreateRunRequest struct {
	ModelID         string                 `json:"model_id" binding:"required"`
	Hyperparameters map[string]interface{} `json:"hyperparameters"`
}

// TransitionRequest 状态迁移请求
type TransitionRequest struct {
	RunID     string `json:"run_id" binding:"required"`
	NewStatus string `json:"new_status" binding:"required"`
}

// TransitionResult 状态迁移结果
type TransitionResult struct {
	RowsUpdated int64 `json:"rows_updated"`
}

// DeleteResult 删除结果
type DeleteResult struct {
	Affected int64 `json:"affected"`
}

// CreateRun 为模型开始一次运行
func (s *Service) CreateRun(ctx context.Context, req *CreateRunRequest) (*model.TrainingRun, error) {
	modelID, err := model.ParseID("model_id", req.ModelID)
	if err != nil {
		return nil, err
	}

	run := &model.TrainingRun{ModelID: modelID}
	if req.Hyperparameters != nil {
		run.Hyperparameters = datatypes.JSONMap(req.Hyperparameters)
	}

	if err := s.repo.Run.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// GetRun 获取运行
func (s *Service) GetRun(ctx context.Context, id string) (*model.TrainingRun, error) {
	id, err := model.ParseID("run id", id)
	if err != nil {
		return nil, err
	}
	run, err := s.repo.Run.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// Transition 把运行迁移到终态
// 运行不存在返回 NotFound，已处于终态返回 Conflict，目标为 running 返回校验错误。
func (s *Service) Transition(ctx context.Context, req *TransitionRequest) (*TransitionResult, error) {
	runID, err := model.ParseID("run_id", req.RunID)
	if err != nil {
		return nil, err
	}
	status, err := model.ParseRunStatus(req.NewStatus)
	if err != nil {
		return nil, err
	}
	if !status.Terminal() {
		return nil, apperr.Validation("a run can only move to %s or %s", model.RunStatusCompleted, model.RunStatusFailed)
	}

	n, err := s.repo.Run.Transition(ctx, runID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to update run status: %w", err)
	}

	if n == 0 {
		current, err := s.repo.Run.GetByID(ctx, runID)
		if err != nil {
			return nil, fmt.Errorf("failed to update run status: %w", err)
		}
		return nil, apperr.Conflict("training run", "id=%s is already %s", runID, current.Status)
	}

	s.recorder.RunTransitioned(ctx, string(status))
	return &TransitionResult{RowsUpdated: n}, nil
}

// UpdateHyperparameters 替换运行的超参数
func (s *Service) UpdateHyperparameters(ctx context.Context, id string, params map[string]interface{}) (*model.TrainingRun, error) {
	id, err := model.ParseID("run id", id)
	if err != nil {
		return nil, err
	}
	if params == nil {
		params = map[string]interface{}{}
	}

	n, err := s.repo.Run.UpdateHyperparameters(ctx, id, datatypes.JSONMap(params))
	if err != nil {
		return nil, fmt.Errorf("failed to update hyperparameters: %w", err)
	}
	if n == 0 {
		return nil, apperr.NotFound("training run", "id=%s", id)
	}
	return s.GetRun(ctx, id)
}

// DeleteRuns 删除一个或多个运行，ids 为逗号分隔的 UUID 列表
// 返回实际删除的行数，0 不是错误
func (s *Service) DeleteRuns(ctx context.Context, ids string) (*DeleteResult, error) {
	parsed, err := ParseIDs(ids)
	if err != nil {
		return nil, err
	}

	n, err := s.repo.Run.DeleteByIDs(ctx, parsed)
	if err != nil {
		return nil, fmt.Errorf("failed to delete runs: %w", err)
	}
	return &DeleteResult{Affected: n}, nil
}

// ParseIDs 解析逗号分隔的运行 ID，去重并保持顺序
func ParseIDs(raw string) ([]string, error) {
	var ids []string
	seen := make(map[string]bool)

	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, err := model.ParseID("run id", part)
		if err != nil {
			return nil, err
		}
		if !seen[key] {
			seen[key] = true
			ids = append(ids, key)
		}
	}

	if len(ids) == 0 {
		return nil, apperr.Validation("at least one run id is required")
	}
	return ids, nil
}
