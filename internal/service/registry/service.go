// Package registry 管理模型及其所属项目
package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/ashwinyue/traintrack/internal/apperr"
	"github.com/ashwinyue/traintrack/internal/model"
	"github.com/ashwinyue/traintrack/internal/repository"
)

// Service 模型注册服务
type Service struct {
	repo *repository.Repositories
}

// NewService 创建模型注册服务
func NewService(repo *repository.Repositories) *Service {
	return &Service{repo: repo}
}

// CreateModelRequest 创建模型请求
type CreateModelRequest struct {
	Name        string `json:"name" binding:"required"`
	ProjectName string `json:"project_name" binding:"required"`
}

// DeleteResult 删除结果
type DeleteResult struct {
	Affected int64 `json:"affected"`
}

// CreateModel 注册模型，(name, project_name) 已存在时返回 Conflict
func (s *Service) CreateModel(ctx context.Context, req *CreateModelRequest) (*model.Model, error) {
	name := strings.TrimSpace(req.Name)
	project := strings.TrimSpace(req.ProjectName)
	if name == "" || project == "" {
		return nil, apperr.Validation("model name and project name are required")
	}

	m := &model.Model{Name: name, ProjectName: project}
	if err := s.repo.Model.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to create model: %w", err)
	}
	return m, nil
}

// ListModels 列出模型，projectName 为空时列出全部
func (s *Service) ListModels(ctx context.Context, projectName string) ([]*model.Model, error) {
	models, err := s.repo.Model.List(ctx, projectName)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	return models, nil
}

// GetModel 获取模型
func (s *Service) GetModel(ctx context.Context, id string) (*model.Model, error) {
	id, err := model.ParseID("model id", id)
	if err != nil {
		return nil, err
	}
	m, err := s.repo.Model.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get model: %w", err)
	}
	return m, nil
}

// DeleteModel 删除模型及其运行和观测值
func (s *Service) DeleteModel(ctx context.Context, id string) (*DeleteResult, error) {
	id, err := model.ParseID("model id", id)
	if err != nil {
		return nil, err
	}
	n, err := s.repo.Model.Delete(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete model: %w", err)
	}
	if n == 0 {
		return nil, apperr.NotFound("model", "id=%s", id)
	}
	return &DeleteResult{Affected: n}, nil
}

// DeleteProject 删除项目下的全部模型，没有任何模型时返回 NotFound
func (s *Service) DeleteProject(ctx context.Context, projectName string) (*DeleteResult, error) {
	if strings.TrimSpace(projectName) == "" {
		return nil, apperr.Validation("project name is required")
	}

	n, err := s.repo.Model.DeleteByProject(ctx, projectName)
	if err != nil {
		return nil, fmt.Errorf("failed to delete project: %w", err)
	}
	if n == 0 {
		return nil, apperr.NotFound("project", "%q has no models", projectName)
	}
	return &DeleteResult{Affected: n}, nil
}
