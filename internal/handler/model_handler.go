package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/traintrack/internal/service/registry"
)

// ModelHandler 模型处理器
type ModelHandler struct {
	svc *registry.Service
}

// NewModelHandler 创建模型处理器
func NewModelHandler(svc *registry.Service) *ModelHandler {
	return &ModelHandler{svc: svc}
}

// CreateModel 注册模型
// @Summary      注册模型
// @Tags         模型管理
// @Accept       json
// @Produce      json
// @Param        request  body      registry.CreateModelRequest  true  "模型信息"
// @Success      201      {object}  SuccessResponse
// @Failure      409      {object}  ErrorResponse  "同一项目下模型名已存在"
// @Router       /models [post]
func (h *ModelHandler) CreateModel(c *gin.Context) {
	var req registry.CreateModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	m, err := h.svc.CreateModel(c.Request.Context(), &req)
	if err != nil {
		Error(c, err)
		return
	}

	Created(c, m)
}

// ListModels 列出模型
// @Summary      列出模型
// @Tags         模型管理
// @Produce      json
// @Param        project_name  query     string  false  "项目名称"
// @Success      200           {object}  SuccessResponse
// @Router       /models [get]
func (h *ModelHandler) ListModels(c *gin.Context) {
	models, err := h.svc.ListModels(c.Request.Context(), c.Query("project_name"))
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, models)
}

// GetModel 获取模型
// @Summary      获取模型
// @Tags         模型管理
// @Produce      json
// @Param        id   path      string  true  "模型ID"
// @Success      200  {object}  SuccessResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /models/{id} [get]
func (h *ModelHandler) GetModel(c *gin.Context) {
	m, err := h.svc.GetModel(c.Request.Context(), c.Param("id"))
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, m)
}

// DeleteModel 删除模型及其运行
// @Summary      删除模型
// @Tags         模型管理
// @Produce      json
// @Param        id   path      string  true  "模型ID"
// @Success      200  {object}  SuccessResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /models/{id} [delete]
func (h *ModelHandler) DeleteModel(c *gin.Context) {
	res, err := h.svc.DeleteModel(c.Request.Context(), c.Param("id"))
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, res)
}

// DeleteProject 删除项目下的全部模型
// @Summary      按项目删除模型
// @Tags         模型管理
// @Produce      json
// @Param        project_name  path      string  true  "项目名称"
// @Success      200           {object}  SuccessResponse
// @Failure      404           {object}  ErrorResponse  "项目下没有模型"
// @Router       /models/project/{project_name} [delete]
func (h *ModelHandler) DeleteProject(c *gin.Context) {
	res, err := h.svc.DeleteProject(c.Request.Context(), c.Param("project_name"))
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, res)
}
