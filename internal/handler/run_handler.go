package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/traintrack/internal/service/query"
	"github.com/ashwinyue/traintrack/internal/service/run"
)

// RunHandler 训练运行处理器
type RunHandler struct {
	svc   *run.Service
	query *query.Service
}

// NewRunHandler 创建训练运行处理器
func NewRunHandler(svc *run.Service, query *query.Service) *RunHandler {
	return &RunHandler{svc: svc, query: query}
}

// UpdateHyperparametersRequest 更新超参数请求
type UpdateHyperparametersRequest struct {
	Hyperparameters map[string]interface{} `json:"hyperparameters" binding:"required"`
}

// CreateRun 开始一次训练运行
// @Summary      开始运行
// @Tags         训练运行
// @Accept       json
// @Produce      json
// @Param        request  body      run.CreateRunRequest  true  "模型ID和超参数"
// @Success      201      {object}  SuccessResponse
// @Failure      404      {object}  ErrorResponse  "模型不存在"
// @Router       /runs [post]
func (h *RunHandler) CreateRun(c *gin.Context) {
	var req run.CreateRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	r, err := h.svc.CreateRun(c.Request.Context(), &req)
	if err != nil {
		Error(c, err)
		return
	}

	Created(c, r)
}

// GetRun 获取运行
// @Summary      获取运行
// @Tags         训练运行
// @Produce      json
// @Param        id   path      string  true  "运行ID"
// @Success      200  {object}  SuccessResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /runs/{id} [get]
func (h *RunHandler) GetRun(c *gin.Context) {
	r, err := h.svc.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, r)
}

// ListByModel 列出模型的运行
// @Summary      按模型列出运行
// @Tags         训练运行
// @Produce      json
// @Param        model_id  path      string  true  "模型ID"
// @Success      200       {object}  SuccessResponse
// @Failure      404       {object}  ErrorResponse  "模型不存在"
// @Router       /runs/model/{model_id} [get]
func (h *RunHandler) ListByModel(c *gin.Context) {
	runs, err := h.query.RunsByModel(c.Request.Context(), c.Param("model_id"))
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, runs)
}

// ListByProject 列出项目的运行
// @Summary      按项目列出运行
// @Tags         训练运行
// @Produce      json
// @Param        project_name  path      string  true  "项目名称"
// @Success      200           {object}  SuccessResponse
// @Failure      404           {object}  ErrorResponse  "项目下没有模型"
// @Router       /runs/project/{project_name} [get]
func (h *RunHandler) ListByProject(c *gin.Context) {
	runs, err := h.query.RunsByProject(c.Request.Context(), c.Param("project_name"))
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, runs)
}

// UpdateStatus 把运行迁移到 completed 或 failed
// @Summary      更新运行状态
// @Tags         训练运行
// @Accept       json
// @Produce      json
// @Param        request  body      run.TransitionRequest  true  "运行ID和目标状态"
// @Success      200      {object}  SuccessResponse
// @Failure      404      {object}  ErrorResponse  "运行不存在"
// @Failure      409      {object}  ErrorResponse  "运行已结束"
// @Router       /runs/status [patch]
func (h *RunHandler) UpdateStatus(c *gin.Context) {
	var req run.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	res, err := h.svc.Transition(c.Request.Context(), &req)
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, res)
}

// UpdateHyperparameters 替换运行的超参数
// @Summary      更新超参数
// @Tags         训练运行
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "运行ID"
// @Param        request  body      UpdateHyperparametersRequest  true  "超参数"
// @Success      200      {object}  SuccessResponse
// @Failure      404      {object}  ErrorResponse
// @Router       /runs/{id}/hyperparameters [patch]
func (h *RunHandler) UpdateHyperparameters(c *gin.Context) {
	var req UpdateHyperparametersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	r, err := h.svc.UpdateHyperparameters(c.Request.Context(), c.Param("id"), req.Hyperparameters)
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, r)
}

// DeleteRuns 删除一个或多个运行
// @Summary      删除运行
// @Tags         训练运行
// @Produce      json
// @Param        ids  path      string  true  "逗号分隔的运行ID"
// @Success      200  {object}  SuccessResponse
// @Failure      400  {object}  ErrorResponse  "运行ID格式错误"
// @Router       /runs/{ids} [delete]
func (h *RunHandler) DeleteRuns(c *gin.Context) {
	res, err := h.svc.DeleteRuns(c.Request.Context(), c.Param("ids"))
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, res)
}
