package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/traintrack/internal/service/observation"
	"github.com/ashwinyue/traintrack/internal/service/query"
)

// ObservationHandler 损失值和指标处理器
type ObservationHandler struct {
	svc   *observation.Service
	query *query.Service
}

// NewObservationHandler 创建观测值处理器
func NewObservationHandler(svc *observation.Service, query *query.Service) *ObservationHandler {
	return &ObservationHandler{svc: svc, query: query}
}

// ========== Loss ==========

// LogLoss 写入一条损失值
// @Summary      写入损失值
// @Tags         观测值
// @Accept       json
// @Produce      json
// @Param        request  body      observation.LossInput  true  "损失值"
// @Success      201      {object}  SuccessResponse
// @Failure      409      {object}  ErrorResponse  "该 step 已记录"
// @Router       /losses [post]
func (h *ObservationHandler) LogLoss(c *gin.Context) {
	var req observation.LossInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	loss, err := h.svc.LogLoss(c.Request.Context(), &req)
	if err != nil {
		Error(c, err)
		return
	}

	Created(c, loss)
}

// LogLossBatch 批量写入损失值，全部成功或全部失败
// @Summary      批量写入损失值
// @Tags         观测值
// @Accept       json
// @Produce      json
// @Param        request  body      observation.LossBatchRequest  true  "损失值列表"
// @Success      201      {object}  SuccessResponse
// @Router       /losses/batch [post]
func (h *ObservationHandler) LogLossBatch(c *gin.Context) {
	var req observation.LossBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	res, err := h.svc.LogLosses(c.Request.Context(), &req)
	if err != nil {
		Error(c, err)
		return
	}

	Created(c, res)
}

// ListLosses 按 step 倒序列出损失值
// @Summary      查询损失值
// @Tags         观测值
// @Produce      json
// @Param        run_id  query     string  true   "运行ID"
// @Param        split   query     string  false  "train 或 validation"
// @Param        limit   query     int     false  "最多返回条数"
// @Success      200     {object}  SuccessResponse
// @Router       /losses [get]
func (h *ObservationHandler) ListLosses(c *gin.Context) {
	var q query.LossQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	losses, err := h.query.Losses(c.Request.Context(), &q)
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, losses)
}

// ========== Metric ==========

// LogMetric 写入一条评估指标
// @Summary      写入指标
// @Tags         观测值
// @Accept       json
// @Produce      json
// @Param        request  body      observation.MetricInput  true  "指标"
// @Success      201      {object}  SuccessResponse
// @Router       /metrics [post]
func (h *ObservationHandler) LogMetric(c *gin.Context) {
	var req observation.MetricInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	metric, err := h.svc.LogMetric(c.Request.Context(), &req)
	if err != nil {
		Error(c, err)
		return
	}

	Created(c, metric)
}

// LogMetricBatch 批量写入评估指标
// @Summary      批量写入指标
// @Tags         观测值
// @Accept       json
// @Produce      json
// @Param        request  body      observation.MetricBatchRequest  true  "指标列表"
// @Success      201      {object}  SuccessResponse
// @Router       /metrics/batch [post]
func (h *ObservationHandler) LogMetricBatch(c *gin.Context) {
	var req observation.MetricBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	res, err := h.svc.LogMetrics(c.Request.Context(), &req)
	if err != nil {
		Error(c, err)
		return
	}

	Created(c, res)
}

// ListMetrics 按 step 倒序列出评估指标
// @Summary      查询指标
// @Tags         观测值
// @Produce      json
// @Param        run_id       query     string  true   "运行ID"
// @Param        split        query     string  false  "train 或 validation"
// @Param        metric_name  query     string  false  "指标名称"
// @Param        limit        query     int     false  "最多返回条数"
// @Success      200          {object}  SuccessResponse
// @Router       /metrics [get]
func (h *ObservationHandler) ListMetrics(c *gin.Context) {
	var q query.MetricQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	metrics, err := h.query.Metrics(c.Request.Context(), &q)
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, metrics)
}
