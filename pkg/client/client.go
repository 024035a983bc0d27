// Package client 是 traintrack HTTP API 的 Go 客户端
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ashwinyue/traintrack/internal/apperr"
)

// 错误分类，可用 errors.Is 判断 APIError
var (
	ErrNotFound         = apperr.ErrNotFound
	ErrConflict         = apperr.ErrConflict
	ErrValidation       = apperr.ErrValidation
	ErrStoreUnavailable = apperr.ErrStoreUnavailable
)

// APIError 服务端返回的错误
type APIError struct {
	StatusCode int
	Msg        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("traintrack: %s (status %d)", e.Msg, e.StatusCode)
}

// Unwrap 按状态码映射到错误分类
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusBadRequest:
		return ErrValidation
	case http.StatusServiceUnavailable:
		return ErrStoreUnavailable
	}
	return nil
}

// Client API 客户端，可并发使用
type Client struct {
	api        string
	httpClient *http.Client
}

// Option 客户端选项
type Option func(*Client)

// WithHTTPClient 使用自定义 http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New 创建客户端，server 形如 http://localhost:8000
func New(server string, opts ...Option) *Client {
	c := &Client{
		api:        strings.TrimSuffix(server, "/") + "/api/v1",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ========== 数据类型 ==========

// Model 模型
type Model struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ProjectName string `json:"project_name"`
}

// Run 训练运行
type Run struct {
	ID              string                 `json:"id"`
	ModelID         string                 `json:"model_id"`
	Status          string                 `json:"status"`
	StartedAt       time.Time              `json:"started_at"`
	FinishedAt      *time.Time             `json:"finished_at"`
	Hyperparameters map[string]interface{} `json:"hyperparameters,omitempty"`
}

// LossPoint 待写入的损失值
type LossPoint struct {
	RunID string  `json:"run_id,omitempty"`
	Step  int64   `json:"step"`
	Split string  `json:"split"`
	Value float64 `json:"value"`
}

// MetricPoint 待写入的指标
type MetricPoint struct {
	RunID      string  `json:"run_id,omitempty"`
	Step       int64   `json:"step"`
	Split      string  `json:"split"`
	MetricName string  `json:"metric_name"`
	Value      float64 `json:"value"`
}

// Loss 已记录的损失值
type Loss struct {
	LossPoint
	Timestamp time.Time `json:"timestamp"`
}

// Metric 已记录的指标
type Metric struct {
	MetricPoint
	Timestamp time.Time `json:"timestamp"`
}

// ObservationQuery 观测值查询条件
type ObservationQuery struct {
	RunID      string
	Split      string
	MetricName string // 仅对指标生效
	Limit      int
}

// SessionState 服务端会话
type SessionState struct {
	ID        string    `json:"id"`
	ModelID   string    `json:"model_id,omitempty"`
	RunID     string    `json:"run_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type affected struct {
	Affected int64 `json:"affected"`
}

type inserted struct {
	Inserted int `json:"inserted"`
}

// ========== Model ==========

// CreateModel 注册模型
func (c *Client) CreateModel(ctx context.Context, name, projectName string) (*Model, error) {
	var m Model
	body := map[string]string{"name": name, "project_name": projectName}
	if err := c.do(ctx, http.MethodPost, c.apipath("models"), body, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ListModels 列出模型，projectName 为空时列出全部
func (c *Client) ListModels(ctx context.Context, projectName string) ([]Model, error) {
	path := c.apipath("models")
	if projectName != "" {
		path += "?" + url.Values{"project_name": {projectName}}.Encode()
	}

	var models []Model
	if err := c.do(ctx, http.MethodGet, path, nil, &models); err != nil {
		return nil, err
	}
	return models, nil
}

// GetModel 获取模型
func (c *Client) GetModel(ctx context.Context, id string) (*Model, error) {
	var m Model
	if err := c.do(ctx, http.MethodGet, c.apipath("models", id), nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// DeleteModel 删除模型及其运行
func (c *Client) DeleteModel(ctx context.Context, id string) (int64, error) {
	var res affected
	if err := c.do(ctx, http.MethodDelete, c.apipath("models", id), nil, &res); err != nil {
		return 0, err
	}
	return res.Affected, nil
}

// DeleteProject 删除项目下的全部模型
func (c *Client) DeleteProject(ctx context.Context, projectName string) (int64, error) {
	var res affected
	if err := c.do(ctx, http.MethodDelete, c.apipath("models", "project", projectName), nil, &res); err != nil {
		return 0, err
	}
	return res.Affected, nil
}

// ========== Run ==========

// CreateRun 开始一次运行
func (c *Client) CreateRun(ctx context.Context, modelID string, hyperparameters map[string]interface{}) (*Run, error) {
	var r Run
	body := map[string]interface{}{"model_id": modelID}
	if hyperparameters != nil {
		body["hyperparameters"] = hyperparameters
	}
	if err := c.do(ctx, http.MethodPost, c.apipath("runs"), body, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// GetRun 获取运行
func (c *Client) GetRun(ctx context.Context, id string) (*Run, error) {
	var r Run
	if err := c.do(ctx, http.MethodGet, c.apipath("runs", id), nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// RunsByModel 列出模型的运行
func (c *Client) RunsByModel(ctx context.Context, modelID string) ([]Run, error) {
	var runs []Run
	if err := c.do(ctx, http.MethodGet, c.apipath("runs", "model", modelID), nil, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

// RunsByProject 列出项目的运行
func (c *Client) RunsByProject(ctx context.Context, projectName string) ([]Run, error) {
	var runs []Run
	if err := c.do(ctx, http.MethodGet, c.apipath("runs", "project", projectName), nil, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

// UpdateStatus 把运行迁移到 completed 或 failed，返回更新行数
func (c *Client) UpdateStatus(ctx context.Context, runID, status string) (int64, error) {
	var res struct {
		RowsUpdated int64 `json:"rows_updated"`
	}
	body := map[string]string{"run_id": runID, "new_status": status}
	if err := c.do(ctx, http.MethodPatch, c.apipath("runs", "status"), body, &res); err != nil {
		return 0, err
	}
	return res.RowsUpdated, nil
}

// UpdateHyperparameters 替换运行的超参数
func (c *Client) UpdateHyperparameters(ctx context.Context, runID string, params map[string]interface{}) (*Run, error) {
	var r Run
	body := map[string]interface{}{"hyperparameters": params}
	if err := c.do(ctx, http.MethodPatch, c.apipath("runs", runID, "hyperparameters"), body, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// DeleteRuns 删除运行，返回实际删除数
func (c *Client) DeleteRuns(ctx context.Context, ids ...string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var res affected
	if err := c.do(ctx, http.MethodDelete, c.apipath("runs", strings.Join(ids, ",")), nil, &res); err != nil {
		return 0, err
	}
	return res.Affected, nil
}

// ========== Observation ==========

// LogLoss 写入一条损失值
func (c *Client) LogLoss(ctx context.Context, p LossPoint) (*Loss, error) {
	var l Loss
	if err := c.do(ctx, http.MethodPost, c.apipath("losses"), p, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// LogLosses 批量写入损失值，全部成功或全部失败
func (c *Client) LogLosses(ctx context.Context, runID string, points []LossPoint) (int, error) {
	var res inserted
	body := map[string]interface{}{"run_id": runID, "items": points}
	if err := c.do(ctx, http.MethodPost, c.apipath("losses", "batch"), body, &res); err != nil {
		return 0, err
	}
	return res.Inserted, nil
}

// ListLosses 按 step 倒序列出损失值
func (c *Client) ListLosses(ctx context.Context, q ObservationQuery) ([]Loss, error) {
	var losses []Loss
	if err := c.do(ctx, http.MethodGet, c.apipath("losses")+"?"+q.encode(false), nil, &losses); err != nil {
		return nil, err
	}
	return losses, nil
}

// LogMetric 写入一条指标
func (c *Client) LogMetric(ctx context.Context, p MetricPoint) (*Metric, error) {
	var m Metric
	if err := c.do(ctx, http.MethodPost, c.apipath("metrics"), p, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// LogMetrics 批量写入指标，全部成功或全部失败
func (c *Client) LogMetrics(ctx context.Context, runID string, points []MetricPoint) (int, error) {
	var res inserted
	body := map[string]interface{}{"run_id": runID, "items": points}
	if err := c.do(ctx, http.MethodPost, c.apipath("metrics", "batch"), body, &res); err != nil {
		return 0, err
	}
	return res.Inserted, nil
}

// ListMetrics 按 step 倒序列出指标
func (c *Client) ListMetrics(ctx context.Context, q ObservationQuery) ([]Metric, error) {
	var metrics []Metric
	if err := c.do(ctx, http.MethodGet, c.apipath("metrics")+"?"+q.encode(true), nil, &metrics); err != nil {
		return nil, err
	}
	return metrics, nil
}

func (q ObservationQuery) encode(withMetricName bool) string {
	v := url.Values{"run_id": {q.RunID}}
	if q.Split != "" {
		v.Set("split", q.Split)
	}
	if withMetricName && q.MetricName != "" {
		v.Set("metric_name", q.MetricName)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v.Encode()
}

// ========== Session ==========

// CreateSessionState 创建服务端会话
func (c *Client) CreateSessionState(ctx context.Context) (*SessionState, error) {
	var s SessionState
	if err := c.do(ctx, http.MethodPost, c.apipath("sessions"), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetSessionState 获取服务端会话
func (c *Client) GetSessionState(ctx context.Context, id string) (*SessionState, error) {
	var s SessionState
	if err := c.do(ctx, http.MethodGet, c.apipath("sessions", id), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// BindSessionState 更新服务端会话绑定的模型或运行，nil 表示不修改
func (c *Client) BindSessionState(ctx context.Context, id string, modelID, runID *string) (*SessionState, error) {
	body := map[string]*string{}
	if modelID != nil {
		body["model_id"] = modelID
	}
	if runID != nil {
		body["run_id"] = runID
	}

	var s SessionState
	if err := c.do(ctx, http.MethodPatch, c.apipath("sessions", id), body, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// DeleteSessionState 删除服务端会话
func (c *Client) DeleteSessionState(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, c.apipath("sessions", id), nil, nil)
}

// ========== 传输 ==========

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Code    int             `json:"code"`
	Msg     string          `json:"msg"`
}

func (c *Client) apipath(path ...string) string {
	escaped := make([]string, len(path))
	for i, p := range path {
		escaped[i] = url.PathEscape(strings.Trim(p, "/"))
	}
	return strings.Join(append([]string{c.api}, escaped...), "/")
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode, Msg: http.StatusText(resp.StatusCode)}
		var env envelope
		if json.Unmarshal(raw, &env) == nil && env.Msg != "" {
			apiErr.Msg = env.Msg
		}
		return apiErr
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("unexpected response (status %d): %w", resp.StatusCode, err)
	}
	if len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decoding response data: %w", err)
	}
	return nil
}
