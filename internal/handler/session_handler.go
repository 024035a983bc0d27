package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ashwinyue/traintrack/internal/apperr"
	"github.com/ashwinyue/traintrack/internal/service/session"
)

// SessionHandler 追踪会话处理器
type SessionHandler struct {
	mgr *session.Manager
}

// NewSessionHandler 创建会话处理器
func NewSessionHandler(mgr *session.Manager) *SessionHandler {
	return &SessionHandler{mgr: mgr}
}

// BindRequest 绑定会话的模型或运行
type BindRequest struct {
	ModelID *string `json:"model_id"`
	RunID   *string `json:"run_id"`
}

// CreateSession 创建会话
// @Summary      创建会话
// @Tags         会话
// @Produce      json
// @Success      201  {object}  SuccessResponse
// @Router       /sessions [post]
func (h *SessionHandler) CreateSession(c *gin.Context) {
	sess, err := h.mgr.Create(c.Request.Context())
	if err != nil {
		Error(c, err)
		return
	}

	Created(c, sess)
}

// GetSession 获取会话
// @Summary      获取会话
// @Tags         会话
// @Produce      json
// @Param        id   path      string  true  "会话ID"
// @Success      200  {object}  SuccessResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /sessions/{id} [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	sess, err := h.mgr.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, sess)
}

// BindSession 更新会话绑定的模型或运行
// @Summary      绑定模型或运行
// @Tags         会话
// @Accept       json
// @Produce      json
// @Param        id       path      string       true  "会话ID"
// @Param        request  body      BindRequest  true  "模型ID或运行ID"
// @Success      200      {object}  SuccessResponse
// @Failure      404      {object}  ErrorResponse
// @Router       /sessions/{id} [patch]
func (h *SessionHandler) BindSession(c *gin.Context) {
	var req BindRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if req.ModelID == nil && req.RunID == nil {
		Error(c, apperr.Validation("model_id or run_id is required"))
		return
	}

	ctx := c.Request.Context()
	id := c.Param("id")

	var (
		sess *session.Session
		err  error
	)
	if req.ModelID != nil {
		if sess, err = h.mgr.BindModel(ctx, id, *req.ModelID); err != nil {
			Error(c, err)
			return
		}
	}
	if req.RunID != nil {
		if sess, err = h.mgr.BindRun(ctx, id, *req.RunID); err != nil {
			Error(c, err)
			return
		}
	}

	Success(c, sess)
}

// DeleteSession 删除会话
// @Summary      删除会话
// @Tags         会话
// @Param        id   path  string  true  "会话ID"
// @Success      204
// @Failure      404  {object}  ErrorResponse
// @Router       /sessions/{id} [delete]
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	if err := h.mgr.Delete(c.Request.Context(), c.Param("id")); err != nil {
		Error(c, err)
		return
	}

	NoContent(c)
}
