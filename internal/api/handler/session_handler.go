package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ams-server/internal/dto"
	"ams-server/internal/service"
	"ams-server/pkg/response"
)

// SessionHandler 训练会话 HTTP 处理器
type SessionHandler struct {
	sessionSvc service.SessionService
}

// NewSessionHandler 创建 SessionHandler
func NewSessionHandler(sessionSvc service.SessionService) *SessionHandler {
	return &SessionHandler{sessionSvc: sessionSvc}
}

// ═══════════════════════════════════════════════════════════
// 会话 CRUD
// ═══════════════════════════════════════════════════════════

// ListSessions 会话聚合列表（模板附带实例统计）
// GET /api/v1/sessions?status=Upcoming&kind=template&batch_id=...
func (h *SessionHandler) ListSessions(c *gin.Context) {
	var req dto.SessionListRequest
	if !bindQuery(c, &req) {
		return
	}

	academyID, ok := MustGetAcademyID(c)
	if !ok {
		return
	}

	result, err := h.sessionSvc.List(c.Request.Context(), academyID, &req)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, result)
}

// GetSession 会话详情
// GET /api/v1/sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	academyID, ok := MustGetAcademyID(c)
	if !ok {
		return
	}

	session, err := h.sessionSvc.Get(c.Request.Context(), academyID, c.Param("id"))
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, session)
}

// CreateSession 创建会话；循环会话同时展开实例
// POST /api/v1/sessions
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req dto.CreateSessionRequest
	if !bindJSON(c, &req) {
		return
	}

	academyID, callerID, ok := mustGetCaller(c)
	if !ok {
		return
	}

	session, err := h.sessionSvc.Create(c.Request.Context(), academyID, &req, callerID)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.Created(c, session)
}

// UpdateSession 更新会话
// PUT /api/v1/sessions/:id
func (h *SessionHandler) UpdateSession(c *gin.Context) {
	var req dto.UpdateSessionRequest
	if !bindJSON(c, &req) {
		return
	}

	academyID, callerID, ok := mustGetCaller(c)
	if !ok {
		return
	}

	session, err := h.sessionSvc.Update(c.Request.Context(), academyID, c.Param("id"), &req, callerID)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, session)
}

// DeleteSession 删除会话
// DELETE /api/v1/sessions/:id
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	academyID, callerID, ok := mustGetCaller(c)
	if !ok {
		return
	}

	if err := h.sessionSvc.Delete(c.Request.Context(), academyID, c.Param("id"), callerID); err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, nil)
}

// ── 循环实例 ──

// ListOccurrences 模板的全部实例
// GET /api/v1/sessions/:id/occurrences
func (h *SessionHandler) ListOccurrences(c *gin.Context) {
	academyID, ok := MustGetAcademyID(c)
	if !ok {
		return
	}

	occurrences, err := h.sessionSvc.ListOccurrences(c.Request.Context(), academyID, c.Param("id"))
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, gin.H{"list": occurrences})
}

// SyncOccurrences 按模板规则补齐/清理实例
// POST /api/v1/sessions/:id/sync
func (h *SessionHandler) SyncOccurrences(c *gin.Context) {
	academyID, callerID, ok := mustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.sessionSvc.SyncOccurrences(c.Request.Context(), academyID, c.Param("id"), callerID)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, result)
}

// ── 出勤与评分 ──

// MarkAttendance 标记单个球员出勤
// PUT /api/v1/sessions/:id/attendance
func (h *SessionHandler) MarkAttendance(c *gin.Context) {
	var req dto.MarkAttendanceRequest
	if !bindJSON(c, &req) {
		return
	}

	academyID, callerID, ok := mustGetCaller(c)
	if !ok {
		return
	}

	session, err := h.sessionSvc.MarkAttendance(c.Request.Context(), academyID, c.Param("id"), &req, callerID)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, session)
}

// BulkMarkAttendance 批量标记出勤
// PUT /api/v1/sessions/:id/attendance/bulk
func (h *SessionHandler) BulkMarkAttendance(c *gin.Context) {
	var req dto.BulkAttendanceRequest
	if !bindJSON(c, &req) {
		return
	}

	academyID, callerID, ok := mustGetCaller(c)
	if !ok {
		return
	}

	session, err := h.sessionSvc.BulkMarkAttendance(c.Request.Context(), academyID, c.Param("id"), &req, callerID)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, session)
}

// UpdateMetrics 记录单场球员评分并回写球员档案
// PUT /api/v1/sessions/:id/metrics
func (h *SessionHandler) UpdateMetrics(c *gin.Context) {
	var req dto.SessionMetricsRequest
	if !bindJSON(c, &req) {
		return
	}

	academyID, callerID, ok := mustGetCaller(c)
	if !ok {
		return
	}

	session, err := h.sessionSvc.UpdateMetrics(c.Request.Context(), academyID, c.Param("id"), &req, callerID)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, session)
}

// ── 导入 ──

// ImportSessions 导入历史会话（JSON 数组，逐条容错）
// POST /api/v1/sessions/import
func (h *SessionHandler) ImportSessions(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
			return
		}
		response.BadRequest(c, 16010, "读取请求体失败")
		return
	}

	academyID, callerID, ok := mustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.sessionSvc.Import(c.Request.Context(), academyID, body, callerID)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, result)
}

// ImportCalendar 导入 ICS 日历文件
// POST /api/v1/sessions/import/ics  (multipart: file, batch_id)
func (h *SessionHandler) ImportCalendar(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, 16011, "请上传 ICS 文件")
		return
	}

	academyID, callerID, ok := mustGetCaller(c)
	if !ok {
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.InternalError(c)
		return
	}
	defer file.Close()

	result, err := h.sessionSvc.ImportCalendar(c.Request.Context(), academyID, file, c.PostForm("batch_id"), callerID)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *SessionHandler) handleSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(c, 16001, "训练会话不存在")
	case errors.Is(err, service.ErrInvalidTime):
		response.BadRequest(c, 16002, err.Error())
	case errors.Is(err, service.ErrInvalidRecurrence):
		response.BadRequest(c, 16003, err.Error())
	case errors.Is(err, service.ErrNoOccurrences):
		response.BadRequest(c, 16004, err.Error())
	case errors.Is(err, service.ErrNotTemplate):
		response.BadRequest(c, 16005, err.Error())
	case errors.Is(err, service.ErrTemplateNoAttendance):
		response.BadRequest(c, 16006, err.Error())
	case errors.Is(err, service.ErrPlayerNotAssigned):
		response.BadRequest(c, 16007, err.Error())
	case errors.Is(err, service.ErrOccurrenceDateFixed):
		response.BadRequest(c, 16008, err.Error())
	case errors.Is(err, service.ErrInvalidImport):
		response.BadRequest(c, 16009, err.Error())
	case errors.Is(err, service.ErrInvalidCalendar):
		response.ErrorWithDetails(c, http.StatusBadRequest, 16012, service.ErrInvalidCalendar.Error(), err.Error())
	case errors.Is(err, service.ErrBatchNotFound):
		response.BadRequest(c, 14001, "分组不存在")
	case errors.Is(err, service.ErrPlayerNotFound):
		response.BadRequest(c, 15001, "球员不存在")
	case errors.Is(err, service.ErrInvalidCoach):
		response.BadRequest(c, 14002, "指定教练不存在或不是教练角色")
	default:
		response.InternalError(c)
	}
}
