package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"ams-server/internal/dto"
	"ams-server/internal/service"
	"ams-server/pkg/response"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportSessions 导出训练会话 Excel（会话 + 场次两张表）
// GET /api/v1/export/sessions?status=&kind=&batch_id=&from=&to=
func (h *ExportHandler) ExportSessions(c *gin.Context) {
	var req dto.SessionListRequest
	if !bindQuery(c, &req) {
		return
	}

	academyID, ok := MustGetAcademyID(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportSessions(c.Request.Context(), academyID, &req)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	response.Attachment(c, filename, contentTypeXLSX, buf.Bytes())
}

// ExportCalendar 导出 ICS 日历，可直接订阅到日历应用
// GET /api/v1/export/calendar
func (h *ExportHandler) ExportCalendar(c *gin.Context) {
	var req dto.SessionListRequest
	if !bindQuery(c, &req) {
		return
	}

	academyID, ok := MustGetAcademyID(c)
	if !ok {
		return
	}

	content, filename, err := h.exportSvc.ExportCalendar(c.Request.Context(), academyID, &req)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	response.Attachment(c, filename, contentTypeICS, content)
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportNoSessions):
		response.NotFound(c, 18001, "所选范围内没有训练会话")
	case errors.Is(err, service.ErrInvalidTime):
		response.BadRequest(c, 18002, "日期格式无效")
	default:
		response.InternalError(c)
	}
}
