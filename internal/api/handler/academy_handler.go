package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"ams-server/internal/dto"
	"ams-server/internal/service"
	"ams-server/pkg/response"
)

// AcademyHandler 学院模块 HTTP 处理器（owner）
type AcademyHandler struct {
	academySvc service.AcademyService
}

// NewAcademyHandler 创建 AcademyHandler
func NewAcademyHandler(academySvc service.AcademyService) *AcademyHandler {
	return &AcademyHandler{academySvc: academySvc}
}

// ListAcademies 学院列表
// GET /api/v1/academies
func (h *AcademyHandler) ListAcademies(c *gin.Context) {
	academies, err := h.academySvc.List(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": academies})
}

// GetAcademy 学院详情
// GET /api/v1/academies/:id
func (h *AcademyHandler) GetAcademy(c *gin.Context) {
	academy, err := h.academySvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleAcademyError(c, err)
		return
	}

	response.OK(c, academy)
}

// CreateAcademy 创建学院
// POST /api/v1/academies
func (h *AcademyHandler) CreateAcademy(c *gin.Context) {
	var req dto.CreateAcademyRequest
	if !bindJSON(c, &req) {
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	academy, err := h.academySvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleAcademyError(c, err)
		return
	}

	response.Created(c, academy)
}

func (h *AcademyHandler) handleAcademyError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAcademyNotFound):
		response.NotFound(c, 13001, "学院不存在")
	case errors.Is(err, service.ErrAcademyCodeExists):
		response.Conflict(c, 13002, "学院编码已存在")
	default:
		response.InternalError(c)
	}
}
