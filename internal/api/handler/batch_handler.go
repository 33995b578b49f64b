package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"ams-server/internal/dto"
	"ams-server/internal/service"
	pkgerrors "ams-server/pkg/errors"
	"ams-server/pkg/response"
)

// BatchHandler 训练分组 HTTP 处理器
type BatchHandler struct {
	batchSvc service.BatchService
}

// NewBatchHandler 创建 BatchHandler
func NewBatchHandler(batchSvc service.BatchService) *BatchHandler {
	return &BatchHandler{batchSvc: batchSvc}
}

// ListBatches 分组列表
// GET /api/v1/batches
func (h *BatchHandler) ListBatches(c *gin.Context) {
	academyID, ok := MustGetAcademyID(c)
	if !ok {
		return
	}

	batches, err := h.batchSvc.List(c.Request.Context(), academyID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": batches})
}

// GetBatch 分组详情
// GET /api/v1/batches/:id
func (h *BatchHandler) GetBatch(c *gin.Context) {
	academyID, ok := MustGetAcademyID(c)
	if !ok {
		return
	}

	batch, err := h.batchSvc.Get(c.Request.Context(), academyID, c.Param("id"))
	if err != nil {
		h.handleBatchError(c, err)
		return
	}

	response.OK(c, batch)
}

// CreateBatch 创建分组
// POST /api/v1/batches
func (h *BatchHandler) CreateBatch(c *gin.Context) {
	var req dto.CreateBatchRequest
	if !bindJSON(c, &req) {
		return
	}

	academyID, callerID, ok := mustGetCaller(c)
	if !ok {
		return
	}

	batch, err := h.batchSvc.Create(c.Request.Context(), academyID, &req, callerID)
	if err != nil {
		h.handleBatchError(c, err)
		return
	}

	response.Created(c, batch)
}

// UpdateBatch 更新分组（需携带 version）
// PUT /api/v1/batches/:id
func (h *BatchHandler) UpdateBatch(c *gin.Context) {
	var req dto.UpdateBatchRequest
	if !bindJSON(c, &req) {
		return
	}

	academyID, callerID, ok := mustGetCaller(c)
	if !ok {
		return
	}

	batch, err := h.batchSvc.Update(c.Request.Context(), academyID, c.Param("id"), &req, callerID)
	if err != nil {
		h.handleBatchError(c, err)
		return
	}

	response.OK(c, batch)
}

// DeleteBatch 删除分组
// DELETE /api/v1/batches/:id
func (h *BatchHandler) DeleteBatch(c *gin.Context) {
	academyID, callerID, ok := mustGetCaller(c)
	if !ok {
		return
	}

	if err := h.batchSvc.Delete(c.Request.Context(), academyID, c.Param("id"), callerID); err != nil {
		h.handleBatchError(c, err)
		return
	}

	response.OK(c, nil)
}

// ListBatchPlayers 分组内球员
// GET /api/v1/batches/:id/players
func (h *BatchHandler) ListBatchPlayers(c *gin.Context) {
	academyID, ok := MustGetAcademyID(c)
	if !ok {
		return
	}

	players, err := h.batchSvc.ListPlayers(c.Request.Context(), academyID, c.Param("id"))
	if err != nil {
		h.handleBatchError(c, err)
		return
	}

	response.OK(c, gin.H{"list": players})
}

func (h *BatchHandler) handleBatchError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrBatchNotFound):
		response.NotFound(c, 14001, "分组不存在")
	case errors.Is(err, service.ErrInvalidCoach):
		response.BadRequest(c, 14002, "指定教练不存在或不是教练角色")
	case errors.Is(err, service.ErrPlayerNotFound):
		response.BadRequest(c, 14003, "指定球员不存在")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 10006, "数据已被其他操作修改，请刷新后重试")
	default:
		response.InternalError(c)
	}
}
