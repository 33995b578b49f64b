package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"ams-server/internal/dto"
	"ams-server/internal/service"
	pkgerrors "ams-server/pkg/errors"
	"ams-server/pkg/response"
)

// PlayerHandler 球员档案 HTTP 处理器
type PlayerHandler struct {
	playerSvc service.PlayerService
}

// NewPlayerHandler 创建 PlayerHandler
func NewPlayerHandler(playerSvc service.PlayerService) *PlayerHandler {
	return &PlayerHandler{playerSvc: playerSvc}
}

// ListPlayers 球员列表
// GET /api/v1/players
func (h *PlayerHandler) ListPlayers(c *gin.Context) {
	academyID, ok := MustGetAcademyID(c)
	if !ok {
		return
	}

	players, err := h.playerSvc.List(c.Request.Context(), academyID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": players})
}

// GetPlayer 球员档案
// GET /api/v1/players/:id
func (h *PlayerHandler) GetPlayer(c *gin.Context) {
	academyID, ok := MustGetAcademyID(c)
	if !ok {
		return
	}

	player, err := h.playerSvc.Get(c.Request.Context(), academyID, c.Param("id"))
	if err != nil {
		h.handlePlayerError(c, err)
		return
	}

	response.OK(c, player)
}

// CreatePlayer 创建球员
// POST /api/v1/players
func (h *PlayerHandler) CreatePlayer(c *gin.Context) {
	var req dto.CreatePlayerRequest
	if !bindJSON(c, &req) {
		return
	}

	academyID, callerID, ok := mustGetCaller(c)
	if !ok {
		return
	}

	player, err := h.playerSvc.Create(c.Request.Context(), academyID, &req, callerID)
	if err != nil {
		h.handlePlayerError(c, err)
		return
	}

	response.Created(c, player)
}

// UpdatePlayer 更新球员基本信息
// PUT /api/v1/players/:id
func (h *PlayerHandler) UpdatePlayer(c *gin.Context) {
	var req dto.UpdatePlayerRequest
	if !bindJSON(c, &req) {
		return
	}

	academyID, callerID, ok := mustGetCaller(c)
	if !ok {
		return
	}

	player, err := h.playerSvc.Update(c.Request.Context(), academyID, c.Param("id"), &req, callerID)
	if err != nil {
		h.handlePlayerError(c, err)
		return
	}

	response.OK(c, player)
}

// DeletePlayer 删除球员
// DELETE /api/v1/players/:id
func (h *PlayerHandler) DeletePlayer(c *gin.Context) {
	academyID, callerID, ok := mustGetCaller(c)
	if !ok {
		return
	}

	if err := h.playerSvc.Delete(c.Request.Context(), academyID, c.Param("id"), callerID); err != nil {
		h.handlePlayerError(c, err)
		return
	}

	response.OK(c, nil)
}

// UpdateMetrics 更新能力项与训练评分
// PUT /api/v1/players/:id/metrics
func (h *PlayerHandler) UpdateMetrics(c *gin.Context) {
	var req dto.UpdateMetricsRequest
	if !bindJSON(c, &req) {
		return
	}

	academyID, callerID, ok := mustGetCaller(c)
	if !ok {
		return
	}

	player, err := h.playerSvc.UpdateMetrics(c.Request.Context(), academyID, c.Param("id"), &req, callerID)
	if err != nil {
		h.handlePlayerError(c, err)
		return
	}

	response.OK(c, player)
}

// UpdateMatchPoints 记录比赛积分
// PUT /api/v1/players/:id/match-points
func (h *PlayerHandler) UpdateMatchPoints(c *gin.Context) {
	var req dto.UpdateMatchPointsRequest
	if !bindJSON(c, &req) {
		return
	}

	academyID, callerID, ok := mustGetCaller(c)
	if !ok {
		return
	}

	player, err := h.playerSvc.UpdateMatchPoints(c.Request.Context(), academyID, c.Param("id"), &req, callerID)
	if err != nil {
		h.handlePlayerError(c, err)
		return
	}

	response.OK(c, player)
}

// ListPerformance 成绩历史（新到旧）
// GET /api/v1/players/:id/performance?limit=20
func (h *PlayerHandler) ListPerformance(c *gin.Context) {
	var req dto.PerformanceListRequest
	if !bindQuery(c, &req) {
		return
	}

	academyID, ok := MustGetAcademyID(c)
	if !ok {
		return
	}

	history, err := h.playerSvc.ListPerformance(c.Request.Context(), academyID, c.Param("id"), req.Limit)
	if err != nil {
		h.handlePlayerError(c, err)
		return
	}

	response.OK(c, gin.H{"list": history})
}

func (h *PlayerHandler) handlePlayerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPlayerNotFound):
		response.NotFound(c, 15001, "球员不存在")
	case errors.Is(err, service.ErrInvalidTime):
		response.BadRequest(c, 15003, "日期格式无效")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 10006, "数据已被其他操作修改，请刷新后重试")
	default:
		response.InternalError(c)
	}
}
