package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ams-server/internal/dto"
	"ams-server/internal/model"
	"ams-server/internal/service"
	"ams-server/pkg/response"
)

// UserHandler 用户模块 HTTP 处理器
type UserHandler struct {
	userSvc service.UserService
}

// NewUserHandler 创建 UserHandler
func NewUserHandler(userSvc service.UserService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

// CreateUser 创建教练/学员/管理员账号
// POST /api/v1/users
//
// owner 可通过 academy_id 为其他学院开设账号
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req dto.CreateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	academyID, callerID, ok := mustGetCaller(c)
	if !ok {
		return
	}
	if req.AcademyID != "" && req.AcademyID != academyID {
		if role, _ := MustGetRole(c); role != model.RoleOwner {
			response.Forbidden(c, 10003, "无权为其他学院创建账号")
			return
		}
		academyID = req.AcademyID
	}

	user, err := h.userSvc.CreateUser(c.Request.Context(), academyID, &req, callerID)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.Created(c, user)
}

// ListUsers 用户列表
// GET /api/v1/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	var req dto.UserListRequest
	if !bindQuery(c, &req) {
		return
	}

	academyID, ok := MustGetAcademyID(c)
	if !ok {
		return
	}

	users, total, err := h.userSvc.List(c.Request.Context(), academyID, &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OKPage(c, users, total, req.GetPage(), req.GetPageSize())
}

// GetUser 用户详情
// GET /api/v1/users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	academyID, ok := MustGetAcademyID(c)
	if !ok {
		return
	}

	user, err := h.userSvc.GetByID(c.Request.Context(), academyID, c.Param("id"))
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OK(c, user)
}

// UpdateUser 更新用户
// PUT /api/v1/users/:id
func (h *UserHandler) UpdateUser(c *gin.Context) {
	var req dto.UpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	academyID, callerID, ok := mustGetCaller(c)
	if !ok {
		return
	}

	user, err := h.userSvc.Update(c.Request.Context(), academyID, c.Param("id"), &req, callerID)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OK(c, user)
}

// DeleteUser 删除用户
// DELETE /api/v1/users/:id
func (h *UserHandler) DeleteUser(c *gin.Context) {
	academyID, callerID, ok := mustGetCaller(c)
	if !ok {
		return
	}

	if err := h.userSvc.Delete(c.Request.Context(), academyID, c.Param("id"), callerID); err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OK(c, nil)
}

// ResetPassword 重置密码，返回临时密码
// POST /api/v1/users/:id/reset-password
func (h *UserHandler) ResetPassword(c *gin.Context) {
	academyID, callerID, ok := mustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.userSvc.ResetPassword(c.Request.Context(), academyID, c.Param("id"), callerID)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OK(c, result)
}

// ImportUsers Excel 批量导入账号
// POST /api/v1/users/import  multipart/form-data, field="file"
func (h *UserHandler) ImportUsers(c *gin.Context) {
	academyID, callerID, ok := mustGetCaller(c)
	if !ok {
		return
	}

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		response.BadRequest(c, 12010, "请上传 Excel 文件")
		return
	}
	defer file.Close()

	rows, err := h.userSvc.ParseImportFile(file)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrImportNoData), errors.Is(err, service.ErrImportBadHeader), errors.Is(err, service.ErrImportTooManyRows):
			h.handleUserError(c, err)
		default:
			response.ErrorWithDetails(c, http.StatusBadRequest, 12014, "无法解析 Excel 文件", err.Error())
		}
		return
	}

	result, err := h.userSvc.ImportUsers(c.Request.Context(), academyID, rows, callerID)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	response.OK(c, result)
}

func (h *UserHandler) handleUserError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 12001, "用户不存在")
	case errors.Is(err, service.ErrUsernameExists):
		response.Conflict(c, 12002, "用户名已存在")
	case errors.Is(err, service.ErrUserSelfRoleChange):
		response.BadRequest(c, 12003, "不能修改自己的角色")
	case errors.Is(err, service.ErrUserSelfDelete):
		response.BadRequest(c, 12004, "不能删除自己")
	case errors.Is(err, service.ErrNoPermission):
		response.Forbidden(c, 12005, "无权操作该用户")
	case errors.Is(err, service.ErrImportNoData):
		response.BadRequest(c, 12011, "Excel文件无数据行")
	case errors.Is(err, service.ErrImportBadHeader):
		response.BadRequest(c, 12012, "Excel表头缺少必要列（用户名/姓名/角色）")
	case errors.Is(err, service.ErrImportTooManyRows):
		response.BadRequest(c, 12013, err.Error())
	default:
		response.InternalError(c)
	}
}
