package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ams-server/internal/api/middleware"
	"ams-server/pkg/jwt"
	"ams-server/pkg/response"
)

// mustGetString 从 Gin 上下文中安全提取字符串值。
// 如果 JWT 中间件未正确注入，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func mustGetString(c *gin.Context, key string) (string, bool) {
	v, exists := c.Get(key)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
func MustGetUserID(c *gin.Context) (string, bool) {
	return mustGetString(c, middleware.CtxUserID)
}

// MustGetRole 从 Gin 上下文中安全提取 role。
func MustGetRole(c *gin.Context) (string, bool) {
	return mustGetString(c, middleware.CtxRole)
}

// MustGetAcademyID 从 Gin 上下文中安全提取 academy_id，所有业务查询都以它限定租户。
func MustGetAcademyID(c *gin.Context) (string, bool) {
	return mustGetString(c, middleware.CtxAcademyID)
}

// mustGetCaller 同时提取 academy_id 与 user_id
func mustGetCaller(c *gin.Context) (academyID, userID string, ok bool) {
	if academyID, ok = MustGetAcademyID(c); !ok {
		return "", "", false
	}
	if userID, ok = MustGetUserID(c); !ok {
		return "", "", false
	}
	return academyID, userID, true
}

// GetClaims 当前请求的 Access Token 声明，未认证时返回 nil
func GetClaims(c *gin.Context) *jwt.Claims {
	v, exists := c.Get(middleware.CtxClaims)
	if !exists {
		return nil
	}
	claims, _ := v.(*jwt.Claims)
	return claims
}

// bindJSON 绑定 JSON 请求体，失败时写入 400（超出大小限制时 413）
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
			return false
		}
		response.ValidationFailed(c, err)
		return false
	}
	return true
}

// bindQuery 绑定查询参数，失败时写入 400
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		response.ValidationFailed(c, err)
		return false
	}
	return true
}
