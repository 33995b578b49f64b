package dto

// ── 学院模块 DTO ──

// CreateAcademyRequest 创建学院请求
type CreateAcademyRequest struct {
	Code         string `json:"code"          binding:"required,alphanum,min=2,max=30"`
	Name         string `json:"name"          binding:"required,min=2,max=100"`
	Location     string `json:"location"      binding:"omitempty,max=200"`
	ContactEmail string `json:"contact_email" binding:"omitempty,email"`
}

// AcademyResponse 学院响应
type AcademyResponse struct {
	ID           string `json:"id"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	Location     string `json:"location,omitempty"`
	ContactEmail string `json:"contact_email,omitempty"`
	IsActive     bool   `json:"is_active"`
	CreatedAt    string `json:"created_at"`
}
