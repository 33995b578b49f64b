package dto

// ── 训练分组 DTO ──

// CreateBatchRequest 创建分组请求
type CreateBatchRequest struct {
	Name      string   `json:"name"       binding:"required,min=1,max=100"`
	CoachIDs  []string `json:"coach_ids"  binding:"omitempty,dive,uuid"`
	PlayerIDs []string `json:"player_ids" binding:"omitempty,dive,uuid"`
}

// UpdateBatchRequest 更新分组请求
type UpdateBatchRequest struct {
	Name      *string   `json:"name"       binding:"omitempty,min=1,max=100"`
	CoachIDs  *[]string `json:"coach_ids"  binding:"omitempty,dive,uuid"`
	PlayerIDs *[]string `json:"player_ids" binding:"omitempty,dive,uuid"`
	Version   int       `json:"version"    binding:"required,min=1"`
}

// BatchBrief 分组简要信息
type BatchBrief struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// BatchResponse 分组响应
type BatchResponse struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	CoachIDs  []string `json:"coach_ids"`
	PlayerIDs []string `json:"player_ids"`
	Version   int      `json:"version"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}
