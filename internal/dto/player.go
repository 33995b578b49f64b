package dto

// ── 球员模块 DTO ──

// CreatePlayerRequest 创建球员请求
type CreatePlayerRequest struct {
	Name     string `json:"name"      binding:"required,min=1,max=100"`
	Position string `json:"position"  binding:"omitempty,max=30"`
	PhotoURL string `json:"photo_url" binding:"omitempty,url,max=500"`
	UserID   string `json:"user_id"   binding:"omitempty,uuid"`
}

// UpdatePlayerRequest 更新球员请求
type UpdatePlayerRequest struct {
	Name     *string `json:"name"      binding:"omitempty,min=1,max=100"`
	Position *string `json:"position"  binding:"omitempty,max=30"`
	PhotoURL *string `json:"photo_url" binding:"omitempty,url,max=500"`
	UserID   *string `json:"user_id"   binding:"omitempty,uuid"`
}

// UpdateMetricsRequest 更新球员能力项请求
type UpdateMetricsRequest struct {
	Attributes     AttributesInput `json:"attributes"      binding:"required"`
	SessionRating  float64         `json:"session_rating"  binding:"min=0,max=10"`
	TrainingPoints float64         `json:"training_points" binding:"min=0,max=10"`
}

// UpdateMatchPointsRequest 更新比赛积分请求
type UpdateMatchPointsRequest struct {
	MatchID string  `json:"match_id" binding:"required,max=64"`
	Points  float64 `json:"points"   binding:"min=0,max=10"`
	Date    string  `json:"date"     binding:"omitempty,isodate"`
}

// PerformanceListRequest 成绩历史查询参数
type PerformanceListRequest struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=200"`
}

// ── 响应 ──

// PlayerResponse 球员档案响应
type PlayerResponse struct {
	ID                 string          `json:"id"`
	UserID             string          `json:"user_id,omitempty"`
	Name               string          `json:"name"`
	Position           string          `json:"position,omitempty"`
	PhotoURL           string          `json:"photo_url,omitempty"`
	Attributes         AttributesInput `json:"attributes"`
	OverallRating      float64         `json:"overall_rating"`
	AveragePerformance float64         `json:"average_performance"`
	MatchPoints        float64         `json:"match_points"`
	LastUpdated        string          `json:"last_updated,omitempty"`
	Batches            []BatchBrief    `json:"batches"`
	Version            int             `json:"version"`
}

// PerformanceResponse 成绩历史条目
type PerformanceResponse struct {
	ID                  string          `json:"id"`
	Type                string          `json:"type"`
	Date                string          `json:"date"`
	SessionID           string          `json:"session_id,omitempty"`
	MatchID             string          `json:"match_id,omitempty"`
	Attributes          AttributesInput `json:"attributes"`
	SessionRating       float64         `json:"session_rating"`
	Overall             float64         `json:"overall"`
	TrainingPoints      float64         `json:"training_points"`
	MatchPoints         float64         `json:"match_points"`
	PreviousMatchPoints float64         `json:"previous_match_points"`
	CreatedAt           string          `json:"created_at"`
}
