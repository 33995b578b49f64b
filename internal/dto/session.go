package dto

import (
	"ams-server/internal/model"
	"ams-server/internal/schedule"
)

// ── 训练会话 DTO ──

// CreateSessionRequest 创建训练会话请求
//
// IsRecurring 为 true 时 Date 为起始日期，RecurringEndDate/SelectedDays 必填；
// ExcludedDates 仅对循环会话生效
type CreateSessionRequest struct {
	Name             string   `json:"name"               binding:"required,min=1,max=200"`
	IsRecurring      bool     `json:"is_recurring"`
	Date             string   `json:"date"               binding:"required,isodate"`
	RecurringEndDate string   `json:"recurring_end_date" binding:"omitempty,isodate"`
	SelectedDays     []string `json:"selected_days"      binding:"omitempty,dive,weekday"`
	ExcludedDates    []string `json:"excluded_dates"     binding:"omitempty,dive,isodate"`
	StartTime        string   `json:"start_time"         binding:"required,hhmm"`
	EndTime          string   `json:"end_time"           binding:"required,hhmm"`
	AssignedBatchID  string   `json:"assigned_batch_id"  binding:"omitempty,uuid"`
	AssignedPlayers  []string `json:"assigned_players"   binding:"omitempty,dive,uuid"`
	CoachIDs         []string `json:"coach_ids"          binding:"omitempty,dive,uuid"`
}

// UpdateSessionRequest 更新训练会话请求（字段为空表示不修改）
//
// AssignedBatchID 传空串表示取消分组
type UpdateSessionRequest struct {
	Name             *string   `json:"name"               binding:"omitempty,min=1,max=200"`
	Date             *string   `json:"date"               binding:"omitempty,isodate"`
	RecurringEndDate *string   `json:"recurring_end_date" binding:"omitempty,isodate"`
	SelectedDays     *[]string `json:"selected_days"      binding:"omitempty,dive,weekday"`
	ExcludedDates    *[]string `json:"excluded_dates"     binding:"omitempty,dive,isodate"`
	StartTime        *string   `json:"start_time"         binding:"omitempty,hhmm"`
	EndTime          *string   `json:"end_time"           binding:"omitempty,hhmm"`
	AssignedBatchID  *string   `json:"assigned_batch_id"  binding:"omitempty,eq=|uuid"`
	AssignedPlayers  *[]string `json:"assigned_players"   binding:"omitempty,dive,uuid"`
	CoachIDs         *[]string `json:"coach_ids"          binding:"omitempty,dive,uuid"`
}

// SessionListRequest 会话列表查询参数
type SessionListRequest struct {
	Status   string `form:"status"    binding:"omitempty,oneof=Upcoming On-going Finished"`
	Kind     string `form:"kind"      binding:"omitempty,oneof=regular template"`
	BatchID  string `form:"batch_id"  binding:"omitempty,uuid"`
	PlayerID string `form:"player_id" binding:"omitempty,uuid"`
	CoachID  string `form:"coach_id"  binding:"omitempty,uuid"`
	From     string `form:"from"      binding:"omitempty,isodate"`
	To       string `form:"to"        binding:"omitempty,isodate"`
}

// MarkAttendanceRequest 标记出勤请求
type MarkAttendanceRequest struct {
	PlayerID string `json:"player_id" binding:"required,uuid"`
	Status   string `json:"status"    binding:"required,oneof=Present Absent"`
}

// BulkAttendanceRequest 批量标记出勤请求
type BulkAttendanceRequest struct {
	Entries []MarkAttendanceRequest `json:"entries" binding:"required,min=1,dive"`
}

// AttributesInput 能力项输入，每项 0-10
type AttributesInput struct {
	Shooting    float64 `json:"shooting"     binding:"min=0,max=10"`
	Pace        float64 `json:"pace"         binding:"min=0,max=10"`
	Positioning float64 `json:"positioning"  binding:"min=0,max=10"`
	Passing     float64 `json:"passing"      binding:"min=0,max=10"`
	BallControl float64 `json:"ball_control" binding:"min=0,max=10"`
	Crossing    float64 `json:"crossing"     binding:"min=0,max=10"`
}

// ToModel 转换为模型能力项
func (a AttributesInput) ToModel() model.PlayerAttributes {
	return model.PlayerAttributes{
		Shooting:    a.Shooting,
		Pace:        a.Pace,
		Positioning: a.Positioning,
		Passing:     a.Passing,
		BallControl: a.BallControl,
		Crossing:    a.Crossing,
	}
}

// SessionMetricsRequest 单场训练球员评分请求
type SessionMetricsRequest struct {
	PlayerID      string          `json:"player_id"      binding:"required,uuid"`
	Attributes    AttributesInput `json:"attributes"     binding:"required"`
	SessionRating float64         `json:"session_rating" binding:"min=0,max=10"`
}

// ── 响应 ──

// SessionResponse 训练会话响应
type SessionResponse struct {
	ID               string                  `json:"id"`
	Kind             schedule.Kind           `json:"kind"`
	IsRecurring      bool                    `json:"is_recurring"`
	Virtual          bool                    `json:"virtual,omitempty"`
	Name             string                  `json:"name"`
	Date             string                  `json:"date"`
	RecurringEndDate string                  `json:"recurring_end_date,omitempty"`
	SelectedDays     []string                `json:"selected_days,omitempty"`
	ExcludedDates    []string                `json:"excluded_dates,omitempty"`
	StartTime        string                  `json:"start_time"`
	EndTime          string                  `json:"end_time"`
	AssignedBatchID  string                  `json:"assigned_batch_id,omitempty"`
	AssignedPlayers  []string                `json:"assigned_players"`
	CoachIDs         []string                `json:"coach_ids"`
	ParentSessionID  string                  `json:"parent_session_id,omitempty"`
	Status           schedule.Status         `json:"status"`
	TotalOccurrences int                     `json:"total_occurrences,omitempty"`
	Attendance       model.Attendance        `json:"attendance,omitempty"`
	PlayerMetrics    model.SessionMetricsMap `json:"player_metrics,omitempty"`
}

// SessionViewResponse 会话聚合视图：模板附带实例与统计
type SessionViewResponse struct {
	SessionResponse
	Occurrences      []SessionResponse `json:"occurrences,omitempty"`
	Counts           schedule.Counts   `json:"counts"`
	Completed        int               `json:"completed"`
	Total            int               `json:"total"`
	NextDate         string            `json:"next_date,omitempty"`
	LastFinishedDate string            `json:"last_finished_date,omitempty"`
}

// SessionListResponse 会话列表响应
type SessionListResponse struct {
	Sessions []SessionViewResponse `json:"sessions"`
	Summary  schedule.Counts       `json:"summary"`
}

// SyncResult 实例同步结果
type SyncResult struct {
	Created   int  `json:"created"`
	Removed   int  `json:"removed"`
	Truncated bool `json:"truncated"`
}

// ImportResult 历史会话导入结果
type ImportResult struct {
	Total    int           `json:"total"`
	Imported int           `json:"imported"`
	Healed   int           `json:"healed"`
	Failed   int           `json:"failed"`
	Errors   []ImportError `json:"errors,omitempty"`
}

// ImportError 导入错误详情
type ImportError struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}
