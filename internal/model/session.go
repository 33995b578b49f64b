package model

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"

	"ams-server/internal/schedule"
)

// 出勤状态
const (
	AttendancePresent = "Present"
	AttendanceAbsent  = "Absent"
)

// AttendanceEntry 单个球员的出勤记录
type AttendanceEntry struct {
	Status   string    `json:"status"`
	MarkedAt time.Time `json:"marked_at"`
	MarkedBy string    `json:"marked_by"`
}

// Attendance 球员ID → 出勤记录
type Attendance map[string]AttendanceEntry

// SessionMetrics 单场训练中某球员的评分
type SessionMetrics struct {
	Attributes    PlayerAttributes `json:"attributes"`
	SessionRating float64          `json:"session_rating"`
	Overall       float64          `json:"overall"`
	UpdatedAt     time.Time        `json:"updated_at"`
	UpdatedBy     string           `json:"updated_by"`
}

// SessionMetricsMap 球员ID → 评分
type SessionMetricsMap map[string]SessionMetrics

// TrainingSession 训练会话，对应 training_sessions
//
// 单次会话、循环模板与实例共用一张表，以 Kind 区分：
//   - regular：SessionDate 为会话日期
//   - template：SessionDate 为起始日期，RecurringEndDate/SelectedDays 有值，ExcludedDates 为跳过的日期
//   - occurrence：SessionDate 为实例日期，ParentSessionID 指向模板，(ParentSessionID, SessionDate) 唯一
type TrainingSession struct {
	SessionID        string                                `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"session_id"`
	AcademyID        string                                `gorm:"type:uuid;not null;index"                       json:"academy_id"`
	Kind             schedule.Kind                         `gorm:"type:varchar(20);not null"                      json:"kind"`
	Name             string                                `gorm:"type:varchar(200);not null"                     json:"name"`
	SessionDate      schedule.Date                         `gorm:"type:date;not null"                             json:"session_date"`
	RecurringEndDate schedule.Date                         `gorm:"type:date"                                      json:"recurring_end_date,omitempty"`
	SelectedDays     schedule.Days                         `gorm:"type:text[]"                                    json:"selected_days,omitempty"`
	ExcludedDates    schedule.Dates                        `gorm:"type:date[];not null;default:'{}'"              json:"excluded_dates,omitempty"`
	StartTime        schedule.TimeOfDay                    `gorm:"type:varchar(5);not null"                       json:"start_time"`
	EndTime          schedule.TimeOfDay                    `gorm:"type:varchar(5);not null"                       json:"end_time"`
	AssignedBatchID  *string                               `gorm:"type:uuid"                                      json:"assigned_batch_id,omitempty"`
	AssignedPlayers  pq.StringArray                        `gorm:"type:text[];not null;default:'{}'"              json:"assigned_players"`
	CoachIDs         pq.StringArray                        `gorm:"type:text[];not null;default:'{}'"              json:"coach_ids"`
	ParentSessionID  *string                               `gorm:"type:uuid;index"                                json:"parent_session_id,omitempty"`
	Status           schedule.Status                       `gorm:"type:varchar(20);not null;default:'Upcoming'"   json:"status"`
	TotalOccurrences int                                   `gorm:"not null;default:0"                             json:"total_occurrences"`
	Attendance       datatypes.JSONType[Attendance]        `gorm:"type:jsonb;not null;default:'{}'"               json:"attendance"`
	PlayerMetrics    datatypes.JSONType[SessionMetricsMap] `gorm:"type:jsonb;not null;default:'{}'"               json:"player_metrics"`
	SoftDeleteModel
}

// TableName 指定表名
func (TrainingSession) TableName() string { return "training_sessions" }

// HasPlayer 球员是否被分配到该会话
func (s *TrainingSession) HasPlayer(playerID string) bool {
	for _, p := range s.AssignedPlayers {
		if p == playerID {
			return true
		}
	}
	return false
}
