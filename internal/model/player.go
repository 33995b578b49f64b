package model

import (
	"time"

	"gorm.io/datatypes"

	"ams-server/internal/schedule"
)

// PlayerAttributes 球员能力项，每项 0-10
type PlayerAttributes struct {
	Shooting    float64 `json:"shooting"`
	Pace        float64 `json:"pace"`
	Positioning float64 `json:"positioning"`
	Passing     float64 `json:"passing"`
	BallControl float64 `json:"ball_control"`
	Crossing    float64 `json:"crossing"`
}

// Sum 六项能力之和
func (a PlayerAttributes) Sum() float64 {
	return a.Shooting + a.Pace + a.Positioning + a.Passing + a.BallControl + a.Crossing
}

// Player 球员档案，对应 players
type Player struct {
	PlayerID           string                               `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"player_id"`
	AcademyID          string                               `gorm:"type:uuid;not null;index"                       json:"academy_id"`
	UserID             *string                              `gorm:"type:uuid;index"                                json:"user_id,omitempty"`
	Name               string                               `gorm:"type:varchar(100);not null"                     json:"name"`
	Position           string                               `gorm:"type:varchar(30)"                               json:"position,omitempty"`
	PhotoURL           string                               `gorm:"type:varchar(500)"                              json:"photo_url,omitempty"`
	Attributes         datatypes.JSONType[PlayerAttributes] `gorm:"type:jsonb;not null;default:'{}'"               json:"attributes"`
	OverallRating      float64                              `gorm:"not null;default:0"                             json:"overall_rating"`
	AveragePerformance float64                              `gorm:"not null;default:0"                             json:"average_performance"`
	MatchPoints        float64                              `gorm:"not null;default:0"                             json:"match_points"`
	LastUpdated        *time.Time                           `json:"last_updated,omitempty"`
	VersionedModel
}

// TableName 指定表名
func (Player) TableName() string { return "players" }

// 成绩记录类型
const (
	PerformanceTraining = "training"
	PerformanceMatch    = "match"
)

// PlayerPerformance 球员成绩历史，对应 player_performances（只追加）
type PlayerPerformance struct {
	PerformanceID       string                               `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"performance_id"`
	PlayerID            string                               `gorm:"type:uuid;not null;index"                       json:"player_id"`
	AcademyID           string                               `gorm:"type:uuid;not null"                             json:"academy_id"`
	SessionID           *string                              `gorm:"type:uuid"                                      json:"session_id,omitempty"`
	MatchID             string                               `gorm:"type:varchar(64)"                               json:"match_id,omitempty"`
	Type                string                               `gorm:"type:varchar(20);not null"                      json:"type"`
	Date                schedule.Date                        `gorm:"type:date;not null"                             json:"date"`
	Attributes          datatypes.JSONType[PlayerAttributes] `gorm:"type:jsonb;not null;default:'{}'"               json:"attributes"`
	SessionRating       float64                              `gorm:"not null;default:0"                             json:"session_rating"`
	Overall             float64                              `gorm:"not null;default:0"                             json:"overall"`
	TrainingPoints      float64                              `gorm:"not null;default:0"                             json:"training_points"`
	MatchPoints         float64                              `gorm:"not null;default:0"                             json:"match_points"`
	PreviousMatchPoints float64                              `gorm:"not null;default:0"                             json:"previous_match_points"`
	BaseModel
}

// TableName 指定表名
func (PlayerPerformance) TableName() string { return "player_performances" }
