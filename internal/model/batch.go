package model

import "github.com/lib/pq"

// Batch 训练分组，对应 batches
type Batch struct {
	BatchID   string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"batch_id"`
	AcademyID string         `gorm:"type:uuid;not null;index"                       json:"academy_id"`
	Name      string         `gorm:"type:varchar(100);not null"                     json:"name"`
	CoachIDs  pq.StringArray `gorm:"type:text[];not null;default:'{}'"              json:"coach_ids"`
	PlayerIDs pq.StringArray `gorm:"type:text[];not null;default:'{}'"              json:"player_ids"`
	VersionedModel
}

// TableName 指定表名
func (Batch) TableName() string { return "batches" }
