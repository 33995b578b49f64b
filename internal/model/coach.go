package model

// CoachRating 学员对教练的评分，对应 coach_ratings
type CoachRating struct {
	RatingID  string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"rating_id"`
	AcademyID string `gorm:"type:uuid;not null"                             json:"academy_id"`
	CoachID   string `gorm:"type:uuid;not null;index"                       json:"coach_id"`
	StudentID string `gorm:"type:uuid;not null"                             json:"student_id"`
	Rating    int    `gorm:"not null"                                       json:"rating"`
	Comment   string `gorm:"type:text"                                      json:"comment,omitempty"`
	BaseModel

	// 关联
	Student *User `gorm:"foreignKey:StudentID;references:UserID" json:"student,omitempty"`
}

// TableName 指定表名
func (CoachRating) TableName() string { return "coach_ratings" }
