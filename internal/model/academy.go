package model

// Academy 学院（租户），对应 academies
type Academy struct {
	AcademyID    string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"academy_id"`
	Code         string `gorm:"type:varchar(30);not null;uniqueIndex"          json:"code"`
	Name         string `gorm:"type:varchar(100);not null"                     json:"name"`
	Location     string `gorm:"type:varchar(200)"                              json:"location,omitempty"`
	ContactEmail string `gorm:"type:varchar(255)"                              json:"contact_email,omitempty"`
	IsActive     bool   `gorm:"not null;default:true"                          json:"is_active"`
	VersionedModel
}

// TableName 指定表名
func (Academy) TableName() string { return "academies" }
