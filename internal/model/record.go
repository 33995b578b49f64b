package model

import "ams-server/internal/schedule"

// Credential 教练/员工资质证书，对应 credentials
type Credential struct {
	CredentialID string        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"credential_id"`
	AcademyID    string        `gorm:"type:uuid;not null"                             json:"academy_id"`
	UserID       string        `gorm:"type:uuid;not null;index"                       json:"user_id"`
	Title        string        `gorm:"type:varchar(200);not null"                     json:"title"`
	Issuer       string        `gorm:"type:varchar(200);not null"                     json:"issuer"`
	IssuedOn     schedule.Date `gorm:"type:date;not null"                             json:"issued_on"`
	DocumentURL  string        `gorm:"type:varchar(500)"                              json:"document_url,omitempty"`
	SoftDeleteModel
}

// TableName 指定表名
func (Credential) TableName() string { return "credentials" }

// 伤病状态
const (
	InjuryActive     = "active"
	InjuryRecovering = "recovering"
	InjuryRecovered  = "recovered"
)

// Injury 球员伤病记录，对应 injuries
type Injury struct {
	InjuryID       string        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"injury_id"`
	AcademyID      string        `gorm:"type:uuid;not null"                             json:"academy_id"`
	PlayerID       string        `gorm:"type:uuid;not null;index"                       json:"player_id"`
	InjuryType     string        `gorm:"type:varchar(100);not null"                     json:"injury_type"`
	BodyPart       string        `gorm:"type:varchar(100)"                              json:"body_part,omitempty"`
	Severity       string        `gorm:"type:varchar(20)"                               json:"severity,omitempty"`
	Description    string        `gorm:"type:text"                                      json:"description,omitempty"`
	InjuredOn      schedule.Date `gorm:"type:date;not null"                             json:"injured_on"`
	ExpectedReturn schedule.Date `gorm:"type:date"                                      json:"expected_return,omitempty"`
	Status         string        `gorm:"type:varchar(20);not null;default:'active'"     json:"status"`
	CertificateURL string        `gorm:"type:varchar(500)"                              json:"certificate_url,omitempty"`
	SoftDeleteModel
}

// TableName 指定表名
func (Injury) TableName() string { return "injuries" }

// 收支类型
const (
	FinanceIncome  = "income"
	FinanceExpense = "expense"
)

// FinanceTransaction 学院收支流水，对应 finance_transactions
type FinanceTransaction struct {
	TransactionID string        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"transaction_id"`
	AcademyID     string        `gorm:"type:uuid;not null;index"                       json:"academy_id"`
	Type          string        `gorm:"type:varchar(10);not null"                      json:"type"`
	Amount        float64       `gorm:"type:numeric(12,2);not null"                    json:"amount"`
	Description   string        `gorm:"type:text"                                      json:"description,omitempty"`
	Category      string        `gorm:"type:varchar(50);not null"                      json:"category"`
	OccurredOn    schedule.Date `gorm:"type:date;not null"                             json:"occurred_on"`
	BaseModel
}

// TableName 指定表名
func (FinanceTransaction) TableName() string { return "finance_transactions" }
