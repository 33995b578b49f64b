package dto

// ── 教练评分 ──

// CreateRatingRequest 学员评价教练请求
type CreateRatingRequest struct {
	CoachID string `json:"coach_id" binding:"required,uuid"`
	Rating  int    `json:"rating"   binding:"required,min=1,max=10"`
	Comment string `json:"comment"  binding:"omitempty,max=1000"`
}

// RatingResponse 评分响应
type RatingResponse struct {
	ID          string `json:"id"`
	CoachID     string `json:"coach_id"`
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name,omitempty"`
	Rating      int    `json:"rating"`
	Comment     string `json:"comment,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// CoachRatingSummary 教练评分汇总
type CoachRatingSummary struct {
	CoachID string           `json:"coach_id"`
	Average float64          `json:"average"`
	Count   int64            `json:"count"`
	Ratings []RatingResponse `json:"ratings"`
}

// ── 资质证书 ──

// CreateCredentialRequest 创建证书请求
type CreateCredentialRequest struct {
	UserID      string `json:"user_id"      binding:"required,uuid"`
	Title       string `json:"title"        binding:"required,min=1,max=200"`
	Issuer      string `json:"issuer"       binding:"required,min=1,max=200"`
	IssuedOn    string `json:"issued_on"    binding:"required,isodate"`
	DocumentURL string `json:"document_url" binding:"omitempty,url,max=500"`
}

// CredentialResponse 证书响应
type CredentialResponse struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Title       string `json:"title"`
	Issuer      string `json:"issuer"`
	IssuedOn    string `json:"issued_on"`
	DocumentURL string `json:"document_url,omitempty"`
}

// ── 伤病 ──

// CreateInjuryRequest 登记伤病请求
type CreateInjuryRequest struct {
	PlayerID       string `json:"player_id"       binding:"required,uuid"`
	InjuryType     string `json:"injury_type"     binding:"required,min=1,max=100"`
	BodyPart       string `json:"body_part"       binding:"omitempty,max=100"`
	Severity       string `json:"severity"        binding:"omitempty,oneof=minor moderate severe"`
	Description    string `json:"description"     binding:"omitempty,max=2000"`
	InjuredOn      string `json:"injured_on"      binding:"required,isodate"`
	ExpectedReturn string `json:"expected_return" binding:"omitempty,isodate"`
}

// UpdateInjuryRequest 更新伤病请求
type UpdateInjuryRequest struct {
	Status         *string `json:"status"          binding:"omitempty,oneof=active recovering recovered"`
	Severity       *string `json:"severity"        binding:"omitempty,oneof=minor moderate severe"`
	Description    *string `json:"description"     binding:"omitempty,max=2000"`
	ExpectedReturn *string `json:"expected_return" binding:"omitempty,isodate"`
}

// InjuryResponse 伤病响应
type InjuryResponse struct {
	ID             string `json:"id"`
	PlayerID       string `json:"player_id"`
	InjuryType     string `json:"injury_type"`
	BodyPart       string `json:"body_part,omitempty"`
	Severity       string `json:"severity,omitempty"`
	Description    string `json:"description,omitempty"`
	InjuredOn      string `json:"injured_on"`
	ExpectedReturn string `json:"expected_return,omitempty"`
	Status         string `json:"status"`
}

// ── 收支 ──

// CreateTransactionRequest 记账请求
type CreateTransactionRequest struct {
	Type        string  `json:"type"        binding:"required,oneof=income expense"`
	Amount      float64 `json:"amount"      binding:"required,gt=0"`
	Description string  `json:"description" binding:"omitempty,max=1000"`
	Category    string  `json:"category"    binding:"required,min=1,max=50"`
	OccurredOn  string  `json:"occurred_on" binding:"required,isodate"`
}

// TransactionListRequest 收支列表查询参数
type TransactionListRequest struct {
	PaginationRequest
	Type     string `form:"type"     binding:"omitempty,oneof=income expense"`
	Category string `form:"category" binding:"omitempty,max=50"`
	From     string `form:"from"     binding:"omitempty,isodate"`
	To       string `form:"to"       binding:"omitempty,isodate"`
}

// TransactionResponse 收支流水响应
type TransactionResponse struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category"`
	OccurredOn  string  `json:"occurred_on"`
	CreatedAt   string  `json:"created_at"`
}

// FinanceSummary 收支汇总
type FinanceSummary struct {
	TotalIncome  float64            `json:"total_income"`
	TotalExpense float64            `json:"total_expense"`
	Net          float64            `json:"net"`
	ByCategory   map[string]float64 `json:"by_category"`
}
