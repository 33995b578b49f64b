package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"ams-server/internal/dto"
	"ams-server/internal/service"
	"ams-server/pkg/response"
)

// RecordsHandler 评分、证书、伤病、收支等附属记录处理器
type RecordsHandler struct {
	ratingSvc     service.RatingService
	credentialSvc service.CredentialService
	injurySvc     service.InjuryService
	financeSvc    service.FinanceService
}

// NewRecordsHandler 创建 RecordsHandler
func NewRecordsHandler(
	ratingSvc service.RatingService,
	credentialSvc service.CredentialService,
	injurySvc service.InjuryService,
	financeSvc service.FinanceService,
) *RecordsHandler {
	return &RecordsHandler{
		ratingSvc:     ratingSvc,
		credentialSvc: credentialSvc,
		injurySvc:     injurySvc,
		financeSvc:    financeSvc,
	}
}

// ── 教练评分 ──

// CreateRating 学员评价教练
// POST /api/v1/ratings
func (h *RecordsHandler) CreateRating(c *gin.Context) {
	var req dto.CreateRatingRequest
	if !bindJSON(c, &req) {
		return
	}

	academyID, studentID, ok := mustGetCaller(c)
	if !ok {
		return
	}

	rating, err := h.ratingSvc.Create(c.Request.Context(), academyID, &req, studentID)
	if err != nil {
		h.handleRecordError(c, err)
		return
	}

	response.Created(c, rating)
}

// GetCoachRatings 教练评分汇总
// GET /api/v1/ratings/coach/:coach_id
func (h *RecordsHandler) GetCoachRatings(c *gin.Context) {
	academyID, ok := MustGetAcademyID(c)
	if !ok {
		return
	}

	summary, err := h.ratingSvc.Summary(c.Request.Context(), academyID, c.Param("coach_id"))
	if err != nil {
		h.handleRecordError(c, err)
		return
	}

	response.OK(c, summary)
}

// ── 资质证书 ──

// CreateCredential 登记证书
// POST /api/v1/credentials
func (h *RecordsHandler) CreateCredential(c *gin.Context) {
	var req dto.CreateCredentialRequest
	if !bindJSON(c, &req) {
		return
	}

	academyID, callerID, ok := mustGetCaller(c)
	if !ok {
		return
	}

	credential, err := h.credentialSvc.Create(c.Request.Context(), academyID, &req, callerID)
	if err != nil {
		h.handleRecordError(c, err)
		return
	}

	response.Created(c, credential)
}

// ListUserCredentials 用户的证书列表
// GET /api/v1/credentials/user/:user_id
func (h *RecordsHandler) ListUserCredentials(c *gin.Context) {
	academyID, ok := MustGetAcademyID(c)
	if !ok {
		return
	}

	credentials, err := h.credentialSvc.ListByUser(c.Request.Context(), academyID, c.Param("user_id"))
	if err != nil {
		h.handleRecordError(c, err)
		return
	}

	response.OK(c, gin.H{"list": credentials})
}

// DeleteCredential 删除证书
// DELETE /api/v1/credentials/:id
func (h *RecordsHandler) DeleteCredential(c *gin.Context) {
	academyID, callerID, ok := mustGetCaller(c)
	if !ok {
		return
	}

	if err := h.credentialSvc.Delete(c.Request.Context(), academyID, c.Param("id"), callerID); err != nil {
		h.handleRecordError(c, err)
		return
	}

	response.OK(c, nil)
}

// ── 伤病 ──

// CreateInjury 登记伤病
// POST /api/v1/injuries
func (h *RecordsHandler) CreateInjury(c *gin.Context) {
	var req dto.CreateInjuryRequest
	if !bindJSON(c, &req) {
		return
	}

	academyID, callerID, ok := mustGetCaller(c)
	if !ok {
		return
	}

	injury, err := h.injurySvc.Create(c.Request.Context(), academyID, &req, callerID)
	if err != nil {
		h.handleRecordError(c, err)
		return
	}

	response.Created(c, injury)
}

// ListInjuries 伤病列表，可按球员过滤
// GET /api/v1/injuries?player_id=...
func (h *RecordsHandler) ListInjuries(c *gin.Context) {
	academyID, ok := MustGetAcademyID(c)
	if !ok {
		return
	}

	injuries, err := h.injurySvc.List(c.Request.Context(), academyID, c.Query("player_id"))
	if err != nil {
		h.handleRecordError(c, err)
		return
	}

	response.OK(c, gin.H{"list": injuries})
}

// UpdateInjury 更新伤病状态
// PUT /api/v1/injuries/:id
func (h *RecordsHandler) UpdateInjury(c *gin.Context) {
	var req dto.UpdateInjuryRequest
	if !bindJSON(c, &req) {
		return
	}

	academyID, callerID, ok := mustGetCaller(c)
	if !ok {
		return
	}

	injury, err := h.injurySvc.Update(c.Request.Context(), academyID, c.Param("id"), &req, callerID)
	if err != nil {
		h.handleRecordError(c, err)
		return
	}

	response.OK(c, injury)
}

// DeleteInjury 删除伤病记录
// DELETE /api/v1/injuries/:id
func (h *RecordsHandler) DeleteInjury(c *gin.Context) {
	academyID, callerID, ok := mustGetCaller(c)
	if !ok {
		return
	}

	if err := h.injurySvc.Delete(c.Request.Context(), academyID, c.Param("id"), callerID); err != nil {
		h.handleRecordError(c, err)
		return
	}

	response.OK(c, nil)
}

// ── 收支 ──

// CreateTransaction 记账
// POST /api/v1/finance/transactions
func (h *RecordsHandler) CreateTransaction(c *gin.Context) {
	var req dto.CreateTransactionRequest
	if !bindJSON(c, &req) {
		return
	}

	academyID, callerID, ok := mustGetCaller(c)
	if !ok {
		return
	}

	tx, err := h.financeSvc.Create(c.Request.Context(), academyID, &req, callerID)
	if err != nil {
		h.handleRecordError(c, err)
		return
	}

	response.Created(c, tx)
}

// ListTransactions 收支流水（分页）
// GET /api/v1/finance/transactions?page=1&page_size=20&type=income
func (h *RecordsHandler) ListTransactions(c *gin.Context) {
	var req dto.TransactionListRequest
	if !bindQuery(c, &req) {
		return
	}

	academyID, ok := MustGetAcademyID(c)
	if !ok {
		return
	}

	list, total, err := h.financeSvc.List(c.Request.Context(), academyID, &req)
	if err != nil {
		h.handleRecordError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetFinanceSummary 收支汇总
// GET /api/v1/finance/summary?from=2025-01-01&to=2025-12-31
func (h *RecordsHandler) GetFinanceSummary(c *gin.Context) {
	var req dto.TransactionListRequest
	if !bindQuery(c, &req) {
		return
	}

	academyID, ok := MustGetAcademyID(c)
	if !ok {
		return
	}

	summary, err := h.financeSvc.Summary(c.Request.Context(), academyID, &req)
	if err != nil {
		h.handleRecordError(c, err)
		return
	}

	response.OK(c, summary)
}

func (h *RecordsHandler) handleRecordError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCoach):
		response.BadRequest(c, 17001, "被评价的教练不存在")
	case errors.Is(err, service.ErrCredentialNotFound):
		response.NotFound(c, 17002, "证书不存在")
	case errors.Is(err, service.ErrInjuryNotFound):
		response.NotFound(c, 17003, "伤病记录不存在")
	case errors.Is(err, service.ErrUserNotFound):
		response.BadRequest(c, 17004, "用户不存在")
	case errors.Is(err, service.ErrPlayerNotFound):
		response.BadRequest(c, 17005, "球员不存在")
	case errors.Is(err, service.ErrInvalidTime):
		response.BadRequest(c, 17006, "日期格式无效")
	default:
		response.InternalError(c)
	}
}
