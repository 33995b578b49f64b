package service

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"ams-server/internal/dto"
	"ams-server/internal/model"
	"ams-server/internal/repository"
	"ams-server/internal/schedule"
)

// FinanceService 学院收支流水
type FinanceService interface {
	Create(ctx context.Context, academyID string, req *dto.CreateTransactionRequest, callerID string) (*dto.TransactionResponse, error)
	List(ctx context.Context, academyID string, req *dto.TransactionListRequest) ([]dto.TransactionResponse, int64, error)
	// Summary 按类型、类别汇总，筛选条件与 List 相同（分页除外）
	Summary(ctx context.Context, academyID string, req *dto.TransactionListRequest) (*dto.FinanceSummary, error)
}

type financeService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewFinanceService 创建 FinanceService 实例
func NewFinanceService(repo *repository.Repository, logger *zap.Logger) FinanceService {
	return &financeService{repo: repo, logger: logger}
}

func (s *financeService) Create(ctx context.Context, academyID string, req *dto.CreateTransactionRequest, callerID string) (*dto.TransactionResponse, error) {
	occurred, err := schedule.ParseDate(req.OccurredOn)
	if err != nil {
		return nil, ErrInvalidTime
	}

	tx := &model.FinanceTransaction{
		AcademyID:   academyID,
		Type:        req.Type,
		Amount:      round2(req.Amount),
		Description: req.Description,
		Category:    req.Category,
		OccurredOn:  occurred,
	}
	tx.CreatedBy = model.StrPtr(callerID)

	if err := s.repo.Finance.Create(ctx, tx); err != nil {
		s.logger.Error("记账失败", zap.Error(err))
		return nil, err
	}
	resp := toTransactionResponse(tx)
	return &resp, nil
}

func (s *financeService) List(ctx context.Context, academyID string, req *dto.TransactionListRequest) ([]dto.TransactionResponse, int64, error) {
	filter, err := financeFilter(req)
	if err != nil {
		return nil, 0, err
	}
	txs, total, err := s.repo.Finance.List(ctx, academyID, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询收支流水失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.TransactionResponse, 0, len(txs))
	for i := range txs {
		result = append(result, toTransactionResponse(&txs[i]))
	}
	return result, total, nil
}

func (s *financeService) Summary(ctx context.Context, academyID string, req *dto.TransactionListRequest) (*dto.FinanceSummary, error) {
	filter, err := financeFilter(req)
	if err != nil {
		return nil, err
	}
	totals, err := s.repo.Finance.Totals(ctx, academyID, filter)
	if err != nil {
		s.logger.Error("汇总收支失败", zap.Error(err))
		return nil, err
	}
	return summarize(totals), nil
}

// summarize 支出在 ByCategory 中以负数计入
func summarize(totals []repository.FinanceTotal) *dto.FinanceSummary {
	summary := &dto.FinanceSummary{ByCategory: make(map[string]float64)}
	for _, t := range totals {
		switch t.Type {
		case model.FinanceIncome:
			summary.TotalIncome += t.Total
			summary.ByCategory[t.Category] += t.Total
		case model.FinanceExpense:
			summary.TotalExpense += t.Total
			summary.ByCategory[t.Category] -= t.Total
		}
	}
	summary.TotalIncome = round2(summary.TotalIncome)
	summary.TotalExpense = round2(summary.TotalExpense)
	summary.Net = round2(summary.TotalIncome - summary.TotalExpense)
	for k, v := range summary.ByCategory {
		summary.ByCategory[k] = round2(v)
	}
	return summary
}

func financeFilter(req *dto.TransactionListRequest) (repository.FinanceFilter, error) {
	filter := repository.FinanceFilter{Type: req.Type, Category: req.Category}
	var err error
	if req.From != "" {
		if filter.From, err = schedule.ParseDate(req.From); err != nil {
			return filter, ErrInvalidTime
		}
	}
	if req.To != "" {
		if filter.To, err = schedule.ParseDate(req.To); err != nil {
			return filter, ErrInvalidTime
		}
	}
	return filter, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func toTransactionResponse(t *model.FinanceTransaction) dto.TransactionResponse {
	return dto.TransactionResponse{
		ID:          t.TransactionID,
		Type:        t.Type,
		Amount:      t.Amount,
		Description: t.Description,
		Category:    t.Category,
		OccurredOn:  t.OccurredOn.String(),
		CreatedAt:   t.CreatedAt.Format(time.RFC3339),
	}
}
