package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ams-server/internal/model"
	"ams-server/internal/schedule"
)

// SessionFilter 训练会话列表筛选条件（状态在读取时重新计算，由服务层过滤）
// From/To 与模板的 [起始日期, 截止日期] 区间相交即命中
type SessionFilter struct {
	BatchID  string
	PlayerID string
	CoachID  string
	From     schedule.Date
	To       schedule.Date
}

// SessionRepository 训练会话数据访问接口，所有查询按学院隔离
type SessionRepository interface {
	Create(ctx context.Context, session *model.TrainingSession) error
	// CreateOccurrences 批量写入实例，(parent, date) 已存在的行被跳过；返回实际写入行数
	CreateOccurrences(ctx context.Context, occurrences []model.TrainingSession) (int64, error)
	GetByID(ctx context.Context, academyID, id string) (*model.TrainingSession, error)
	List(ctx context.Context, academyID string, filter SessionFilter) ([]model.TrainingSession, error)
	ListByParent(ctx context.Context, academyID, parentID string) ([]model.TrainingSession, error)
	// ListByParents 一次查询多个模板的全部实例
	ListByParents(ctx context.Context, academyID string, parentIDs []string) ([]model.TrainingSession, error)
	// ListUnfinished 跨学院返回日期不晚于 until 且未结束的单次会话与实例
	ListUnfinished(ctx context.Context, until schedule.Date) ([]model.TrainingSession, error)
	Update(ctx context.Context, session *model.TrainingSession) error
	UpdateStatus(ctx context.Context, id string, status schedule.Status) error
	Delete(ctx context.Context, academyID, id, deletedBy string) error
	DeleteByParent(ctx context.Context, academyID, parentID, deletedBy string) error
	DeleteOccurrences(ctx context.Context, academyID string, ids []string, deletedBy string) error
}

// sessionRepo SessionRepository 的 GORM 实现
type sessionRepo struct {
	db *gorm.DB
}

// NewSessionRepo 创建 SessionRepository 实例
func NewSessionRepo(db *gorm.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) Create(ctx context.Context, session *model.TrainingSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *sessionRepo) CreateOccurrences(ctx context.Context, occurrences []model.TrainingSession) (int64, error) {
	if len(occurrences) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(occurrences, 200)
	return result.RowsAffected, result.Error
}

func (r *sessionRepo) GetByID(ctx context.Context, academyID, id string) (*model.TrainingSession, error) {
	var session model.TrainingSession
	err := r.db.WithContext(ctx).
		Where("academy_id = ? AND session_id = ?", academyID, id).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) List(ctx context.Context, academyID string, filter SessionFilter) ([]model.TrainingSession, error) {
	var sessions []model.TrainingSession

	db := r.db.WithContext(ctx).Where("academy_id = ?", academyID)
	if filter.BatchID != "" {
		db = db.Where("assigned_batch_id = ?", filter.BatchID)
	}
	if filter.PlayerID != "" {
		db = db.Where("? = ANY(assigned_players)", filter.PlayerID)
	}
	if filter.CoachID != "" {
		db = db.Where("? = ANY(coach_ids)", filter.CoachID)
	}
	// 模板按 [session_date, recurring_end_date] 与区间相交判断
	if !filter.From.IsZero() {
		db = db.Where("COALESCE(recurring_end_date, session_date) >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		db = db.Where("session_date <= ?", filter.To)
	}

	err := db.Order("session_date ASC, start_time ASC").Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepo) ListByParent(ctx context.Context, academyID, parentID string) ([]model.TrainingSession, error) {
	var sessions []model.TrainingSession
	err := r.db.WithContext(ctx).
		Where("academy_id = ? AND parent_session_id = ? AND kind = ?", academyID, parentID, schedule.KindOccurrence).
		Order("session_date ASC").
		Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepo) ListByParents(ctx context.Context, academyID string, parentIDs []string) ([]model.TrainingSession, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}
	var sessions []model.TrainingSession
	err := r.db.WithContext(ctx).
		Where("academy_id = ? AND parent_session_id IN ? AND kind = ?", academyID, parentIDs, schedule.KindOccurrence).
		Order("session_date ASC").
		Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepo) ListUnfinished(ctx context.Context, until schedule.Date) ([]model.TrainingSession, error) {
	var sessions []model.TrainingSession
	err := r.db.WithContext(ctx).
		Where("kind <> ? AND status <> ? AND session_date <= ?",
			schedule.KindTemplate, schedule.StatusFinished, until).
		Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepo) Update(ctx context.Context, session *model.TrainingSession) error {
	return r.db.WithContext(ctx).
		Omit("created_at", "created_by").
		Save(session).Error
}

func (r *sessionRepo) UpdateStatus(ctx context.Context, id string, status schedule.Status) error {
	return r.db.WithContext(ctx).
		Model(&model.TrainingSession{}).
		Where("session_id = ?", id).
		Update("status", status).Error
}

func (r *sessionRepo) Delete(ctx context.Context, academyID, id, deletedBy string) error {
	return r.softDelete(ctx).
		Where("academy_id = ? AND session_id = ?", academyID, id).
		Updates(deleteColumns(deletedBy)).Error
}

func (r *sessionRepo) DeleteByParent(ctx context.Context, academyID, parentID, deletedBy string) error {
	return r.softDelete(ctx).
		Where("academy_id = ? AND parent_session_id = ?", academyID, parentID).
		Updates(deleteColumns(deletedBy)).Error
}

func (r *sessionRepo) DeleteOccurrences(ctx context.Context, academyID string, ids []string, deletedBy string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.softDelete(ctx).
		Where("academy_id = ? AND session_id IN ?", academyID, ids).
		Updates(deleteColumns(deletedBy)).Error
}

func (r *sessionRepo) softDelete(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&model.TrainingSession{})
}

func deleteColumns(deletedBy string) map[string]interface{} {
	return map[string]interface{}{
		"deleted_by": model.StrPtr(deletedBy),
		"deleted_at": gorm.Expr("NOW()"),
	}
}
