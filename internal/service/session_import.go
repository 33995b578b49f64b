package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"ams-server/internal/dto"
	"ams-server/internal/model"
	"ams-server/internal/repository"
	"ams-server/internal/schedule"
)

// legacyNamespace 旧文档 id → UUID 的命名空间，同一学院重复导入得到相同主键
var legacyNamespace = uuid.MustParse("6f1c4c86-8a4e-4c71-9f0b-2f3f3c7d8e21")

func legacyID(academyID, raw string) string {
	return uuid.NewSHA1(legacyNamespace, []byte(academyID+"/"+raw)).String()
}

// Import 导入旧系统导出的会话文档（JSON 数组）。
// 记录类型由 isOccurrence/parentSessionId/isRecurring 推断，与已有数据合并去重后写入；
// 父模板缺失的实例会补齐一个虚拟模板。
func (s *sessionService) Import(ctx context.Context, academyID string, body []byte, callerID string) (*dto.ImportResult, error) {
	if !gjson.ValidBytes(body) {
		return nil, ErrInvalidImport
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsArray() {
		return nil, ErrInvalidImport
	}

	result := &dto.ImportResult{}
	var fresh []schedule.Record
	attendance := make(map[string]model.Attendance)

	doc.ForEach(func(_, item gjson.Result) bool {
		index := result.Total
		result.Total++
		r, att, err := parseLegacySession(academyID, item)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, dto.ImportError{Index: index, Reason: err.Error()})
			return true
		}
		fresh = append(fresh, r)
		if len(att) > 0 {
			attendance[r.Common().ID] = att
		}
		return true
	})

	existingRows, err := s.repo.Session.List(ctx, academyID, repository.SessionFilter{})
	if err != nil {
		s.logger.Error("查询已有会话失败", zap.Error(err))
		return nil, err
	}
	existing, byID := toRecords(existingRows)
	byKey := make(map[string]*model.TrainingSession)
	for _, r := range existing {
		if o, ok := r.(*schedule.Occurrence); ok {
			byKey[o.Key()] = byID[o.ID]
		}
	}

	freshParents := make(map[string]bool)
	for _, r := range fresh {
		if o, ok := r.(*schedule.Occurrence); ok {
			freshParents[o.ParentID] = true
		}
	}

	now := s.now()
	schedule.Reclassify(fresh, now)
	merged := schedule.Reconcile(existing, fresh)

	var (
		tops     []*model.TrainingSession
		occRows  []model.TrainingSession
		advanced = make(map[string]schedule.Status)
	)
	for _, r := range merged {
		if _, stored := byID[r.Common().ID]; stored {
			continue
		}
		// 已有数据中的孤立实例不在导入时补齐父模板
		if t, ok := r.(*schedule.Template); ok && t.Virtual && !freshParents[t.ID] {
			continue
		}
		if o, ok := r.(*schedule.Occurrence); ok {
			if row, dup := byKey[o.Key()]; dup {
				if o.Status.MoreFinalThan(row.Status) {
					advanced[row.SessionID] = o.Status
				}
				continue
			}
		}

		row := fromRecord(r)
		row.CreatedBy = model.StrPtr(callerID)
		if att, ok := attendance[row.SessionID]; ok {
			row.Attendance = datatypes.NewJSONType(att)
		}
		switch v := r.(type) {
		case *schedule.Occurrence:
			occRows = append(occRows, *row)
		case *schedule.Template:
			if v.Virtual {
				result.Healed++
			}
			tops = append(tops, row)
		default:
			tops = append(tops, row)
		}
	}

	var created int64
	err = s.withTx(ctx, func(txRepo *repository.Repository) error {
		for _, row := range tops {
			if err := txRepo.Session.Create(ctx, row); err != nil {
				return err
			}
		}
		n, err := txRepo.Session.CreateOccurrences(ctx, occRows)
		if err != nil {
			return err
		}
		created = n
		for id, st := range advanced {
			if err := txRepo.Session.UpdateStatus(ctx, id, st); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("导入会话失败", zap.Error(err))
		return nil, err
	}

	result.Imported = len(tops) - result.Healed + int(created)
	s.logger.Info("会话导入完成",
		zap.String("academy_id", academyID),
		zap.Int("total", result.Total),
		zap.Int("imported", result.Imported),
		zap.Int("healed", result.Healed),
		zap.Int("failed", result.Failed))
	return result, nil
}

func parseLegacySession(academyID string, item gjson.Result) (schedule.Record, model.Attendance, error) {
	// parentSessionId 引用的是数值 id，_id 仅作兜底
	rawID := item.Get("id").String()
	if rawID == "" {
		rawID = item.Get("_id").String()
	}
	if rawID == "" {
		return nil, nil, fmt.Errorf("缺少 id")
	}

	shape := schedule.LegacyShape{
		IsOccurrence:    item.Get("isOccurrence").Bool(),
		ParentSessionID: item.Get("parentSessionId").String(),
		IsRecurring:     item.Get("isRecurring").Bool(),
	}
	kind := schedule.KindOf(shape)

	dateStr := item.Get("date").String()
	if kind == schedule.KindOccurrence && item.Get("occurrenceDate").Exists() {
		dateStr = item.Get("occurrenceDate").String()
	}
	date, err := parseLegacyDate(dateStr)
	if err != nil {
		return nil, nil, fmt.Errorf("日期无效: %q", dateStr)
	}
	start, end, err := parseTimes(item.Get("startTime").String(), item.Get("endTime").String())
	if err != nil {
		return nil, nil, err
	}
	status, _ := schedule.ParseStatus(item.Get("status").String())

	common := schedule.Session{
		ID:        legacyID(academyID, rawID),
		AcademyID: academyID,
		Name:      item.Get("name").String(),
		StartTime: start,
		EndTime:   end,
		PlayerIDs: stringList(item.Get("assignedPlayers")),
		CoachIDs:  stringList(item.Get("coachId")),
		Status:    status,
	}
	if batch := item.Get("assignedBatch").String(); batch != "" {
		if _, err := uuid.Parse(batch); err == nil {
			common.BatchID = batch
		}
	}

	var r schedule.Record
	switch kind {
	case schedule.KindOccurrence:
		r = &schedule.Occurrence{
			Session:  common,
			ParentID: legacyID(academyID, shape.ParentSessionID),
			Date:     date,
		}
	case schedule.KindTemplate:
		endDate, err := parseLegacyDate(item.Get("recurringEndDate").String())
		if err != nil {
			return nil, nil, ErrInvalidRecurrence
		}
		days, err := schedule.ParseDays(stringList(item.Get("selectedDays")))
		if err != nil {
			return nil, nil, ErrInvalidRecurrence
		}
		t := &schedule.Template{
			Session:          common,
			StartDate:        date,
			EndDate:          endDate,
			Days:             days,
			TotalOccurrences: int(item.Get("totalOccurrences").Int()),
		}
		if !t.Valid() {
			return nil, nil, ErrInvalidRecurrence
		}
		r = t
	default:
		r = &schedule.Regular{Session: common, Date: date}
	}

	att := model.Attendance{}
	item.Get("attendance").ForEach(func(key, v gjson.Result) bool {
		st := v.Get("status").String()
		if st != model.AttendancePresent && st != model.AttendanceAbsent {
			return true
		}
		att[key.String()] = model.AttendanceEntry{
			Status:   st,
			MarkedAt: v.Get("markedAt").Time(),
			MarkedBy: v.Get("markedBy").String(),
		}
		return true
	})
	return r, att, nil
}

// parseLegacyDate 接受 YYYY-MM-DD 或以其开头的 ISO 时间戳
func parseLegacyDate(s string) (schedule.Date, error) {
	if len(s) > 10 {
		s = s[:10]
	}
	return schedule.ParseDate(s)
}

// stringList 单个字符串或字符串数组
func stringList(v gjson.Result) []string {
	if !v.Exists() || v.Type == gjson.Null {
		return nil
	}
	if !v.IsArray() {
		if s := v.String(); s != "" {
			return []string{s}
		}
		return nil
	}
	var out []string
	for _, e := range v.Array() {
		if s := e.String(); s != "" {
			out = append(out, s)
		}
	}
	return out
}
