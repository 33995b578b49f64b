package service

import (
	"sort"

	"github.com/lib/pq"
	"gorm.io/datatypes"

	"ams-server/internal/dto"
	"ams-server/internal/model"
	"ams-server/internal/schedule"
)

// ── training_sessions 行 ↔ schedule.Record ──

func toRecord(row *model.TrainingSession) schedule.Record {
	common := schedule.Session{
		ID:        row.SessionID,
		AcademyID: row.AcademyID,
		Name:      row.Name,
		StartTime: row.StartTime,
		EndTime:   row.EndTime,
		BatchID:   model.StrVal(row.AssignedBatchID),
		PlayerIDs: []string(row.AssignedPlayers),
		CoachIDs:  []string(row.CoachIDs),
		Status:    row.Status,
	}
	switch row.Kind {
	case schedule.KindTemplate:
		return &schedule.Template{
			Session:          common,
			StartDate:        row.SessionDate,
			EndDate:          row.RecurringEndDate,
			Days:             row.SelectedDays,
			ExcludedDates:    row.ExcludedDates,
			TotalOccurrences: row.TotalOccurrences,
		}
	case schedule.KindOccurrence:
		return &schedule.Occurrence{
			Session:  common,
			ParentID: model.StrVal(row.ParentSessionID),
			Date:     row.SessionDate,
		}
	default:
		return &schedule.Regular{Session: common, Date: row.SessionDate}
	}
}

func toRecords(rows []model.TrainingSession) ([]schedule.Record, map[string]*model.TrainingSession) {
	records := make([]schedule.Record, 0, len(rows))
	byID := make(map[string]*model.TrainingSession, len(rows))
	for i := range rows {
		byID[rows[i].SessionID] = &rows[i]
		records = append(records, toRecord(&rows[i]))
	}
	return records, byID
}

// fromRecord 由模板或单次会话构造待写入的行
func fromRecord(r schedule.Record) *model.TrainingSession {
	c := r.Common()
	row := &model.TrainingSession{
		SessionID:       c.ID,
		AcademyID:       c.AcademyID,
		Kind:            r.Kind(),
		Name:            c.Name,
		SessionDate:     r.SessionDate(),
		StartTime:       c.StartTime,
		EndTime:         c.EndTime,
		AssignedBatchID: model.StrPtr(c.BatchID),
		AssignedPlayers: pq.StringArray(nonNil(c.PlayerIDs)),
		CoachIDs:        pq.StringArray(nonNil(c.CoachIDs)),
		Status:          c.Status,
		Attendance:      datatypes.NewJSONType(model.Attendance{}),
		PlayerMetrics:   datatypes.NewJSONType(model.SessionMetricsMap{}),
	}
	switch v := r.(type) {
	case *schedule.Template:
		row.RecurringEndDate = v.EndDate
		row.SelectedDays = v.Days
		row.ExcludedDates = v.ExcludedDates
		row.TotalOccurrences = v.TotalOccurrences
	case *schedule.Occurrence:
		row.ParentSessionID = model.StrPtr(v.ParentID)
	}
	return row
}

func occurrenceRows(occs []*schedule.Occurrence, createdBy string) []model.TrainingSession {
	rows := make([]model.TrainingSession, 0, len(occs))
	for _, o := range occs {
		row := fromRecord(o)
		row.CreatedBy = model.StrPtr(createdBy)
		rows = append(rows, *row)
	}
	return rows
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

// ── 响应 ──

// toSessionResponse row 为空时（补齐的虚拟模板）仅使用记录字段
func toSessionResponse(r schedule.Record, row *model.TrainingSession) dto.SessionResponse {
	c := r.Common()
	resp := dto.SessionResponse{
		ID:              c.ID,
		Kind:            r.Kind(),
		Name:            c.Name,
		Date:            r.SessionDate().String(),
		StartTime:       c.StartTime.String(),
		EndTime:         c.EndTime.String(),
		AssignedBatchID: c.BatchID,
		AssignedPlayers: nonNil(c.PlayerIDs),
		CoachIDs:        nonNil(c.CoachIDs),
		Status:          c.Status,
	}
	switch v := r.(type) {
	case *schedule.Template:
		resp.IsRecurring = true
		resp.Virtual = v.Virtual
		resp.RecurringEndDate = v.EndDate.String()
		resp.SelectedDays = v.Days.Names()
		if len(v.ExcludedDates) > 0 {
			resp.ExcludedDates = v.ExcludedDates.Strings()
		}
		resp.TotalOccurrences = v.TotalOccurrences
	case *schedule.Occurrence:
		resp.ParentSessionID = v.ParentID
	}
	if row != nil && r.Kind() != schedule.KindTemplate {
		resp.Attendance = row.Attendance.Data()
		resp.PlayerMetrics = row.PlayerMetrics.Data()
	}
	return resp
}

func toViewResponse(v schedule.View, rows map[string]*model.TrainingSession) dto.SessionViewResponse {
	session := toSessionResponse(v.Record, rows[v.Record.Common().ID])
	session.Status = v.Status

	resp := dto.SessionViewResponse{
		SessionResponse: session,
		Counts:          v.Counts,
		Completed:       v.Completed,
		Total:           v.Total,
	}
	if !v.NextDate.IsZero() {
		resp.NextDate = v.NextDate.String()
	}
	if !v.LastFinishedDate.IsZero() {
		resp.LastFinishedDate = v.LastFinishedDate.String()
	}
	for _, o := range v.Occurrences {
		resp.Occurrences = append(resp.Occurrences, toSessionResponse(o, rows[o.ID]))
	}
	return resp
}

// sortViews 按日期、开始时间升序
func sortViews(views []schedule.View) {
	sort.SliceStable(views, func(i, j int) bool {
		a, b := views[i].Record, views[j].Record
		if c := a.SessionDate().Compare(b.SessionDate()); c != 0 {
			return c < 0
		}
		return a.Common().StartTime.Compare(b.Common().StartTime) < 0
	})
}
