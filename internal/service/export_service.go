package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ams-server/internal/dto"
	"ams-server/internal/model"
	"ams-server/internal/repository"
	"ams-server/internal/schedule"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoSessions   = errors.New("所选范围内没有训练会话")
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 数据来源与会话列表一致（同样的筛选、状态判定与聚合）
//   - Excel 两个 Sheet："会话" 每个顶层会话一行，"场次" 每个具体日期一行
//   - iCalendar 每个单次会话/实例一个 VEVENT，模板本身不输出
type ExportService interface {
	ExportSessions(ctx context.Context, academyID string, req *dto.SessionListRequest) (*bytes.Buffer, string, error)
	ExportCalendar(ctx context.Context, academyID string, req *dto.SessionListRequest) ([]byte, string, error)
}

type exportService struct {
	repo     *repository.Repository
	sessions SessionService
	loc      *time.Location
	clock    func() time.Time
	logger   *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, sessions SessionService, loc *time.Location, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, sessions: sessions, loc: loc, clock: time.Now, logger: logger}
}

// exportData 导出所需的会话与名称索引
type exportData struct {
	academy  string
	sessions []dto.SessionViewResponse
	batches  map[string]string
	players  map[string]string
	users    map[string]string
}

// load 并发加载会话与各类名称
func (s *exportService) load(ctx context.Context, academyID string, req *dto.SessionListRequest) (*exportData, error) {
	data := &exportData{
		academy: academyID,
		batches: make(map[string]string),
		players: make(map[string]string),
		users:   make(map[string]string),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := s.sessions.List(gctx, academyID, req)
		if err != nil {
			return err
		}
		data.sessions = list.Sessions
		return nil
	})
	g.Go(func() error {
		academy, err := s.repo.Academy.GetByID(gctx, academyID)
		if err != nil {
			return err
		}
		data.academy = academy.Name
		return nil
	})
	g.Go(func() error {
		batches, err := s.repo.Batch.List(gctx, academyID)
		if err != nil {
			return err
		}
		for _, b := range batches {
			data.batches[b.BatchID] = b.Name
		}
		return nil
	})
	g.Go(func() error {
		players, err := s.repo.Player.List(gctx, academyID, nil)
		if err != nil {
			return err
		}
		for _, p := range players {
			data.players[p.PlayerID] = p.Name
		}
		return nil
	})
	g.Go(func() error {
		users, _, err := s.repo.User.List(gctx, repository.UserFilter{AcademyID: academyID, Role: model.RoleCoach}, 0, 1000)
		if err != nil {
			return err
		}
		for _, u := range users {
			data.users[u.UserID] = u.Name
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("加载导出数据失败", zap.String("academy_id", academyID), zap.Error(err))
		return nil, err
	}
	if len(data.sessions) == 0 {
		return nil, ErrExportNoSessions
	}
	return data, nil
}

// ═══════════════════════════════════════════════════════════
// ExportSessions 导出训练会话为 Excel
// ═══════════════════════════════════════════════════════════

var sessionSheetHeader = []string{"ID", "名称", "类型", "日期", "结束日期", "时间", "星期", "分组", "球员", "教练", "状态", "完成/总数"}
var occurrenceSheetHeader = []string{"会话", "日期", "时间", "状态", "出勤", "缺勤"}

func (s *exportService) ExportSessions(ctx context.Context, academyID string, req *dto.SessionListRequest) (*bytes.Buffer, string, error) {
	data, err := s.load(ctx, academyID, req)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sessionSheet, occurrenceSheet = "会话", "场次"
	idx, _ := f.NewSheet(sessionSheet)
	f.SetActiveSheet(idx)
	f.NewSheet(occurrenceSheet)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	writeHeader(f, sessionSheet, sessionSheetHeader, headerStyle)
	writeHeader(f, occurrenceSheet, occurrenceSheetHeader, headerStyle)
	f.SetColWidth(sessionSheet, "A", "A", 38)
	f.SetColWidth(sessionSheet, "B", "B", 24)
	f.SetColWidth(sessionSheet, "G", "J", 28)
	f.SetColWidth(occurrenceSheet, "A", "A", 24)

	row, occRow := 2, 2
	for _, v := range data.sessions {
		kind := "单次"
		if v.IsRecurring {
			kind = "循环"
		}
		values := []interface{}{
			v.ID,
			v.Name,
			kind,
			v.Date,
			v.RecurringEndDate,
			v.StartTime + "-" + v.EndTime,
			strings.Join(v.SelectedDays, ", "),
			data.batches[v.AssignedBatchID],
			joinNames(v.AssignedPlayers, data.players),
			joinNames(v.CoachIDs, data.users),
			string(v.Status),
			fmt.Sprintf("%d/%d", v.Completed, v.Total),
		}
		f.SetSheetRow(sessionSheet, cell("A", row), &values)
		row++

		for _, o := range datedSessions(v) {
			present, absent := attendanceCounts(o.Attendance)
			occValues := []interface{}{
				o.Name,
				o.Date,
				o.StartTime + "-" + o.EndTime,
				string(o.Status),
				present,
				absent,
			}
			f.SetSheetRow(occurrenceSheet, cell("A", occRow), &occValues)
			occRow++
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("训练会话_%s_%s.xlsx", data.academy, s.clock().In(s.loc).Format("20060102"))
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// ExportCalendar 导出训练会话为 iCalendar
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportCalendar(ctx context.Context, academyID string, req *dto.SessionListRequest) ([]byte, string, error) {
	data, err := s.load(ctx, academyID, req)
	if err != nil {
		return nil, "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//ams-server//training sessions//ZH")
	cal.SetXWRCalName(data.academy + " 训练日程")
	cal.SetXWRTimezone(s.loc.String())

	stamp := s.clock().UTC()
	for _, v := range data.sessions {
		for _, o := range datedSessions(v) {
			start, end, ok := s.bounds(o)
			if !ok {
				continue
			}
			event := cal.AddEvent(o.ID + "@ams-server")
			event.SetDtStampTime(stamp)
			event.SetStartAt(start)
			event.SetEndAt(end)
			event.SetSummary(o.Name)

			var desc []string
			if name := data.batches[o.AssignedBatchID]; name != "" {
				desc = append(desc, "分组: "+name)
			}
			if coaches := joinNames(o.CoachIDs, data.users); coaches != "" {
				desc = append(desc, "教练: "+coaches)
			}
			desc = append(desc, "状态: "+string(o.Status))
			event.SetDescription(strings.Join(desc, "\n"))
		}
	}

	return []byte(cal.Serialize()), fmt.Sprintf("sessions_%s.ics", academyID), nil
}

// bounds 会话在学院时区的起止时刻
func (s *exportService) bounds(o dto.SessionResponse) (time.Time, time.Time, bool) {
	d, err := schedule.ParseDate(o.Date)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	start, end, err := parseTimes(o.StartTime, o.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	from, to := schedule.Bounds(d, start, end, s.loc)
	return from, to, true
}

// ── 辅助函数 ──

// datedSessions 模板返回其实例，单次会话返回自身
func datedSessions(v dto.SessionViewResponse) []dto.SessionResponse {
	if v.IsRecurring {
		return v.Occurrences
	}
	return []dto.SessionResponse{v.SessionResponse}
}

func attendanceCounts(att model.Attendance) (int, int) {
	var present, absent int
	for _, e := range att {
		switch e.Status {
		case model.AttendancePresent:
			present++
		case model.AttendanceAbsent:
			absent++
		}
	}
	return present, absent
}

// joinNames 按 id 查名称，查不到时保留 id
func joinNames(ids []string, names map[string]string) string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if n, ok := names[id]; ok {
			out = append(out, n)
		} else {
			out = append(out, id)
		}
	}
	return strings.Join(out, ", ")
}

func writeHeader(f *excelize.File, sheet string, header []string, style int) {
	values := make([]interface{}, len(header))
	for i, h := range header {
		values[i] = h
	}
	f.SetSheetRow(sheet, "A1", &values)
	f.SetCellStyle(sheet, "A1", cell(colName(len(header)-1), 1), style)
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
