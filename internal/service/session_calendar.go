package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"ams-server/internal/dto"
	"ams-server/internal/schedule"
)

// ── iCalendar 导入 ──────────────────────────────────────────
//
// 将外部日历（RFC 5545）中的 VEVENT 转为训练会话：
//   - 无 RRULE 的事件 → 单次会话
//   - FREQ=WEEKLY/DAILY 的事件 → 循环模板，星期取 BYDAY（缺省为 DTSTART 当天）
//   - 结束日期取 UNTIL；只有 COUNT 时按规则展开取最后一次；两者都没有时截止到 calendarHorizon
//   - EXDATE 记入模板的排除日期，展开与后续同步都会跳过
// ─────────────────────────────────────────────────────────────

const calendarHorizon = 26 * 7 * 24 * time.Hour

var ErrInvalidCalendar = errors.New("ICS 格式解析失败")

// calendarEvent 解析后的日历事件
type calendarEvent struct {
	Name      string
	Date      schedule.Date
	EndDate   schedule.Date
	Days      schedule.Days
	StartTime schedule.TimeOfDay
	EndTime   schedule.TimeOfDay
	Recurring bool
	Excluded  schedule.Dates
}

// parseCalendar 解析 ICS 内容，无法识别的事件计入 skipped
func parseCalendar(reader io.Reader, loc *time.Location) ([]calendarEvent, []dto.ImportError, error) {
	cal, err := ics.ParseCalendar(reader)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidCalendar, err)
	}

	var (
		events  []calendarEvent
		skipped []dto.ImportError
	)
	for i, comp := range cal.Events() {
		evt, err := parseVEvent(comp, loc)
		if err != nil {
			skipped = append(skipped, dto.ImportError{Index: i, Reason: err.Error()})
			continue
		}
		events = append(events, evt)
	}
	return events, skipped, nil
}

func parseVEvent(evt *ics.VEvent, loc *time.Location) (calendarEvent, error) {
	summary := evt.GetProperty(ics.ComponentPropertySummary)
	if summary == nil || strings.TrimSpace(summary.Value) == "" {
		return calendarEvent{}, fmt.Errorf("缺少 SUMMARY")
	}

	dtStart, err := parseICSDateTime(evt, ics.ComponentPropertyDtStart, loc)
	if err != nil {
		return calendarEvent{}, err
	}
	dtEnd, err := parseICSDateTime(evt, ics.ComponentPropertyDtEnd, loc)
	if err != nil {
		// 无 DTEND 时按 1 小时处理
		dtEnd = dtStart.Add(time.Hour)
	}

	out := calendarEvent{
		Name:      strings.TrimSpace(summary.Value),
		Date:      schedule.DateOf(dtStart),
		StartTime: schedule.TimeOfDay{Hour: dtStart.Hour(), Minute: dtStart.Minute()},
		EndTime:   schedule.TimeOfDay{Hour: dtEnd.Hour(), Minute: dtEnd.Minute()},
	}

	prop := evt.GetProperty(ics.ComponentPropertyRrule)
	if prop == nil {
		return out, nil
	}

	opt, err := rrule.StrToROption(prop.Value)
	if err != nil {
		return calendarEvent{}, fmt.Errorf("RRULE 无效: %s", prop.Value)
	}
	if opt.Interval > 1 {
		return calendarEvent{}, fmt.Errorf("不支持 INTERVAL>1 的重复规则")
	}

	switch opt.Freq {
	case rrule.WEEKLY:
		for i := range opt.Byweekday {
			out.Days = append(out.Days, time.Weekday((opt.Byweekday[i].Day()+1)%7))
		}
		if len(out.Days) == 0 {
			out.Days = schedule.Days{dtStart.Weekday()}
		}
	case rrule.DAILY:
		out.Days = schedule.Days{
			time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
			time.Friday, time.Saturday, time.Sunday,
		}
	default:
		return calendarEvent{}, fmt.Errorf("仅支持按天或按周重复")
	}

	switch {
	case !opt.Until.IsZero():
		out.EndDate = schedule.DateOf(opt.Until.In(loc))
	case opt.Count > 0:
		opt.Dtstart = dtStart
		rule, err := rrule.NewRRule(*opt)
		if err != nil {
			return calendarEvent{}, fmt.Errorf("RRULE 无效: %s", prop.Value)
		}
		all := rule.All()
		if len(all) == 0 {
			return calendarEvent{}, fmt.Errorf("重复规则没有任何日期")
		}
		out.EndDate = schedule.DateOf(all[len(all)-1].In(loc))
	default:
		out.EndDate = schedule.DateOf(dtStart.Add(calendarHorizon))
	}

	out.Recurring = true
	out.Excluded = parseExDates(evt, loc)
	return out, nil
}

// parseExDates 解析事件中所有 EXDATE（可含逗号分隔的多个值）
func parseExDates(evt *ics.VEvent, loc *time.Location) schedule.Dates {
	var out schedule.Dates
	for _, prop := range evt.Properties {
		if prop.IANAToken != string(ics.ComponentPropertyExdate) {
			continue
		}
		for _, v := range strings.Split(prop.Value, ",") {
			if t, err := parseICSValue(strings.TrimSpace(v), "", loc); err == nil {
				out = append(out, schedule.DateOf(t))
			}
		}
	}
	return out
}

// parseICSDateTime 解析 VEVENT 中的日期时间属性，结果换算到 loc
func parseICSDateTime(evt *ics.VEvent, propName ics.ComponentProperty, loc *time.Location) (time.Time, error) {
	prop := evt.GetProperty(propName)
	if prop == nil {
		return time.Time{}, fmt.Errorf("缺少 %s", propName)
	}

	tzid := ""
	for k, v := range prop.ICalParameters {
		if strings.ToUpper(k) == "TZID" && len(v) > 0 {
			tzid = v[0]
		}
	}
	return parseICSValue(prop.Value, tzid, loc)
}

func parseICSValue(val, tzid string, loc *time.Location) (time.Time, error) {
	for _, layout := range []string{"20060102T150405Z", "20060102T150405", "20060102"} {
		t, err := time.Parse(layout, val)
		if err != nil {
			continue
		}
		if strings.HasSuffix(layout, "Z") {
			return t.In(loc), nil
		}
		src := loc
		if tzid != "" {
			if tzLoc, err := time.LoadLocation(tzid); err == nil {
				src = tzLoc
			}
		}
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, src).In(loc), nil
	}
	return time.Time{}, fmt.Errorf("无法解析日期: %s", val)
}

// ImportCalendar 将 ICS 日历导入为训练会话，可指定统一的分组
func (s *sessionService) ImportCalendar(ctx context.Context, academyID string, reader io.Reader, batchID, callerID string) (*dto.ImportResult, error) {
	events, skipped, err := parseCalendar(reader, s.loc)
	if err != nil {
		return nil, err
	}

	result := &dto.ImportResult{
		Total:  len(events) + len(skipped),
		Failed: len(skipped),
		Errors: skipped,
	}
	for i, evt := range events {
		req := &dto.CreateSessionRequest{
			Name:            evt.Name,
			IsRecurring:     evt.Recurring,
			Date:            evt.Date.String(),
			StartTime:       evt.StartTime.String(),
			EndTime:         evt.EndTime.String(),
			AssignedBatchID: batchID,
		}
		if evt.Recurring {
			req.RecurringEndDate = evt.EndDate.String()
			req.SelectedDays = evt.Days.Names()
			req.ExcludedDates = evt.Excluded.Strings()
		}

		if _, err := s.Create(ctx, academyID, req, callerID); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, dto.ImportError{Index: i, Reason: err.Error()})
			continue
		}
		result.Imported++
	}

	s.logger.Info("日历导入完成",
		zap.String("academy_id", academyID),
		zap.Int("total", result.Total),
		zap.Int("imported", result.Imported),
		zap.Int("failed", result.Failed))
	return result, nil
}
