package schedule

import (
	"fmt"
	"testing"
	"time"
)

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("occ-%d", n)
	}
}

func newTemplate(start, end string, days ...time.Weekday) *Template {
	return &Template{
		Session: Session{
			ID:        "tpl-1",
			AcademyID: "academy-1",
			Name:      "U12 训练",
			StartTime: MustParseTimeOfDay("09:00"),
			EndTime:   MustParseTimeOfDay("10:00"),
			BatchID:   "batch-1",
			PlayerIDs: []string{"p1", "p2"},
			CoachIDs:  []string{"c1"},
		},
		StartDate: MustParseDate(start),
		EndDate:   MustParseDate(end),
		Days:      Days(days),
	}
}

func TestExpand_MondayWednesday(t *testing.T) {
	e := &Expander{NewID: seqIDs()}
	tpl := newTemplate("2024-01-01", "2024-01-14", time.Monday, time.Wednesday)

	got := e.Expand(tpl)
	want := []string{"2024-01-01", "2024-01-03", "2024-01-08", "2024-01-10"}
	if len(got) != len(want) {
		t.Fatalf("期望 %d 个实例，实际 %d", len(want), len(got))
	}
	for i, r := range got {
		o, ok := r.(*Occurrence)
		if !ok {
			t.Fatalf("第 %d 条应为实例，实际 %T", i, r)
		}
		if o.Date.String() != want[i] {
			t.Errorf("第 %d 条期望日期 %s，实际 %s", i, want[i], o.Date)
		}
		if o.ParentID != "tpl-1" {
			t.Errorf("ParentID 期望 tpl-1，实际 %s", o.ParentID)
		}
		if o.ID != fmt.Sprintf("occ-%d", i+1) {
			t.Errorf("ID 期望 occ-%d，实际 %s", i+1, o.ID)
		}
		if o.Status != StatusUpcoming {
			t.Errorf("新实例状态应为 Upcoming，实际 %s", o.Status)
		}
		if o.Name != tpl.Name || o.BatchID != tpl.BatchID || o.StartTime != tpl.StartTime {
			t.Error("实例应继承模板公共字段")
		}
	}
}

func TestExpand_OccurrencesDoNotShareSlices(t *testing.T) {
	e := &Expander{NewID: seqIDs()}
	tpl := newTemplate("2024-01-01", "2024-01-02", time.Monday, time.Tuesday)

	got := e.Expand(tpl)
	got[0].Common().PlayerIDs[0] = "changed"
	if tpl.PlayerIDs[0] != "p1" || got[1].Common().PlayerIDs[0] != "p1" {
		t.Error("修改实例不应影响模板或其他实例")
	}
}

func TestExpand_Degenerate(t *testing.T) {
	e := &Expander{NewID: seqIDs()}

	reg := &Regular{Session: Session{ID: "r1"}, Date: MustParseDate("2024-01-01")}
	if got := e.Expand(reg); len(got) != 1 || got[0] != Record(reg) {
		t.Errorf("单次会话应原样返回，实际 %v", got)
	}

	noDays := newTemplate("2024-01-01", "2024-01-14")
	if got := e.Expand(noDays); len(got) != 1 || got[0] != Record(noDays) {
		t.Errorf("无星期的模板应原样返回，实际 %v", got)
	}
}

func TestExpand_EmptyResults(t *testing.T) {
	e := &Expander{NewID: seqIDs()}

	tests := []struct {
		name string
		tpl  *Template
	}{
		{"截止早于起始", newTemplate("2024-01-14", "2024-01-01", time.Monday)},
		// 2024-01-02 ~ 2024-01-05 为周二至周五
		{"无匹配星期", newTemplate("2024-01-02", "2024-01-05", time.Sunday)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.Expand(tt.tpl); len(got) != 0 {
				t.Errorf("期望空结果，实际 %d 条", len(got))
			}
		})
	}
}

func TestExpand_SingleDayRange(t *testing.T) {
	e := &Expander{NewID: seqIDs()}
	got := e.Expand(newTemplate("2024-01-01", "2024-01-01", time.Monday))
	if len(got) != 1 || got[0].SessionDate().String() != "2024-01-01" {
		t.Errorf("起止同一天且匹配，应返回 1 条，实际 %v", got)
	}
}

// 每个选中的星期在区间内至少出现一次
func TestExpand_EveryWeekdayCovered(t *testing.T) {
	e := &Expander{NewID: seqIDs()}
	all := Days{time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday}
	got := e.Expand(newTemplate("2024-03-01", "2024-03-07", all...))
	if len(got) != 7 {
		t.Fatalf("一周全选应得到 7 条，实际 %d", len(got))
	}
	seen := make(map[time.Weekday]bool)
	for i, r := range got {
		seen[r.SessionDate().Weekday()] = true
		if i > 0 && !got[i-1].SessionDate().Before(r.SessionDate()) {
			t.Error("实例应按日期升序")
		}
	}
	if len(seen) != 7 {
		t.Errorf("应覆盖全部 7 个星期，实际 %d", len(seen))
	}
}

func TestExpandTemplate_Truncated(t *testing.T) {
	e := &Expander{NewID: seqIDs(), MaxOccurrences: 3}
	occs, truncated := e.ExpandTemplate(newTemplate("2024-01-01", "2024-01-31", time.Monday, time.Wednesday))
	if len(occs) != 3 {
		t.Errorf("期望截断到 3 条，实际 %d", len(occs))
	}
	if !truncated {
		t.Error("应报告截断")
	}

	e.MaxOccurrences = 4
	occs, truncated = e.ExpandTemplate(newTemplate("2024-01-01", "2024-01-14", time.Monday, time.Wednesday))
	if len(occs) != 4 || truncated {
		t.Errorf("恰好达到上限不算截断，实际 %d 条, truncated=%v", len(occs), truncated)
	}
}

func TestExpand_SkipsExcludedDates(t *testing.T) {
	e := &Expander{NewID: seqIDs()}
	tpl := newTemplate("2024-01-01", "2024-01-14", time.Monday, time.Wednesday)
	tpl.ExcludedDates = Dates{MustParseDate("2024-01-03"), MustParseDate("2024-01-08")}

	occs, truncated := e.ExpandTemplate(tpl)
	if truncated {
		t.Error("不应截断")
	}
	var got []string
	for _, o := range occs {
		got = append(got, o.Date.String())
	}
	if fmt.Sprint(got) != "[2024-01-01 2024-01-10]" {
		t.Errorf("期望 [2024-01-01 2024-01-10]，实际 %v", got)
	}

	if tpl.Matches(MustParseDate("2024-01-03")) {
		t.Error("排除日期不应匹配模板")
	}
	if !tpl.Matches(MustParseDate("2024-01-10")) || tpl.Matches(MustParseDate("2024-01-09")) {
		t.Error("星期匹配结果错误")
	}
	if d, ok := NextDate(tpl, MustParseDate("2024-01-01")); !ok || d.String() != "2024-01-10" {
		t.Errorf("下一场应跳过排除日期，实际 %s", d)
	}
}
