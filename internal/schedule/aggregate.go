package schedule

import (
	"sort"
	"time"
)

// NextDate 从模板起始日期逐日遍历到截止日期，返回第一个匹配模板且严格晚于 today 的日期
func NextDate(t *Template, today Date) (Date, bool) {
	if len(t.Days) == 0 || t.StartDate.IsZero() || t.EndDate.IsZero() {
		return Date{}, false
	}
	for d := t.StartDate; !d.After(t.EndDate); d = d.AddDays(1) {
		if t.Matches(d) && d.After(today) {
			return d, true
		}
	}
	return Date{}, false
}

// LastFinished 在结束时间早于 now 的实例中取 (日期, 结束时刻) 最大的一条
func LastFinished(occs []*Occurrence, now time.Time) (*Occurrence, bool) {
	var last *Occurrence
	for _, o := range occs {
		if !Ended(o, now) {
			continue
		}
		if last == nil || later(o, last) {
			last = o
		}
	}
	return last, last != nil
}

func later(a, b *Occurrence) bool {
	if c := a.Date.Compare(b.Date); c != 0 {
		return c > 0
	}
	return a.EndTime.Compare(b.EndTime) > 0
}

// CompletedCount 已结束的场次数：模板统计其实例，单次会话为 0 或 1。每次调用都重新计算。
func CompletedCount(r Record, occs []*Occurrence, now time.Time) int {
	switch r.(type) {
	case *Template:
		n := 0
		for _, o := range occs {
			if Ended(o, now) {
				n++
			}
		}
		return n
	default:
		if Ended(r, now) {
			return 1
		}
		return 0
	}
}

// Counts 各状态计数
type Counts struct {
	Upcoming int `json:"upcoming"`
	Ongoing  int `json:"ongoing"`
	Finished int `json:"finished"`
}

func (c *Counts) add(s Status) {
	switch s {
	case StatusOngoing:
		c.Ongoing++
	case StatusFinished:
		c.Finished++
	default:
		c.Upcoming++
	}
}

// View 一条顶层会话（模板或单次会话）的展示汇总
type View struct {
	Record      Record
	Occurrences []*Occurrence
	Status      Status
	Counts      Counts
	Total       int
	Completed   int
	// NextDate 仅模板有值
	NextDate Date
	// LastFinishedDate 最近一次已结束场次的日期
	LastFinishedDate Date
}

// BuildViews 将记录汇总为顶层视图：实例归到父模板下（缺失的父模板会被补齐），
// 状态按 now 重新判定且只前进不回退，实例按日期升序。
func BuildViews(records []Record, now time.Time) []View {
	merged := Reconcile(records, nil)
	templates, regulars, occs := Partition(merged)

	byParent := make(map[string][]*Occurrence, len(templates))
	for _, o := range occs {
		byParent[o.ParentID] = append(byParent[o.ParentID], o)
	}

	today := DateOf(now)
	views := make([]View, 0, len(templates)+len(regulars))
	for _, t := range templates {
		group := byParent[t.ID]
		sort.SliceStable(group, func(i, j int) bool { return group[i].Date.Before(group[j].Date) })

		v := View{Record: t, Occurrences: group, Total: len(group)}
		for _, o := range group {
			v.Counts.add(o.Status.Advance(Classify(o, now)))
		}
		v.Status = templateStatus(t, v.Counts, now)
		v.Completed = CompletedCount(t, group, now)
		if d, ok := NextDate(t, today); ok {
			v.NextDate = d
		}
		if o, ok := LastFinished(group, now); ok {
			v.LastFinishedDate = o.Date
		}
		views = append(views, v)
	}
	for _, r := range regulars {
		st := r.Status.Advance(Classify(r, now))
		v := View{Record: r, Status: st, Total: 1, Completed: CompletedCount(r, nil, now)}
		v.Counts.add(st)
		if st == StatusFinished {
			v.LastFinishedDate = r.Date
		}
		views = append(views, v)
	}
	return views
}

// templateStatus 模板整体状态：有进行中的实例为进行中，否则有未开始的为未开始，
// 实例全部结束为已结束；没有实例时按模板起始日期判定。
func templateStatus(t *Template, c Counts, now time.Time) Status {
	switch {
	case c.Ongoing > 0:
		return StatusOngoing
	case c.Upcoming > 0:
		return StatusUpcoming
	case c.Finished > 0:
		return StatusFinished
	default:
		return t.Status.Advance(Classify(t, now))
	}
}

// Summarize 汇总所有顶层视图的状态计数
func Summarize(views []View) Counts {
	var c Counts
	for _, v := range views {
		if _, ok := v.Record.(*Template); ok {
			c.Upcoming += v.Counts.Upcoming
			c.Ongoing += v.Counts.Ongoing
			c.Finished += v.Counts.Finished
			continue
		}
		c.add(v.Status)
	}
	return c
}
