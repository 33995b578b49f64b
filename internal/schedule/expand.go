package schedule

import (
	"time"

	"github.com/google/uuid"
	"github.com/teambition/rrule-go"
)

// DefaultMaxOccurrences 单个模板最多展开的实例数
const DefaultMaxOccurrences = 1000

var rruleWeekdays = map[time.Weekday]rrule.Weekday{
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
	time.Sunday:    rrule.SU,
}

// Expander 循环会话展开器
type Expander struct {
	// NewID 生成实例代理主键，为空时使用 uuid.NewString
	NewID func() string
	// MaxOccurrences 展开上限，<=0 时取 DefaultMaxOccurrences
	MaxOccurrences int
}

// NewExpander 创建展开器
func NewExpander(maxOccurrences int) *Expander {
	return &Expander{NewID: uuid.NewString, MaxOccurrences: maxOccurrences}
}

// Expand 展开一条记录。
// 单次会话、无星期的模板以及实例原样返回为单元素切片；模板按日期升序返回其实例。
func (e *Expander) Expand(r Record) []Record {
	t, ok := r.(*Template)
	if !ok || len(t.Days) == 0 {
		return []Record{r}
	}
	occs, _ := e.ExpandTemplate(t)
	out := make([]Record, len(occs))
	for i, o := range occs {
		out[i] = o
	}
	return out
}

// ExpandTemplate 展开模板为实例，第二个返回值表示是否因上限被截断。
// EndDate 早于 StartDate 或没有匹配的星期时返回空；ExcludedDates 中的日期不展开。
func (e *Expander) ExpandTemplate(t *Template) ([]*Occurrence, bool) {
	if len(t.Days) == 0 || t.StartDate.IsZero() || t.EndDate.IsZero() || t.EndDate.Before(t.StartDate) {
		return nil, false
	}

	byDay := make([]rrule.Weekday, 0, len(t.Days))
	for _, d := range t.Days {
		byDay = append(byDay, rruleWeekdays[d])
	}

	// 在 UTC 零点上按天迭代，只取日期部分，结果与部署时区无关
	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.DAILY,
		Dtstart:   t.StartDate.In(time.UTC),
		Until:     t.EndDate.In(time.UTC),
		Byweekday: byDay,
	})
	if err != nil {
		return nil, false
	}

	set := &rrule.Set{}
	set.RRule(rule)
	for _, d := range t.ExcludedDates {
		set.ExDate(d.In(time.UTC))
	}

	limit := e.limit()
	out := make([]*Occurrence, 0)
	next := set.Iterator()
	for {
		day, ok := next()
		if !ok {
			return out, false
		}
		if len(out) == limit {
			return out, true
		}
		out = append(out, e.occurrenceOf(t, DateOf(day)))
	}
}

func (e *Expander) limit() int {
	if e.MaxOccurrences <= 0 {
		return DefaultMaxOccurrences
	}
	return e.MaxOccurrences
}

func (e *Expander) newID() string {
	if e.NewID == nil {
		return uuid.NewString()
	}
	return e.NewID()
}

func (e *Expander) occurrenceOf(t *Template, d Date) *Occurrence {
	s := t.Session.clone()
	s.ID = e.newID()
	s.Status = StatusUpcoming
	return &Occurrence{Session: s, ParentID: t.ID, Date: d}
}
