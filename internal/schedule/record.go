// Package schedule 训练会话的核心日程逻辑：循环展开、状态判定、实例去重合并与聚合视图。
//
// 本包不做任何 I/O，所有函数只依赖入参（以及调用方传入的当前时间）。
package schedule

// Kind 会话记录的变体标签
type Kind string

const (
	KindRegular    Kind = "regular"
	KindTemplate   Kind = "template"
	KindOccurrence Kind = "occurrence"
)

// Valid 是否为已知变体
func (k Kind) Valid() bool {
	return k == KindRegular || k == KindTemplate || k == KindOccurrence
}

// Session 三种变体共享的字段
type Session struct {
	ID        string
	AcademyID string
	Name      string
	StartTime TimeOfDay
	EndTime   TimeOfDay
	BatchID   string
	PlayerIDs []string
	CoachIDs  []string
	Status    Status
}

// clone 深拷贝切片字段
func (s Session) clone() Session {
	out := s
	out.PlayerIDs = append([]string(nil), s.PlayerIDs...)
	out.CoachIDs = append([]string(nil), s.CoachIDs...)
	return out
}

// Record 会话记录（Regular | Template | Occurrence）
type Record interface {
	Kind() Kind
	Common() *Session
	// SessionDate 用于状态判定的日期：实例/单次会话的日期，模板的起始日期
	SessionDate() Date
}

// Regular 非循环的单次会话
type Regular struct {
	Session
	Date Date
}

func (r *Regular) Kind() Kind        { return KindRegular }
func (r *Regular) Common() *Session  { return &r.Session }
func (r *Regular) SessionDate() Date { return r.Date }

// Template 循环会话定义
type Template struct {
	Session
	StartDate        Date
	EndDate          Date
	Days             Days
	// ExcludedDates 跳过的日期（如 ICS EXDATE、假期），展开与同步都不会生成这些日期的实例
	ExcludedDates    Dates
	TotalOccurrences int
	// Virtual 由实例反推出的模板（原模板已不存在）
	Virtual bool
}

func (t *Template) Kind() Kind        { return KindTemplate }
func (t *Template) Common() *Session  { return &t.Session }
func (t *Template) SessionDate() Date { return t.StartDate }

// Valid 模板不变量：星期集合非空且 EndDate ≥ StartDate
func (t *Template) Valid() bool {
	return len(t.Days) > 0 && !t.StartDate.IsZero() && !t.EndDate.IsZero() && !t.EndDate.Before(t.StartDate)
}

// Matches 日期是否落在模板的区间与星期上且未被排除
func (t *Template) Matches(d Date) bool {
	return !d.Before(t.StartDate) && !d.After(t.EndDate) &&
		t.Days.Contains(d.Weekday()) && !t.ExcludedDates.Contains(d)
}

// Occurrence 由模板展开出的某一天的实例
type Occurrence struct {
	Session
	ParentID string
	Date     Date
}

func (o *Occurrence) Kind() Kind        { return KindOccurrence }
func (o *Occurrence) Common() *Session  { return &o.Session }
func (o *Occurrence) SessionDate() Date { return o.Date }

// Key 实例的内容标识 (ParentID, Date)
func (o *Occurrence) Key() string { return o.ParentID + "|" + o.Date.String() }

// LegacyShape 旧文档中用于推断记录类型的字段
type LegacyShape struct {
	IsOccurrence    bool
	ParentSessionID string
	IsRecurring     bool
}

// KindOf 按旧文档的字段形态推断变体：
// isOccurrence 且有 parentSessionId → 实例；isRecurring 且非实例 → 模板；其余为单次会话。
func KindOf(l LegacyShape) Kind {
	switch {
	case l.IsOccurrence && l.ParentSessionID != "":
		return KindOccurrence
	case l.IsRecurring && !l.IsOccurrence:
		return KindTemplate
	default:
		return KindRegular
	}
}
