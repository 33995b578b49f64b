package schedule

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

const dateLayout = "2006-01-02"

// Date 不含时区的日历日期（YYYY-MM-DD），基于 civil.Date
// 会话日期、循环截止日期、实例日期统一使用该类型，避免 UTC 零点解析后再按本地时区显示造成的错位。
type Date civil.Date

// NewDate 构造日期，越界的日/月按 time.Date 规则归一化
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf 取时间点在其自身时区下的日历日期
func DateOf(t time.Time) Date { return Date(civil.DateOf(t)) }

// ParseDate 解析 YYYY-MM-DD
func ParseDate(s string) (Date, error) {
	d, err := civil.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("无效的日期 %q: %w", s, err)
	}
	return Date(d), nil
}

// MustParseDate 解析失败时 panic，仅用于常量与测试
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) toCivil() civil.Date { return civil.Date(d) }

// IsZero 是否为零值（未设置）
func (d Date) IsZero() bool { return d == Date{} }

// String 返回 YYYY-MM-DD，零值返回空串
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.toCivil().String()
}

// In 返回该日期在 loc 时区的零点
func (d Date) In(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return d.toCivil().In(loc)
}

func (d Date) AddDays(n int) Date { return Date(d.toCivil().AddDays(n)) }

// Weekday 星期几
func (d Date) Weekday() time.Weekday { return d.In(time.UTC).Weekday() }

func (d Date) Before(o Date) bool { return d.toCivil().Before(o.toCivil()) }
func (d Date) After(o Date) bool  { return d.toCivil().After(o.toCivil()) }
func (d Date) Equal(o Date) bool  { return d == o }

// Compare d<o 返回 -1，相等 0，d>o 返回 1
func (d Date) Compare(o Date) int {
	switch {
	case d.Before(o):
		return -1
	case d.After(o):
		return 1
	default:
		return 0
	}
}

// MarshalJSON 输出 "YYYY-MM-DD"，零值输出 null
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON 接受 "YYYY-MM-DD"、完整 RFC3339 时间（取日期部分）、空串与 null
func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	if len(s) > len(dateLayout) && s[len(dateLayout)] == 'T' {
		s = s[:len(dateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Scan 实现 sql.Scanner（PostgreSQL DATE 列）
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = DateOf(v)
		return nil
	case []byte:
		return d.scanString(string(v))
	case string:
		return d.scanString(v)
	default:
		return fmt.Errorf("Date.Scan: unsupported type %T", src)
	}
}

func (d *Date) scanString(s string) error {
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value 实现 driver.Valuer，零值写入 NULL
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

// TimeOfDay 本地挂钟时间 HH:MM（24 小时制），基于 civil.Time，秒与纳秒恒为 0
type TimeOfDay civil.Time

// ParseTimeOfDay 解析 "HH:MM"（也接受 "H:MM" 与数据库返回的 "HH:MM:SS"）
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	v := strings.TrimSpace(s)
	if strings.Count(v, ":") == 1 {
		v += ":00"
	}
	t, err := civil.ParseTime(v)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("无效的时间 %q", s)
	}
	return TimeOfDay{Hour: t.Hour, Minute: t.Minute}, nil
}

// MustParseTimeOfDay 解析失败时 panic，仅用于常量与测试
func MustParseTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

// String 返回 HH:MM
func (t TimeOfDay) String() string { return civil.Time(t).String()[:5] }

// Offset 距当日零点的时长
func (t TimeOfDay) Offset() time.Duration {
	return time.Duration(t.Hour)*time.Hour + time.Duration(t.Minute)*time.Minute
}

// Compare 比较两个时刻
func (t TimeOfDay) Compare(o TimeOfDay) int {
	a, b := t.Offset(), o.Offset()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// On 返回 date 当天该时刻（loc 时区）
func (t TimeOfDay) On(d Date, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return civil.DateTime{Date: d.toCivil(), Time: civil.Time(t)}.In(loc)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) { return json.Marshal(t.String()) }

func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Scan 实现 sql.Scanner（VARCHAR(5) 列）
func (t *TimeOfDay) Scan(src interface{}) error {
	var s string
	switch v := src.(type) {
	case []byte:
		s = string(v)
	case string:
		s = v
	default:
		return fmt.Errorf("TimeOfDay.Scan: unsupported type %T", src)
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Value 实现 driver.Valuer
func (t TimeOfDay) Value() (driver.Value, error) { return t.String(), nil }
