package schedule

import (
	"database/sql/driver"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lib/pq"
)

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekday 解析英文星期全称（大小写不敏感）
func ParseWeekday(s string) (time.Weekday, error) {
	w, ok := weekdayNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("无效的星期 %q", s)
	}
	return w, nil
}

// WeekdayName 返回小写英文全称，如 "monday"
func WeekdayName(w time.Weekday) string { return strings.ToLower(w.String()) }

// Days 循环会话的星期集合（selectedDays）
type Days []time.Weekday

// ParseDays 解析星期名称列表，去重并保持输入顺序
func ParseDays(names []string) (Days, error) {
	out := make(Days, 0, len(names))
	for _, n := range names {
		w, err := ParseWeekday(n)
		if err != nil {
			return nil, err
		}
		if !out.Contains(w) {
			out = append(out, w)
		}
	}
	return out, nil
}

// Contains 是否包含某天
func (ds Days) Contains(w time.Weekday) bool {
	for _, d := range ds {
		if d == w {
			return true
		}
	}
	return false
}

// Names 返回小写星期名称列表
func (ds Days) Names() []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = WeekdayName(d)
	}
	return out
}

// Scan 实现 sql.Scanner（PostgreSQL TEXT[] 列）
func (ds *Days) Scan(src interface{}) error {
	var names pq.StringArray
	if err := names.Scan(src); err != nil {
		return err
	}
	parsed, err := ParseDays(names)
	if err != nil {
		return err
	}
	*ds = parsed
	return nil
}

// Value 实现 driver.Valuer
func (ds Days) Value() (driver.Value, error) {
	return pq.StringArray(ds.Names()).Value()
}

// Dates 日期集合，对应 PostgreSQL DATE[] 列
type Dates []Date

// ParseDates 解析 YYYY-MM-DD 列表，去重并按日期升序
func ParseDates(values []string) (Dates, error) {
	out := make(Dates, 0, len(values))
	for _, v := range values {
		d, err := ParseDate(v)
		if err != nil {
			return nil, err
		}
		if !out.Contains(d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

func (ds Dates) Contains(d Date) bool {
	for _, x := range ds {
		if x == d {
			return true
		}
	}
	return false
}

// Strings 返回 YYYY-MM-DD 列表
func (ds Dates) Strings() []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.String()
	}
	return out
}

// Scan 实现 sql.Scanner
func (ds *Dates) Scan(src interface{}) error {
	var values pq.StringArray
	if err := values.Scan(src); err != nil {
		return err
	}
	parsed, err := ParseDates(values)
	if err != nil {
		return err
	}
	*ds = parsed
	return nil
}

// Value 实现 driver.Valuer，空集合写入 '{}'
func (ds Dates) Value() (driver.Value, error) {
	return pq.StringArray(ds.Strings()).Value()
}
