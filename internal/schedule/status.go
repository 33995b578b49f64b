package schedule

import (
	"fmt"
	"time"
)

// Status 会话生命周期状态，完全由当前时间与会话日期/起止时刻推导
type Status string

const (
	StatusUpcoming Status = "Upcoming"
	StatusOngoing  Status = "On-going"
	StatusFinished Status = "Finished"
)

// ParseStatus 解析状态字符串
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusUpcoming, StatusOngoing, StatusFinished:
		return Status(s), nil
	}
	return "", fmt.Errorf("无效的会话状态 %q", s)
}

// finality 未设置 < Upcoming < On-going < Finished
func (s Status) finality() int {
	switch s {
	case StatusUpcoming:
		return 0
	case StatusOngoing:
		return 1
	case StatusFinished:
		return 2
	default:
		return -1
	}
}

// Valid 是否为已知状态
func (s Status) Valid() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}

// MoreFinalThan s 是否严格比 o 更"终态"
func (s Status) MoreFinalThan(o Status) bool { return s.finality() > o.finality() }

// Advance 返回 s 与 o 中更终态的一个；状态只前进不回退
func (s Status) Advance(o Status) Status {
	if o.MoreFinalThan(s) {
		return o
	}
	return s
}

// Bounds 计算会话在 loc 时区的起止时间点。
// endTime 早于 startTime 时不做跨日处理。
func Bounds(d Date, start, end TimeOfDay, loc *time.Location) (time.Time, time.Time) {
	return start.On(d, loc), end.On(d, loc)
}

// ClassifyAt 按闭区间 [start, end] 判定状态，时区取 now 所在时区
func ClassifyAt(d Date, start, end TimeOfDay, now time.Time) Status {
	sessionStart, sessionEnd := Bounds(d, start, end, now.Location())
	switch {
	case now.Before(sessionStart):
		return StatusUpcoming
	case now.After(sessionEnd):
		return StatusFinished
	default:
		return StatusOngoing
	}
}

// Classify 判定记录在 now 时刻的状态。
// 模板按其起始日期判定。
func Classify(r Record, now time.Time) Status {
	c := r.Common()
	return ClassifyAt(r.SessionDate(), c.StartTime, c.EndTime, now)
}

// Ended 会话结束时间是否严格早于 now
func Ended(r Record, now time.Time) bool {
	c := r.Common()
	_, end := Bounds(r.SessionDate(), c.StartTime, c.EndTime, now.Location())
	return end.Before(now)
}

// Reclassify 原地刷新一组记录的状态，只前进不回退；返回状态发生变化的记录
func Reclassify(records []Record, now time.Time) []Record {
	var changed []Record
	for _, r := range records {
		c := r.Common()
		next := c.Status.Advance(Classify(r, now))
		if next != c.Status {
			c.Status = next
			changed = append(changed, r)
		}
	}
	return changed
}
