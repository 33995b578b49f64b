package schedule

import (
	"sort"
	"time"
)

// Reconcile 合并已存储的记录与新展开的记录。
//
// 记录按变体分为三组：实例以 (ParentID, Date) 去重，冲突时保留状态更终态的一条，
// 状态相同时保留后出现的一条（existing 先于 fresh）；模板以 ID 去重；单次会话以 ID+日期去重。
// 若某组实例的父模板不存在，则以组内第一条实例为基础补出一个虚拟模板。
//
// 输出顺序：模板（含补出的虚拟模板）、单次会话、实例，组内保持首次出现的顺序。
// 入参记录不会被修改，虚拟模板是新分配的对象。
func Reconcile(existing, fresh []Record) []Record {
	var (
		templates     = make(map[string]*Template)
		templateOrder []string
		regulars      = make(map[string]*Regular)
		regularOrder  []string
		occs          = make(map[string]*Occurrence)
		occOrder      []string
	)

	visit := func(r Record) {
		switch v := r.(type) {
		case *Template:
			if _, ok := templates[v.ID]; !ok {
				templateOrder = append(templateOrder, v.ID)
			}
			templates[v.ID] = v
		case *Regular:
			key := v.ID + "|" + v.Date.String()
			if _, ok := regulars[key]; !ok {
				regularOrder = append(regularOrder, key)
			}
			regulars[key] = v
		case *Occurrence:
			key := v.Key()
			prev, ok := occs[key]
			if !ok {
				occOrder = append(occOrder, key)
				occs[key] = v
				return
			}
			if !prev.Status.MoreFinalThan(v.Status) {
				occs[key] = v
			}
		}
	}
	for _, r := range existing {
		visit(r)
	}
	for _, r := range fresh {
		visit(r)
	}

	// 按父模板分组，用于补齐缺失的模板
	groups := make(map[string][]*Occurrence)
	var parentOrder []string
	for _, key := range occOrder {
		o := occs[key]
		if _, ok := groups[o.ParentID]; !ok {
			parentOrder = append(parentOrder, o.ParentID)
		}
		groups[o.ParentID] = append(groups[o.ParentID], o)
	}
	for _, pid := range parentOrder {
		if _, ok := templates[pid]; ok {
			continue
		}
		templates[pid] = healTemplate(pid, groups[pid])
		templateOrder = append(templateOrder, pid)
	}

	out := make([]Record, 0, len(templateOrder)+len(regularOrder)+len(occOrder))
	for _, id := range templateOrder {
		out = append(out, templates[id])
	}
	for _, key := range regularOrder {
		out = append(out, regulars[key])
	}
	for _, key := range occOrder {
		out = append(out, occs[key])
	}
	return out
}

// healTemplate 由一组孤儿实例反推出父模板
func healTemplate(parentID string, group []*Occurrence) *Template {
	first := group[0]
	s := first.Session.clone()
	s.ID = parentID

	t := &Template{
		Session:          s,
		StartDate:        first.Date,
		EndDate:          first.Date,
		TotalOccurrences: len(group),
		Virtual:          true,
	}
	for _, o := range group {
		if o.Date.Before(t.StartDate) {
			t.StartDate = o.Date
		}
		if o.Date.After(t.EndDate) {
			t.EndDate = o.Date
		}
		if !t.Days.Contains(o.Date.Weekday()) {
			t.Days = append(t.Days, o.Date.Weekday())
		}
	}
	sort.Slice(t.Days, func(i, j int) bool { return mondayFirst(t.Days[i]) < mondayFirst(t.Days[j]) })
	return t
}

// Partition 将记录按变体拆分
func Partition(records []Record) (templates []*Template, regulars []*Regular, occurrences []*Occurrence) {
	for _, r := range records {
		switch v := r.(type) {
		case *Template:
			templates = append(templates, v)
		case *Regular:
			regulars = append(regulars, v)
		case *Occurrence:
			occurrences = append(occurrences, v)
		}
	}
	return
}

// Missing 返回 fresh 中 (ParentID, Date) 不在 existing 里的实例，即需要补写入库的实例
func Missing(existing, fresh []*Occurrence) []*Occurrence {
	seen := make(map[string]struct{}, len(existing))
	for _, o := range existing {
		seen[o.Key()] = struct{}{}
	}
	var out []*Occurrence
	for _, o := range fresh {
		if _, ok := seen[o.Key()]; ok {
			continue
		}
		seen[o.Key()] = struct{}{}
		out = append(out, o)
	}
	return out
}

func mondayFirst(w time.Weekday) int { return (int(w) + 6) % 7 }
