package model

import (
	"bytes"
	"encoding/json"
	"time"
)

// ── 星期 ──

// Weekday 星期名称（固定七个英文标签）
type Weekday string

const (
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
	Saturday  Weekday = "Saturday"
	Sunday    Weekday = "Sunday"
)

// Weekdays 按周一到周日排列的全部星期
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// ── 来源模态 ──

// SourceKind 上传文件的模态
type SourceKind string

const (
	SourceImage       SourceKind = "image"
	SourceSpreadsheet SourceKind = "spreadsheet"
)

// IDPrefix 返回该模态对应的 ID 前缀
func (k SourceKind) IDPrefix() string {
	switch k {
	case SourceImage:
		return "img"
	case SourceSpreadsheet:
		return "excel"
	default:
		return string(k)
	}
}

// ── 课表结构 ──

// Slot 单个时间段
type Slot struct {
	Time    string `json:"time"`
	Subject string `json:"subject"`
	Room    string `json:"room,omitempty"`
}

// WeekSchedule 星期 → 时间段列表
// 序列化时按周一到周日输出，而非 map 的字母序
type WeekSchedule map[Weekday][]Slot

// MarshalJSON 按星期顺序输出，未知星期键追加在末尾
func (w WeekSchedule) MarshalJSON() ([]byte, error) {
	if w == nil {
		return []byte("null"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	write := func(day Weekday, slots []Slot) error {
		if slots == nil {
			slots = []Slot{}
		}
		key, err := json.Marshal(string(day))
		if err != nil {
			return err
		}
		val, err := json.Marshal(slots)
		if err != nil {
			return err
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
		return nil
	}

	seen := make(map[Weekday]bool, len(Weekdays))
	for _, day := range Weekdays {
		slots, ok := w[day]
		if !ok {
			continue
		}
		seen[day] = true
		if err := write(day, slots); err != nil {
			return nil, err
		}
	}
	for day, slots := range w {
		if seen[day] {
			continue
		}
		if err := write(day, slots); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ScheduleEntry 一份周课表
type ScheduleEntry struct {
	Title    string       `json:"title,omitempty"`
	Schedule WeekSchedule `json:"schedule"`
}

// TotalSlots 统计全部时间段数量
func (e *ScheduleEntry) TotalSlots() int {
	n := 0
	for _, slots := range e.Schedule {
		n += len(slots)
	}
	return n
}

// Clone 深拷贝，入库与读取时使用，保证已存课表不可变
func (e ScheduleEntry) Clone() ScheduleEntry {
	out := ScheduleEntry{Title: e.Title}
	if e.Schedule == nil {
		return out
	}
	out.Schedule = make(WeekSchedule, len(e.Schedule))
	for day, slots := range e.Schedule {
		cp := make([]Slot, len(slots))
		copy(cp, slots)
		out.Schedule[day] = cp
	}
	return out
}

// StoredTimetable 已入库的课表
type StoredTimetable struct {
	ID        string
	Source    SourceKind
	Entry     ScheduleEntry
	CreatedAt time.Time
}
