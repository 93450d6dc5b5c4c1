package service

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"timetable-ai/backend/internal/model"
)

// NormalizeReport 规范化过程中被修正或丢弃的内容
type NormalizeReport struct {
	FilledDays   []model.Weekday // 缺失而补空的星期
	DroppedKeys  []string        // 无法识别的星期键
	DroppedItems int             // 非对象的时间段项、非数组的星期值
}

// Clean 没有任何修正
func (r NormalizeReport) Clean() bool {
	return len(r.FilledDays) == 0 && len(r.DroppedKeys) == 0 && r.DroppedItems == 0
}

// NormalizeEntry 将提取出的松散 JSON 对象规范化为 ScheduleEntry
//
// 规则：
//   - 星期键大小写不敏感，支持至少三个字母的前缀（Mon / tues / THU）
//   - 七个星期键始终存在，缺失补空列表
//   - title / time / subject / room 中的数字、布尔值转为字符串，null 视为空
//   - 无法识别的星期键、非对象的时间段项被丢弃并记录
//
// 不校验时间格式，也不判断课程内容是否合理。
func NormalizeEntry(obj map[string]interface{}) (model.ScheduleEntry, NormalizeReport) {
	var report NormalizeReport

	entry := model.ScheduleEntry{
		Title:    stringify(obj["title"]),
		Schedule: make(model.WeekSchedule, len(model.Weekdays)),
	}

	switch raw := obj["schedule"].(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(raw))
		for key := range raw {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			val := raw[key]
			day, ok := canonicalWeekday(key)
			if !ok {
				report.DroppedKeys = append(report.DroppedKeys, key)
				continue
			}
			slots, dropped := normalizeSlots(val)
			report.DroppedItems += dropped
			if entry.Schedule[day] == nil {
				entry.Schedule[day] = []model.Slot{}
			}
			entry.Schedule[day] = append(entry.Schedule[day], slots...)
		}
	case nil:
	default:
		report.DroppedItems++
	}

	for _, day := range model.Weekdays {
		if _, ok := entry.Schedule[day]; !ok {
			entry.Schedule[day] = []model.Slot{}
			report.FilledDays = append(report.FilledDays, day)
		}
	}

	return entry, report
}

func normalizeSlots(val interface{}) ([]model.Slot, int) {
	switch items := val.(type) {
	case []interface{}:
		slots := make([]model.Slot, 0, len(items))
		dropped := 0
		for _, item := range items {
			m, ok := item.(map[string]interface{})
			if !ok {
				dropped++
				continue
			}
			slots = append(slots, model.Slot{
				Time:    stringify(m["time"]),
				Subject: stringify(m["subject"]),
				Room:    stringify(m["room"]),
			})
		}
		return slots, dropped
	case nil:
		return []model.Slot{}, 0
	default:
		return []model.Slot{}, 1
	}
}

// canonicalWeekday 识别星期键
func canonicalWeekday(key string) (model.Weekday, bool) {
	k := strings.ToLower(strings.TrimSpace(key))
	if len(k) < 3 {
		return "", false
	}
	for _, day := range model.Weekdays {
		if strings.HasPrefix(strings.ToLower(string(day)), k) {
			return day, true
		}
	}
	return "", false
}

func stringify(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}
