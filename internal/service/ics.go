package service

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"time"

	ics "github.com/arran4/golang-ical"

	"timetable-ai/backend/internal/model"
)

// ── ICS 生成器 ──────────────────────────────────────────────
//
// 职责：将 ScheduleEntry 转为 iCalendar (RFC 5545) 周重复事件。
//
//   - 每个 Slot 生成一个 VEVENT，DTSTART 落在 weekStart 所在周的对应星期
//   - IANA 时区写为 DTSTART;TZID=<zone>:本地时间，重复事件跟随夏令时保持墙上时间；
//     UTC 与固定偏移时区写为 UTC 时刻
//   - RRULE 为 FREQ=WEEKLY;COUNT=weeks
//   - Slot.Time 无法解析为 "HH:MM-HH:MM" 时跳过该项
// ─────────────────────────────────────────────────────────────

const (
	icsProductID   = "-//timetable-ai//timetable export//EN"
	icsLocalLayout = "20060102T150405"
)

// slotTimeRe 匹配 "09:00-10:30" / "9.00 ~ 10.30" / "09：00到10：30" 等写法
var slotTimeRe = regexp.MustCompile(`(\d{1,2})\s*[:：.]\s*(\d{2})\s*(?:-|–|—|~|～|to|至|到)\s*(\d{1,2})\s*[:：.]\s*(\d{2})`)

// CalendarOptions 日历生成参数
type CalendarOptions struct {
	UID       string         // 事件 UID 前缀，通常为课表 ID
	WeekStart time.Time      // 任意日期，按所在周的周一对齐
	Weeks     int            // 重复周数
	Location  *time.Location // Slot 时间所在时区
}

// CalendarResult 生成结果
type CalendarResult struct {
	Events  int
	Skipped int
}

// WriteCalendar 将课表写为 ICS 到 w
func WriteCalendar(w io.Writer, entry *model.ScheduleEntry, opts CalendarOptions) (CalendarResult, error) {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	weeks := opts.Weeks
	if weeks < 1 {
		weeks = 1
	}
	monday := MondayOf(opts.WeekStart.In(loc))

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(icsProductID)
	tzid, zoned := tzidOf(loc)
	if zoned {
		cal.SetXWRTimezone(tzid)
	}

	var res CalendarResult
	stamp := time.Now().UTC()
	for dayIdx, day := range model.Weekdays {
		date := monday.AddDate(0, 0, dayIdx)
		for i, slot := range entry.Schedule[day] {
			start, end, ok := parseSlotTime(slot.Time, date)
			if !ok {
				res.Skipped++
				continue
			}

			evt := cal.AddEvent(fmt.Sprintf("%s-%s-%d@timetable-ai", opts.UID, day, i))
			evt.SetDtStampTime(stamp)
			if zoned {
				param := &ics.KeyValues{Key: string(ics.ParameterTzid), Value: []string{tzid}}
				evt.SetProperty(ics.ComponentPropertyDtStart, start.Format(icsLocalLayout), param)
				evt.SetProperty(ics.ComponentPropertyDtEnd, end.Format(icsLocalLayout), param)
			} else {
				evt.SetStartAt(start)
				evt.SetEndAt(end)
			}
			evt.SetSummary(slot.Subject)
			if slot.Room != "" {
				evt.SetLocation(slot.Room)
			}
			evt.AddProperty(ics.ComponentPropertyRrule, fmt.Sprintf("FREQ=WEEKLY;COUNT=%d", weeks))
			res.Events++
		}
	}

	if err := cal.SerializeTo(w); err != nil {
		return res, fmt.Errorf("写入 ICS 失败: %w", err)
	}
	return res, nil
}

// tzidOf 返回可写入 TZID 的 IANA 时区名
// UTC、Local 与 FixedZone 无法被客户端按名称解析，返回 false
func tzidOf(loc *time.Location) (string, bool) {
	name := loc.String()
	if loc == time.UTC || name == "UTC" || name == "Local" || name == "" {
		return "", false
	}
	if _, err := time.LoadLocation(name); err != nil {
		return "", false
	}
	return name, true
}

// MondayOf 返回 t 所在周的周一零点（保留 t 的时区）
func MondayOf(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7 // Monday=0 … Sunday=6
	d := t.AddDate(0, 0, -offset)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, t.Location())
}

// parseSlotTime 将 Slot.Time 解析为 date 当天的起止时间
// 结束早于开始时视为跨零点
func parseSlotTime(s string, date time.Time) (time.Time, time.Time, bool) {
	m := slotTimeRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, time.Time{}, false
	}

	var nums [4]int
	for i := range nums {
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return time.Time{}, time.Time{}, false
		}
		nums[i] = n
	}
	if nums[0] > 23 || nums[2] > 24 || nums[1] > 59 || nums[3] > 59 {
		return time.Time{}, time.Time{}, false
	}

	start := time.Date(date.Year(), date.Month(), date.Day(), nums[0], nums[1], 0, 0, date.Location())
	end := time.Date(date.Year(), date.Month(), date.Day(), nums[2], nums[3], 0, 0, date.Location())
	if !end.After(start) {
		end = end.AddDate(0, 0, 1)
	}
	return start, end, true
}
