package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"timetable-ai/backend/config"
	"timetable-ai/backend/internal/model"
	"timetable-ai/backend/internal/repository"
)

func setupTestExportService(t *testing.T) (ExportService, *repository.Repository) {
	t.Helper()
	repo := repository.NewRepository(0)
	svc := NewExportService(&config.ExportConfig{Timezone: "UTC", Weeks: 8}, repo, zap.NewNop())
	return svc, repo
}

func TestExportService_ExportXLSX_RoundTrip(t *testing.T) {
	svc, repo := setupTestExportService(t)
	id, _ := repo.Timetable.Insert(context.Background(), *calendarEntry(), model.SourceImage)

	buf, filename, err := svc.ExportXLSX(context.Background(), id)
	if err != nil {
		t.Fatalf("ExportXLSX 应成功: %v", err)
	}
	if filename != "Spring_img_0.xlsx" {
		t.Errorf("文件名不正确: %s", filename)
	}
	// Excel .xlsx 文件以 PK (0x504B) 开头
	if b := buf.Bytes(); len(b) < 2 || b[0] != 0x50 || b[1] != 0x4B {
		t.Fatal("输出内容不是有效的 xlsx 文件格式（应以 PK 开头）")
	}

	// 导出的文件可以被上传链路重新读取
	text, rows, err := SpreadsheetToText(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("读取导出文件失败: %v", err)
	}
	if rows != 5 {
		t.Errorf("期望 5 行（标题 + 表头 + 3 条课程）, 实际 %d", rows)
	}
	lines := strings.Split(text, "\n")
	if lines[0] != "Spring" {
		t.Errorf("标题行不正确: %q", lines[0])
	}
	if lines[1] != "Day\tTime\tSubject\tRoom" {
		t.Errorf("表头不正确: %q", lines[1])
	}
	if lines[2] != "Monday\t09:00-10:30\tMath\tA101" {
		t.Errorf("首条课程不正确: %q", lines[2])
	}
}

func TestExportService_ExportXLSX_DefaultTitle(t *testing.T) {
	svc, repo := setupTestExportService(t)
	entry := *calendarEntry()
	entry.Title = ""
	id, _ := repo.Timetable.Insert(context.Background(), entry, model.SourceSpreadsheet)

	_, filename, err := svc.ExportXLSX(context.Background(), id)
	if err != nil {
		t.Fatalf("ExportXLSX 应成功: %v", err)
	}
	if filename != "Untitled_excel_0.xlsx" {
		t.Errorf("文件名不正确: %s", filename)
	}
}

func TestExportService_NotFound(t *testing.T) {
	svc, _ := setupTestExportService(t)

	if _, _, err := svc.ExportXLSX(context.Background(), "img_9"); !errors.Is(err, ErrTimetableNotFound) {
		t.Errorf("期望 ErrTimetableNotFound, 实际 %v", err)
	}
	if _, _, err := svc.ExportICS(context.Background(), "img_9", time.Time{}); !errors.Is(err, ErrTimetableNotFound) {
		t.Errorf("期望 ErrTimetableNotFound, 实际 %v", err)
	}
}

func TestExportService_ExportICS(t *testing.T) {
	svc, repo := setupTestExportService(t)
	id, _ := repo.Timetable.Insert(context.Background(), *calendarEntry(), model.SourceImage)

	buf, filename, err := svc.ExportICS(context.Background(), id, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ExportICS 应成功: %v", err)
	}
	if filename != "Spring_img_0.ics" {
		t.Errorf("文件名不正确: %s", filename)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "BEGIN:VCALENDAR") {
		t.Errorf("输出不是 iCalendar: %.40s", out)
	}
	if strings.Count(out, "BEGIN:VEVENT") != 2 {
		t.Errorf("期望 2 个事件, 实际 %d", strings.Count(out, "BEGIN:VEVENT"))
	}
	if !strings.Contains(out, "FREQ=WEEKLY;COUNT=8") {
		t.Error("重复次数应取配置值")
	}
}

func TestExportService_ExportICS_NoParsableSlots(t *testing.T) {
	svc, repo := setupTestExportService(t)
	entry := model.ScheduleEntry{Schedule: model.WeekSchedule{
		model.Friday: {{Time: "after lunch", Subject: "PE"}},
	}}
	id, _ := repo.Timetable.Insert(context.Background(), entry, model.SourceImage)

	if _, _, err := svc.ExportICS(context.Background(), id, time.Time{}); !errors.Is(err, ErrExportNoSlots) {
		t.Errorf("期望 ErrExportNoSlots, 实际 %v", err)
	}
}
