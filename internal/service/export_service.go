package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"timetable-ai/backend/config"
	"timetable-ai/backend/internal/model"
	"timetable-ai/backend/internal/repository"
	apperrors "timetable-ai/backend/pkg/errors"
)

// ── 导出模块业务错误 ──

var (
	ErrExportGenerateFail = errors.New("生成导出文件失败")
	ErrExportNoSlots      = errors.New("课表中没有可导出的课程时间")
)

// xlsxSheetName 导出工作表名
const xlsxSheetName = "课表"

// ExportService 导出业务接口
//
// 设计说明：
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置下载响应头后写入 Response
//   - Excel 格式：单 Sheet，按周一到周日逐行列出 星期 | 时间 | 课程 | 教室
//   - ICS 格式：每个 Slot 一个周重复事件
type ExportService interface {
	// ExportXLSX 导出课表为 Excel
	ExportXLSX(ctx context.Context, id string) (*bytes.Buffer, string, error)
	// ExportICS 导出课表为 iCalendar，weekStart 为零值时取当前周
	ExportICS(ctx context.Context, id string, weekStart time.Time) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	weeks  int
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
// 时区在配置校验阶段已验证，加载失败时回退 UTC
func NewExportService(cfg *config.ExportConfig, repo *repository.Repository, logger *zap.Logger) ExportService {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		loc = time.UTC
	}
	return &exportService{
		repo:   repo,
		weeks:  cfg.Weeks,
		loc:    loc,
		now:    time.Now,
		logger: logger,
	}
}

func (s *exportService) load(ctx context.Context, id string) (*model.StoredTimetable, error) {
	stored, err := s.repo.Timetable.Get(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrTimetableNotFound
		}
		s.logger.Error("查询课表失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return stored, nil
}

// ════════════════════════════════════════════════════════════
// ExportXLSX — 导出为 Excel
// ════════════════════════════════════════════════════════════
//
// 输出格式：
//   - A1: 课表标题（合并 A1:D1）
//   - 第 2 行表头: Day | Time | Subject | Room
//   - 数据行按周一到周日排列，没有课程的星期不输出
//
// 导出文件可以重新上传解析

func (s *exportService) ExportXLSX(ctx context.Context, id string) (*bytes.Buffer, string, error) {
	stored, err := s.load(ctx, id)
	if err != nil {
		return nil, "", err
	}
	entry := stored.Entry
	title := entry.Title
	if title == "" {
		title = defaultTitle
	}

	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(xlsxSheetName)
	if err != nil {
		s.logger.Error("创建工作表失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	// 列宽
	f.SetColWidth(xlsxSheetName, "A", "A", 12)
	f.SetColWidth(xlsxSheetName, "B", "B", 16)
	f.SetColWidth(xlsxSheetName, "C", "C", 28)
	f.SetColWidth(xlsxSheetName, "D", "D", 14)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	f.SetCellValue(xlsxSheetName, "A1", title)
	f.MergeCell(xlsxSheetName, "A1", "D1")
	f.SetCellStyle(xlsxSheetName, "A1", "A1", headerStyle)

	// 表头
	for i, h := range []string{"Day", "Time", "Subject", "Room"} {
		f.SetCellValue(xlsxSheetName, cell(colName(i), 2), h)
	}
	f.SetCellStyle(xlsxSheetName, "A2", "D2", headerStyle)

	// 数据行
	row := 3
	for _, day := range model.Weekdays {
		for _, slot := range entry.Schedule[day] {
			f.SetCellValue(xlsxSheetName, cell("A", row), string(day))
			f.SetCellValue(xlsxSheetName, cell("B", row), slot.Time)
			f.SetCellValue(xlsxSheetName, cell("C", row), slot.Subject)
			if slot.Room != "" {
				f.SetCellValue(xlsxSheetName, cell("D", row), slot.Room)
			}
			row++
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	s.logger.Info("课表已导出", zap.String("id", id), zap.String("format", "xlsx"), zap.Int("rows", row-3))
	return buf, fmt.Sprintf("%s_%s.xlsx", title, id), nil
}

// ════════════════════════════════════════════════════════════
// ExportICS — 导出为 iCalendar
// ════════════════════════════════════════════════════════════

func (s *exportService) ExportICS(ctx context.Context, id string, weekStart time.Time) (*bytes.Buffer, string, error) {
	stored, err := s.load(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if weekStart.IsZero() {
		weekStart = s.now()
	}

	buf := new(bytes.Buffer)
	res, err := WriteCalendar(buf, &stored.Entry, CalendarOptions{
		UID:       id,
		WeekStart: weekStart,
		Weeks:     s.weeks,
		Location:  s.loc,
	})
	if err != nil {
		s.logger.Error("生成 ICS 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}
	if res.Events == 0 {
		return nil, "", ErrExportNoSlots
	}
	if res.Skipped > 0 {
		s.logger.Warn("部分课程时间无法解析，已跳过",
			zap.String("id", id),
			zap.Int("skipped", res.Skipped),
		)
	}

	title := stored.Entry.Title
	if title == "" {
		title = defaultTitle
	}
	s.logger.Info("课表已导出", zap.String("id", id), zap.String("format", "ics"), zap.Int("events", res.Events))
	return buf, fmt.Sprintf("%s_%s.ics", title, id), nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
