package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"timetable-ai/backend/internal/dto"
	"timetable-ai/backend/internal/model"
	"timetable-ai/backend/internal/repository"
	apperrors "timetable-ai/backend/pkg/errors"
	"timetable-ai/backend/pkg/llm"
)

// ── 课表模块业务错误 ──

var (
	ErrUnsupportedMediaType = errors.New("不支持的文件类型，请上传图片或 Excel 文件")
	ErrCollaboratorFailed   = errors.New("模型服务调用失败")
	ErrTimetableNotFound    = errors.New("课表不存在")
)

// 允许的表格 MIME 类型（xlsx / xls）
const (
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeXLS  = "application/vnd.ms-excel"
)

// 列表中未命名课表的默认标题
const defaultTitle = "Untitled"

// 日志中保留的模型回复最大长度
const maxLoggedReply = 512

// LLMClient 大模型调用接口（由 pkg/llm.Client 实现）
type LLMClient interface {
	Complete(ctx context.Context, p llm.Prompt) (string, error)
}

// UploadFile 上传文件
type UploadFile struct {
	Reader      io.Reader
	ContentType string // 客户端声明的 Content-Type
	Filename    string
	Size        int64
}

// ── TimetableService 接口 ──────────────────────────────────
//
// 设计说明：
//   - 上传按声明的 Content-Type 判定模态，不在白名单内直接拒绝，不调用模型。
//   - 每次上传仅调用一次模型：不流式、不重试。
//   - 模型回复先经 Extract 恢复 JSON，再经 NormalizeEntry 规范结构，全部成功后才入库。
//   - 已入库课表只读。
// ─────────────────────────────────────────────────────────────

// TimetableService 课表模块业务接口
type TimetableService interface {
	// Upload 解析上传的图片或表格并入库
	Upload(ctx context.Context, file *UploadFile) (*dto.UploadResponse, error)
	// GetTimetable 按 ID 获取课表
	GetTimetable(ctx context.Context, id string) (*model.ScheduleEntry, error)
	// ListTimetables 按入库顺序列出全部课表
	ListTimetables(ctx context.Context) (*dto.TimetableListResponse, error)
}

type timetableService struct {
	repo   *repository.Repository
	llm    LLMClient
	logger *zap.Logger
}

// NewTimetableService 创建 TimetableService 实例
func NewTimetableService(repo *repository.Repository, llmClient LLMClient, logger *zap.Logger) TimetableService {
	return &timetableService{repo: repo, llm: llmClient, logger: logger}
}

// DetectModality 根据声明的 Content-Type 判定模态
// image/* 为图片；两种 Excel MIME 为表格；其余返回 ErrUnsupportedMediaType
func DetectModality(contentType string) (model.SourceKind, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}

	switch {
	case strings.HasPrefix(mediaType, "image/") && len(mediaType) > len("image/"):
		return model.SourceImage, nil
	case mediaType == mimeXLSX, mediaType == mimeXLS:
		return model.SourceSpreadsheet, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedMediaType, contentType)
	}
}

// ════════════════════════════════════════════════════════════
// Upload — 上传并解析课表
// ════════════════════════════════════════════════════════════
//
// 流程：
//   1. 判定模态
//   2. 构造模型请求（图片转 PNG data URI / 表格转制表符文本）
//   3. 调用模型
//   4. 提取 JSON → 规范化
//   5. 入库并返回 {id, data}

func (s *timetableService) Upload(ctx context.Context, file *UploadFile) (*dto.UploadResponse, error) {
	// 1. 判定模态
	kind, err := DetectModality(file.ContentType)
	if err != nil {
		return nil, err
	}

	log := s.logger.With(
		zap.String("source", string(kind)),
		zap.String("filename", file.Filename),
		zap.Int64("size", file.Size),
	)

	// 2. 构造模型请求
	var prompt llm.Prompt
	switch kind {
	case model.SourceImage:
		uri, err := EncodeImageDataURI(file.Reader)
		if err != nil {
			log.Warn("图片解码失败", zap.Error(err))
			return nil, err
		}
		prompt = llm.Prompt{Text: ImagePrompt(), ImageDataURI: uri}
	case model.SourceSpreadsheet:
		text, rows, err := SpreadsheetToText(file.Reader)
		if err != nil {
			log.Warn("表格解码失败", zap.Error(err))
			return nil, err
		}
		log.Debug("表格读取完成", zap.Int("rows", rows))
		prompt = llm.Prompt{Text: SpreadsheetPrompt(text)}
	}

	// 3. 调用模型
	reply, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		log.Error("模型调用失败", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrCollaboratorFailed, err)
	}

	// 4. 提取 + 规范化
	result, err := Extract(reply)
	if err != nil {
		log.Warn("模型回复无法解析为 JSON", zap.String("reply", truncate(reply, maxLoggedReply)))
		return nil, err
	}
	entry, report := NormalizeEntry(result.Object)
	if !report.Clean() {
		log.Info("课表结构已规范化",
			zap.Any("filled_days", report.FilledDays),
			zap.Strings("dropped_keys", report.DroppedKeys),
			zap.Int("dropped_items", report.DroppedItems),
		)
	}

	// 5. 入库
	id, err := s.repo.Timetable.Insert(ctx, entry, kind)
	if err != nil {
		log.Error("课表入库失败", zap.Error(err))
		return nil, fmt.Errorf("课表入库失败: %w", err)
	}

	log.Info("课表解析完成",
		zap.String("id", id),
		zap.String("tier", string(result.Tier)),
		zap.Int("slots", entry.TotalSlots()),
	)

	return &dto.UploadResponse{ID: id, Data: &entry}, nil
}

// ════════════════════════════════════════════════════════════
// GetTimetable / ListTimetables — 查询
// ════════════════════════════════════════════════════════════

func (s *timetableService) GetTimetable(ctx context.Context, id string) (*model.ScheduleEntry, error) {
	stored, err := s.repo.Timetable.Get(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrTimetableNotFound
		}
		return nil, err
	}
	return &stored.Entry, nil
}

func (s *timetableService) ListTimetables(ctx context.Context) (*dto.TimetableListResponse, error) {
	items, err := s.repo.Timetable.List(ctx)
	if err != nil {
		s.logger.Error("查询课表列表失败", zap.Error(err))
		return nil, err
	}

	list := make([]dto.TimetableSummary, 0, len(items))
	for _, item := range items {
		title := item.Entry.Title
		if title == "" {
			title = defaultTitle
		}
		list = append(list, dto.TimetableSummary{ID: item.ID, Title: title})
	}
	return &dto.TimetableListResponse{Timetables: list}, nil
}

// truncate 按字节上限截断，不截断多字节字符
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
