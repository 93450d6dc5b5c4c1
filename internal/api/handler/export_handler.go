package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"timetable-ai/backend/internal/service"
	"timetable-ai/backend/pkg/response"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportTimetable 导出课表
// GET /timetable/:id/export?format=xlsx|ics&week_start=2006-01-02
func (h *ExportHandler) ExportTimetable(c *gin.Context) {
	id := c.Param("id")

	var (
		data        []byte
		filename    string
		contentType string
	)
	switch format := c.DefaultQuery("format", "xlsx"); format {
	case "xlsx":
		buf, name, err := h.exportSvc.ExportXLSX(c.Request.Context(), id)
		if err != nil {
			h.handleExportError(c, err)
			return
		}
		data, filename, contentType = buf.Bytes(), name, contentTypeXLSX
	case "ics":
		var weekStart time.Time
		if raw := c.Query("week_start"); raw != "" {
			t, err := time.Parse(time.DateOnly, raw)
			if err != nil {
				response.BadRequest(c, 10001, "week_start 格式应为 YYYY-MM-DD")
				return
			}
			weekStart = t
		}
		buf, name, err := h.exportSvc.ExportICS(c.Request.Context(), id, weekStart)
		if err != nil {
			h.handleExportError(c, err)
			return
		}
		data, filename, contentType = buf.Bytes(), name, contentTypeICS
	default:
		response.BadRequest(c, 10001, "format 仅支持 xlsx 或 ics")
		return
	}

	// 设置下载响应头
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", attachmentDisposition(filename))
	c.Data(http.StatusOK, contentType, data)
}

// attachmentDisposition 按 RFC 5987 编码文件名：非字母数字与 "-._~" 一律百分号转义
func attachmentDisposition(filename string) string {
	escaped := strings.ReplaceAll(url.QueryEscape(filename), "+", "%20")
	return "attachment; filename*=UTF-8''" + escaped
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	_ = c.Error(err)

	switch {
	case errors.Is(err, service.ErrTimetableNotFound):
		response.NotFound(c, 20006, err.Error())
	case errors.Is(err, service.ErrExportNoSlots):
		response.Error(c, http.StatusUnprocessableEntity, 20007, err.Error())
	default:
		response.InternalError(c)
	}
}
