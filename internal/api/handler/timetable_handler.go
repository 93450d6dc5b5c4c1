package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"timetable-ai/backend/internal/service"
	"timetable-ai/backend/pkg/response"
)

// TimetableHandler 课表模块 Handler
type TimetableHandler struct {
	svc service.TimetableService
}

// NewTimetableHandler 创建 TimetableHandler 实例
func NewTimetableHandler(svc service.TimetableService) *TimetableHandler {
	return &TimetableHandler{svc: svc}
}

// Upload 上传图片或 Excel 课表并解析
// POST /upload
//
// multipart/form-data, field="file"
//   - image/*: 图片课表
//   - application/vnd.openxmlformats-officedocument.spreadsheetml.sheet / application/vnd.ms-excel: 表格课表
func (h *TimetableHandler) Upload(c *gin.Context) {
	fh, err := GetUploadFile(c)
	if err != nil {
		if errors.Is(err, errBodyTooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge, 10005, err.Error())
			return
		}
		response.BadRequest(c, 20001, err.Error())
		return
	}

	file, err := fh.Open()
	if err != nil {
		_ = c.Error(err)
		response.InternalError(c)
		return
	}
	defer file.Close()

	resp, err := h.svc.Upload(c.Request.Context(), &service.UploadFile{
		Reader:      file,
		ContentType: fh.Header.Get("Content-Type"),
		Filename:    fh.Filename,
		Size:        fh.Size,
	})
	if err != nil {
		handleTimetableError(c, err)
		return
	}
	response.OK(c, resp)
}

// GetTimetable 获取单个课表
// GET /timetable/:id
func (h *TimetableHandler) GetTimetable(c *gin.Context) {
	entry, err := h.svc.GetTimetable(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleTimetableError(c, err)
		return
	}
	response.OK(c, entry)
}

// ListTimetables 列出全部课表
// GET /timetables
func (h *TimetableHandler) ListTimetables(c *gin.Context) {
	resp, err := h.svc.ListTimetables(c.Request.Context())
	if err != nil {
		handleTimetableError(c, err)
		return
	}
	response.OK(c, resp)
}

// handleTimetableError 统一课表模块错误映射
// 除类型不支持与未找到外，上传链路中的失败一律返回 500 并附带错误详情
func handleTimetableError(c *gin.Context, err error) {
	_ = c.Error(err)

	switch {
	case errors.Is(err, service.ErrUnsupportedMediaType):
		response.BadRequest(c, 20002, service.ErrUnsupportedMediaType.Error())
	case errors.Is(err, service.ErrDecodeFailed):
		response.ErrorWithDetails(c, http.StatusInternalServerError, 20003, "文件处理失败", err.Error())
	case errors.Is(err, service.ErrCollaboratorFailed):
		response.ErrorWithDetails(c, http.StatusInternalServerError, 20004, "文件处理失败", err.Error())
	case errors.Is(err, service.ErrNoJSONFound):
		response.Error(c, http.StatusInternalServerError, 20005, service.ErrNoJSONFound.Error())
	case errors.Is(err, service.ErrTimetableNotFound):
		response.NotFound(c, 20006, err.Error())
	default:
		response.InternalError(c)
	}
}
