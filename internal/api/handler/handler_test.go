package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"

	"timetable-ai/backend/internal/dto"
	"timetable-ai/backend/internal/model"
	"timetable-ai/backend/internal/service"
	"timetable-ai/backend/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock TimetableService ──

type mockTimetableService struct {
	uploadResult *dto.UploadResponse
	uploadErr    error
	uploaded     *service.UploadFile
	uploadBody   []byte
	getResult    *model.ScheduleEntry
	getErr       error
	gotID        string
	listResult   *dto.TimetableListResponse
	listErr      error
}

func (m *mockTimetableService) Upload(_ context.Context, file *service.UploadFile) (*dto.UploadResponse, error) {
	m.uploaded = file
	m.uploadBody, _ = io.ReadAll(file.Reader)
	return m.uploadResult, m.uploadErr
}
func (m *mockTimetableService) GetTimetable(_ context.Context, id string) (*model.ScheduleEntry, error) {
	m.gotID = id
	return m.getResult, m.getErr
}
func (m *mockTimetableService) ListTimetables(_ context.Context) (*dto.TimetableListResponse, error) {
	return m.listResult, m.listErr
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

// multipartBody 构造带指定 Content-Type 的单文件上传请求体
func multipartBody(t *testing.T, field, filename, contentType string, content []byte) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatalf("创建 multipart part 失败: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("写入 multipart 内容失败: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("关闭 multipart writer 失败: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func newRouter(h *TimetableHandler) *gin.Engine {
	r := gin.New()
	r.POST("/upload", h.Upload)
	r.GET("/timetable/:id", h.GetTimetable)
	r.GET("/timetables", h.ListTimetables)
	return r
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

func sampleEntry() *model.ScheduleEntry {
	schedule := make(model.WeekSchedule)
	for _, d := range model.Weekdays {
		schedule[d] = []model.Slot{}
	}
	schedule[model.Monday] = []model.Slot{{Time: "09:00-10:00", Subject: "Math", Room: "A101"}}
	return &model.ScheduleEntry{Title: "Spring", Schedule: schedule}
}

// ═══════════════════════════════════════════════════════════
// TimetableHandler Tests
// ═══════════════════════════════════════════════════════════

func TestTimetableHandler_Upload_Success(t *testing.T) {
	mock := &mockTimetableService{
		uploadResult: &dto.UploadResponse{ID: "img_0", Data: sampleEntry()},
	}
	h := NewTimetableHandler(mock)

	body, ct := multipartBody(t, "file", "week.png", "image/png", []byte("png-bytes"))
	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	newRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if mock.uploaded.ContentType != "image/png" {
		t.Errorf("应传递文件声明的 Content-Type, 实际 %q", mock.uploaded.ContentType)
	}
	if mock.uploaded.Filename != "week.png" {
		t.Errorf("文件名期望 week.png, 实际 %q", mock.uploaded.Filename)
	}
	if string(mock.uploadBody) != "png-bytes" {
		t.Errorf("文件内容不一致: %q", mock.uploadBody)
	}

	var resp struct {
		ID   string                 `json:"id"`
		Data map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("响应不是合法 JSON: %v", err)
	}
	if resp.ID != "img_0" {
		t.Errorf("expected id img_0, got %s", resp.ID)
	}
	if resp.Data["title"] != "Spring" {
		t.Errorf("expected title Spring, got %v", resp.Data["title"])
	}
	schedule, _ := resp.Data["schedule"].(map[string]interface{})
	if len(schedule) != 7 {
		t.Errorf("schedule 应包含 7 个星期键, 实际 %d", len(schedule))
	}
}

func TestTimetableHandler_Upload_NoFile(t *testing.T) {
	mock := &mockTimetableService{}
	h := NewTimetableHandler(mock)

	body, ct := multipartBody(t, "other", "week.png", "image/png", []byte("x"))
	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	newRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 20001 {
		t.Errorf("expected code 20001, got %d", resp.Code)
	}
	if mock.uploaded != nil {
		t.Error("缺少文件时不应调用 Service")
	}
}

func TestTimetableHandler_Upload_NotMultipart(t *testing.T) {
	h := NewTimetableHandler(&mockTimetableService{})

	req := httptest.NewRequest("POST", "/upload", bytes.NewReader([]byte(`{"file":"x"}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	newRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestTimetableHandler_Upload_BodyTooLarge(t *testing.T) {
	mock := &mockTimetableService{}
	h := NewTimetableHandler(mock)

	body, ct := multipartBody(t, "file", "big.png", "image/png", bytes.Repeat([]byte("a"), 4096))
	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", ct)
	req.ContentLength = -1 // 未声明长度，只能在读取时发现超限

	r := gin.New()
	r.POST("/upload", func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 1024)
		c.Next()
	}, h.Upload)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 10005 {
		t.Errorf("expected code 10005, got %d", resp.Code)
	}
}

func TestTimetableHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
	}{
		{"类型不支持", fmt.Errorf("%w: %q", service.ErrUnsupportedMediaType, "text/plain"), http.StatusBadRequest, 20002},
		{"解码失败", fmt.Errorf("%w: bad png", service.ErrDecodeFailed), http.StatusInternalServerError, 20003},
		{"模型调用失败", fmt.Errorf("%w: timeout", service.ErrCollaboratorFailed), http.StatusInternalServerError, 20004},
		{"JSON 解析失败", &service.ExtractionError{Raw: "nope"}, http.StatusInternalServerError, 20005},
		{"未知错误", errors.New("boom"), http.StatusInternalServerError, 50000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockTimetableService{uploadErr: tt.err}
			h := NewTimetableHandler(mock)

			body, ct := multipartBody(t, "file", "f", "image/png", []byte("x"))
			req := httptest.NewRequest("POST", "/upload", body)
			req.Header.Set("Content-Type", ct)
			w := httptest.NewRecorder()
			newRouter(h).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			resp := parseResponse(w)
			if resp.Code != tt.wantCode {
				t.Errorf("expected code %d, got %d", tt.wantCode, resp.Code)
			}
			if resp.Message == "" {
				t.Error("错误响应应携带可读信息")
			}
		})
	}
}

func TestTimetableHandler_GetTimetable_Success(t *testing.T) {
	mock := &mockTimetableService{getResult: sampleEntry()}
	h := NewTimetableHandler(mock)

	req := httptest.NewRequest("GET", "/timetable/img_0", nil)
	w := httptest.NewRecorder()
	newRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if mock.gotID != "img_0" {
		t.Errorf("expected id img_0, got %s", mock.gotID)
	}

	var entry map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &entry); err != nil {
		t.Fatalf("响应不是合法 JSON: %v", err)
	}
	if entry["title"] != "Spring" {
		t.Errorf("expected title Spring, got %v", entry["title"])
	}
	if _, ok := entry["id"]; ok {
		t.Error("单个课表响应直接输出 ScheduleEntry，不应包含 id")
	}
}

func TestTimetableHandler_GetTimetable_NotFound(t *testing.T) {
	mock := &mockTimetableService{getErr: service.ErrTimetableNotFound}
	h := NewTimetableHandler(mock)

	req := httptest.NewRequest("GET", "/timetable/nonexistent", nil)
	w := httptest.NewRecorder()
	newRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != 20006 {
		t.Errorf("expected code 20006, got %d", resp.Code)
	}
}

func TestTimetableHandler_ListTimetables(t *testing.T) {
	mock := &mockTimetableService{listResult: &dto.TimetableListResponse{
		Timetables: []dto.TimetableSummary{{ID: "img_0", Title: "Spring"}, {ID: "excel_1", Title: "Untitled"}},
	}}
	h := NewTimetableHandler(mock)

	req := httptest.NewRequest("GET", "/timetables", nil)
	w := httptest.NewRecorder()
	newRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp dto.TimetableListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("响应不是合法 JSON: %v", err)
	}
	if len(resp.Timetables) != 2 || resp.Timetables[1].ID != "excel_1" || resp.Timetables[1].Title != "Untitled" {
		t.Errorf("列表内容不正确: %+v", resp.Timetables)
	}
}

// ═══════════════════════════════════════════════════════════
// ExportHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAttachmentDisposition(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"Week 1_img_0.xlsx", "attachment; filename*=UTF-8''Week%201_img_0.xlsx"},
		{"A+B: x@y=z&$_img_1.ics", "attachment; filename*=UTF-8''A%2BB%3A%20x%40y%3Dz%26%24_img_1.ics"},
		{"课表_excel_2.xlsx", "attachment; filename*=UTF-8''%E8%AF%BE%E8%A1%A8_excel_2.xlsx"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := attachmentDisposition(tt.filename); got != tt.want {
				t.Errorf("attachmentDisposition(%q) = %q, 期望 %q", tt.filename, got, tt.want)
			}
		})
	}
}
