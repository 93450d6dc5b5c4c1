package dto

import "timetable-ai/backend/internal/model"

// ── 上传 ──

// UploadResponse 上传解析成功响应
type UploadResponse struct {
	ID   string               `json:"id"`
	Data *model.ScheduleEntry `json:"data"`
}

// ── 查询 ──

// TimetableSummary 课表列表项
type TimetableSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// TimetableListResponse 课表列表响应
type TimetableListResponse struct {
	Timetables []TimetableSummary `json:"timetables"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status string `json:"status"`
}
