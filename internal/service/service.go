package service

import (
	"go.uber.org/zap"

	"timetable-ai/backend/config"
	"timetable-ai/backend/internal/repository"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Timetable TimetableService
	Export    ExportService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	llmClient LLMClient,
	logger *zap.Logger,
) *Service {
	return &Service{
		Timetable: NewTimetableService(repo, llmClient, logger),
		Export:    NewExportService(&cfg.Export, repo, logger),
	}
}
