package repository

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Timetable TimetableRepository
}

// NewRepository 创建 Repository 聚合
// 课表仅存于进程内存，进程重启后丢失
func NewRepository(capacity int) *Repository {
	return &Repository{
		Timetable: NewMemoryTimetableRepo(capacity),
	}
}
