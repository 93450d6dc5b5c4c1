package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"timetable-ai/backend/internal/model"
	apperrors "timetable-ai/backend/pkg/errors"
)

// TimetableRepository 课表存储接口
//
// 仅支持插入与读取：已入库课表不可修改、不可删除。
type TimetableRepository interface {
	// Insert 写入课表并返回生成的 ID（"{prefix}_{sequence}"）
	Insert(ctx context.Context, entry model.ScheduleEntry, source model.SourceKind) (string, error)
	// Get 按 ID 读取课表，不存在时返回 apperrors.ErrNotFound
	Get(ctx context.Context, id string) (*model.StoredTimetable, error)
	// List 按插入顺序返回全部课表
	List(ctx context.Context) ([]model.StoredTimetable, error)
	// Count 当前存储数量
	Count(ctx context.Context) int
}

type memoryTimetableRepo struct {
	mu       sync.RWMutex
	items    map[string]*model.StoredTimetable
	order    []string // 插入顺序
	seq      uint64   // 全局序号，与 map 大小解耦，两种前缀共享
	capacity int      // 0 表示不限
	now      func() time.Time
}

// NewMemoryTimetableRepo 创建内存课表存储
// capacity > 0 时超出容量按插入顺序淘汰最早的记录
func NewMemoryTimetableRepo(capacity int) TimetableRepository {
	if capacity < 0 {
		capacity = 0
	}
	return &memoryTimetableRepo{
		items:    make(map[string]*model.StoredTimetable),
		capacity: capacity,
		now:      time.Now,
	}
}

func (r *memoryTimetableRepo) Insert(_ context.Context, entry model.ScheduleEntry, source model.SourceKind) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := fmt.Sprintf("%s_%d", source.IDPrefix(), r.seq)
	r.seq++

	r.items[id] = &model.StoredTimetable{
		ID:        id,
		Source:    source,
		Entry:     entry.Clone(),
		CreatedAt: r.now(),
	}
	r.order = append(r.order, id)

	if r.capacity > 0 {
		for len(r.order) > r.capacity {
			oldest := r.order[0]
			r.order = r.order[1:]
			delete(r.items, oldest)
		}
	}

	return id, nil
}

func (r *memoryTimetableRepo) Get(_ context.Context, id string) (*model.StoredTimetable, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	out := *item
	out.Entry = item.Entry.Clone()
	return &out, nil
}

func (r *memoryTimetableRepo) List(_ context.Context) ([]model.StoredTimetable, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]model.StoredTimetable, 0, len(r.order))
	for _, id := range r.order {
		item := r.items[id]
		out := *item
		out.Entry = item.Entry.Clone()
		result = append(result, out)
	}
	return result, nil
}

func (r *memoryTimetableRepo) Count(_ context.Context) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
