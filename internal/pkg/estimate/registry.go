package estimate

import (
	"sync"
	"sync/atomic"
	"time"
)

// Scope 决定哪些请求共享估算值
type Scope string

const (
	// ScopeUser 按调用者区分
	ScopeUser Scope = "user"
	// ScopeGlobal 所有调用者共享一组估算值
	ScopeGlobal Scope = "global"

	globalKey = "*"
)

// ParseScope 未知值按 ScopeUser 处理
func ParseScope(s string) Scope {
	if Scope(s) == ScopeGlobal {
		return ScopeGlobal
	}
	return ScopeUser
}

// Key 调用者对应的登记键
func (s Scope) Key(identity string) string {
	if s == ScopeGlobal {
		return globalKey
	}
	return identity
}

// Entry 一次写入的估算值
type Entry struct {
	Value     float64
	Version   uint64
	UpdatedAt time.Time
}

// Snapshot 某个键下的一组估算值，缺失或过期的项为零值且 Present 为 false
type Snapshot struct {
	Generation        Entry
	Usage             Entry
	GenerationPresent bool
	UsagePresent      bool
}

type slot struct {
	mu         sync.Mutex
	dead       bool
	generation *Entry
	usage      *Entry
}

// Registry 按键保存最新的发电和用电估算
// 每个键一把锁，后写覆盖先写，版本号全局递增
type Registry struct {
	mu      sync.Mutex
	slots   map[string]*slot
	ttl     time.Duration
	version atomic.Uint64
	now     func() time.Time
}

// NewRegistry ttl 为 0 时估算值不过期
func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		slots: make(map[string]*slot),
		ttl:   ttl,
		now:   time.Now,
	}
}

// SetGeneration 覆盖发电估算
func (r *Registry) SetGeneration(key string, value float64) Entry {
	var e Entry
	r.withSlot(key, func(s *slot) {
		e = r.newEntry(value)
		s.generation = &e
	})
	return e
}

// SetUsage 覆盖用电估算
func (r *Registry) SetUsage(key string, value float64) Entry {
	var e Entry
	r.withSlot(key, func(s *slot) {
		e = r.newEntry(value)
		s.usage = &e
	})
	return e
}

// Snapshot 读取当前估算值
func (r *Registry) Snapshot(key string) Snapshot {
	var snap Snapshot
	r.withSlot(key, func(s *slot) {
		snap = r.snapshotLocked(s)
	})
	return snap
}

// Decide 持有键锁执行 fn，fn 返回前该键的估算值不会变化
func (r *Registry) Decide(key string, fn func(Snapshot) error) error {
	var err error
	r.withSlot(key, func(s *slot) {
		err = fn(r.snapshotLocked(s))
	})
	return err
}

// Prune 删除估算值全部过期的键，返回删除数量
func (r *Registry) Prune() int {
	if r.ttl <= 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for key, s := range r.slots {
		s.mu.Lock()
		if !r.fresh(s.generation) && !r.fresh(s.usage) {
			s.dead = true
			delete(r.slots, key)
			removed++
		}
		s.mu.Unlock()
	}
	return removed
}

// Len 当前登记的键数量
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slots)
}

func (r *Registry) withSlot(key string, fn func(*slot)) {
	for {
		r.mu.Lock()
		s, ok := r.slots[key]
		if !ok {
			s = &slot{}
			r.slots[key] = s
		}
		r.mu.Unlock()

		s.mu.Lock()
		if s.dead {
			// 查找和加锁之间被清理
			s.mu.Unlock()
			continue
		}
		fn(s)
		s.mu.Unlock()
		return
	}
}

func (r *Registry) newEntry(value float64) Entry {
	return Entry{
		Value:     value,
		Version:   r.version.Add(1),
		UpdatedAt: r.now(),
	}
}

func (r *Registry) fresh(e *Entry) bool {
	if e == nil {
		return false
	}
	if r.ttl <= 0 {
		return true
	}
	return r.now().Sub(e.UpdatedAt) <= r.ttl
}

func (r *Registry) snapshotLocked(s *slot) Snapshot {
	var snap Snapshot
	if r.fresh(s.generation) {
		snap.Generation = *s.generation
		snap.GenerationPresent = true
	}
	if r.fresh(s.usage) {
		snap.Usage = *s.usage
		snap.UsagePresent = true
	}
	return snap
}
