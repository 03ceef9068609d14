package snapshot

import (
	"errors"
	"fmt"

	"arena/pkg/core"
)

var (
	ErrDesync              = errors.New("snapshot: 增量参考失步")
	ErrDeltaInvalid        = fmt.Errorf("%w: 参考帧无效", ErrDesync)
	ErrDeltaTooOld         = fmt.Errorf("%w: 参考帧已被覆盖", ErrDesync)
	ErrDeltaEntitiesTooOld = fmt.Errorf("%w: 参考帧实体已超出环形缓冲安全窗口", ErrDesync)
)

// Frame 一个客户端在某一服务器帧看到的世界
// 实体不属于帧本身，通过 EntityState/NumEntities 引用环形缓冲
type Frame struct {
	ServerFrame   int32
	DeltaFrame    int32 // <= 0 表示完整帧
	Valid         bool
	SuppressCount uint8
	AreaBits      []byte
	PS            core.PlayerState

	EntityState int // 环形缓冲起始位置
	NumEntities int
}

// History 最近 UpdateBackup 帧，按 ServerFrame & UpdateMask 定位
type History struct {
	frames [core.UpdateBackup]Frame
}

// Slot 返回帧号对应的槽位（可能存放的是更早的帧）
func (h *History) Slot(serverFrame int32) *Frame {
	return &h.frames[int(serverFrame)&core.UpdateMask]
}

// Store 保存帧
func (h *History) Store(f *Frame) {
	*h.Slot(f.ServerFrame) = *f
}

// Lookup 返回有效且帧号匹配的帧
func (h *History) Lookup(serverFrame int32) (*Frame, bool) {
	f := h.Slot(serverFrame)
	if !f.Valid || f.ServerFrame != serverFrame {
		return nil, false
	}
	return f, true
}

// Reset 使所有帧失效
func (h *History) Reset() {
	for i := range h.frames {
		h.frames[i] = Frame{}
	}
}

// SafeWindow 参考帧到环形缓冲头部允许的最大距离
const SafeWindow = core.EntityStateBackup - core.MaxPacketEntities

// ResolveDelta 查找增量参考帧，deltaFrame <= 0 时返回 nil 表示完整帧
func ResolveDelta(h *History, r *Ring, deltaFrame int32) (*Frame, error) {
	if deltaFrame <= 0 {
		return nil, nil
	}
	old := h.Slot(deltaFrame)
	if !old.Valid {
		return nil, fmt.Errorf("%w (delta %d)", ErrDeltaInvalid, deltaFrame)
	}
	if old.ServerFrame != deltaFrame {
		return nil, fmt.Errorf("%w (delta %d, slot %d)", ErrDeltaTooOld, deltaFrame, old.ServerFrame)
	}
	if r.Backlog(old) > SafeWindow {
		return nil, fmt.Errorf("%w (delta %d, backlog %d)", ErrDeltaEntitiesTooOld, deltaFrame, r.Backlog(old))
	}
	return old, nil
}

// Baselines 每个实体编号一份基线，关卡加载时捕获
type Baselines struct {
	states [core.MaxEntities]core.EntityState
}

// Get 返回编号对应的基线，未设置时为零状态
func (b *Baselines) Get(number uint16) *core.EntityState {
	return &b.states[int(number)%core.MaxEntities]
}

// Set 保存基线，OldOrigin 取自 Origin
func (b *Baselines) Set(s *core.EntityState) {
	if !core.ValidNumber(int(s.Number)) {
		return
	}
	base := *s
	base.OldOrigin = base.Origin
	base.Event = core.EventNone
	b.states[s.Number] = base
}

// Each 遍历所有已设置的基线
func (b *Baselines) Each(fn func(s *core.EntityState)) {
	for i := 1; i < core.MaxEntities; i++ {
		if b.states[i].Number != 0 {
			fn(&b.states[i])
		}
	}
}

// Reset 清空所有基线
func (b *Baselines) Reset() {
	for i := range b.states {
		b.states[i] = core.EntityState{}
	}
}
