package snapshot

import "arena/pkg/core"

// Ring 实体状态环形缓冲，按 FIFO 覆盖，下标通过掩码取模
// 每个连接（服务器端）或每个客户端解析器各自持有一份
type Ring struct {
	states [core.EntityStateBackup]core.EntityState
	head   int
}

// Head 返回下一个写入位置（单调递增，不取模）
func (r *Ring) Head() int { return r.head }

// Append 写入一个状态
func (r *Ring) Append(s *core.EntityState) {
	r.states[r.head&core.EntityStateMask] = *s
	r.head++
}

// At 返回第 i 个状态
func (r *Ring) At(i int) *core.EntityState {
	return &r.states[i&core.EntityStateMask]
}

// Entities 复制帧引用的实体状态
func (r *Ring) Entities(f *Frame) []core.EntityState {
	if f == nil || f.NumEntities == 0 {
		return nil
	}
	out := make([]core.EntityState, f.NumEntities)
	for i := range out {
		out[i] = *r.At(f.EntityState + i)
	}
	return out
}

// Backlog 返回自帧写入以来环形缓冲推进的数量
func (r *Ring) Backlog(f *Frame) int {
	return r.head - f.EntityState
}

// Reset 清空缓冲（新关卡或重新连接）
func (r *Ring) Reset() {
	r.head = 0
}
