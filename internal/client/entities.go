package client

import (
	"arena/pkg/core"

	"github.com/go-gl/mathgl/mgl32"
)

// Entity 客户端侧的实体，保存最近两次更新用于插值
type Entity struct {
	Current     core.EntityState
	Prev        core.EntityState
	ServerFrame int32 // 最近一次出现在的服务器帧
	Baseline    core.EntityState
}

// update 用新帧中的状态更新实体
// 瞬移或上一帧未出现时重置插值，否则前移一格
func (e *Entity) update(to *core.EntityState, serverFrame int32) {
	teleport := to.Event == core.EventClientTeleport

	if teleport || e.ServerFrame <= 0 || e.ServerFrame != serverFrame-1 {
		e.Prev = *to
		if !teleport && to.OldOrigin != (mgl32.Vec3{}) {
			e.Prev.Origin = to.OldOrigin
		}
	} else {
		e.Prev = e.Current
	}

	e.Current = *to
	e.ServerFrame = serverFrame
}

// Lerp 返回 frac 处的插值位置，frac 取 [0,1]
func (e *Entity) Lerp(frac float32) mgl32.Vec3 {
	return core.LerpVec3(e.Prev.Origin, e.Current.Origin, frac)
}

// LerpAngles 返回 frac 处的插值朝向
func (e *Entity) LerpAngles(frac float32) mgl32.Vec3 {
	return core.LerpAngles(e.Prev.Angles, e.Current.Angles, frac)
}
