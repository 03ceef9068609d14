package physics

import (
	"arena/pkg/core"

	"github.com/go-gl/mathgl/mgl32"
)

// 玩家移动参数
const (
	PlayerSpeed = 300.0
	AccelAir    = 2.0
	JumpSpeed   = 270.0
	FallSpeed   = 400.0 // 超过此落地速度触发 EventClientFall
)

// ClientMove 按移动指令推进客户端实体一帧
// 简化的玩家移动：摩擦、加速、重力后复用飞行裁剪移动，不做台阶检测
func (s *Stepper) ClientMove(ent *Entity, cmd *core.UserCmd) error {
	ps := ent.Client
	if ps == nil {
		return nil
	}

	for i := 0; i < 3; i++ {
		ps.PM.ViewAngles[i] = cmd.Angles[i]
		ps.Angles[i] = core.UnpackAngle(cmd.Angles[i] + ps.PM.DeltaAngles[i])
	}
	ent.State.Angles = mgl32.Vec3{0, ps.Angles[core.Yaw], 0}
	ps.PM.Flags &^= core.PmfPushed

	switch ps.PM.Type {
	case core.PmDead, core.PmFreeze:
		ent.Velocity = mgl32.Vec3{}
		return nil
	case core.PmSpectator:
		forward, right, up := core.AngleVectors(ps.Angles)
		ent.Velocity = forward.Mul(float32(cmd.Forward)).
			Add(right.Mul(float32(cmd.Right))).
			Add(up.Mul(float32(cmd.Up)))
		s.noClip(ent)
		s.syncPlayer(ent)
		return nil
	}

	wasGrounded := ent.GroundEntity != nil
	s.checkGround(ent)

	forward, right, _ := core.AngleVectors(mgl32.Vec3{0, ps.Angles[core.Yaw], 0})
	wish := forward.Mul(float32(cmd.Forward)).Add(right.Mul(float32(cmd.Right)))
	wish[2] = 0
	wishSpeed := wish.Len()
	if wishSpeed > PlayerSpeed {
		wishSpeed = PlayerSpeed
	}

	s.friction(ent)
	if wishSpeed > 0 {
		accel := float32(AccelAir)
		if ent.GroundEntity != nil {
			accel = AccelGround
		}
		s.Accelerate(ent, wish.Normalize(), wishSpeed, accel)
	}

	if cmd.Up > 0 {
		if ent.GroundEntity != nil && ps.PM.Flags&core.PmfJumpHeld == 0 {
			ent.Velocity[2] = JumpSpeed
			ent.GroundEntity = nil
			ps.PM.Flags |= core.PmfJumpHeld
			ent.State.Event = core.EventClientJump
		}
	} else {
		ps.PM.Flags &^= core.PmfJumpHeld
	}

	fallSpeed := -ent.Velocity[2]
	s.gravity(ent)
	s.flyMove(ent, BounceFly)
	if !ent.InUse {
		return nil
	}

	s.checkGround(ent)
	s.checkWater(ent)

	if !wasGrounded && ent.GroundEntity != nil && ent.State.Event == core.EventNone {
		if fallSpeed > FallSpeed {
			ent.State.Event = core.EventClientFall
		} else {
			ent.State.Event = core.EventClientLand
		}
	}

	s.syncPlayer(ent)
	return s.TouchOccupy(ent)
}

func (s *Stepper) syncPlayer(ent *Entity) {
	ps := ent.Client
	ps.PM.Origin = ent.State.Origin
	ps.PM.Velocity = ent.Velocity
	ps.PM.Gravity = int16(s.Gravity)
	if ent.GroundEntity != nil {
		ps.PM.Flags |= core.PmfOnGround
	} else {
		ps.PM.Flags &^= core.PmfOnGround
	}
}
