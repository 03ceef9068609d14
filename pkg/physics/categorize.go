package physics

import (
	"arena/pkg/core"

	"github.com/go-gl/mathgl/mgl32"
)

// CategorizePosition 更新地面与水体状态，客户端实体由玩家移动自行处理
func (s *Stepper) CategorizePosition(ent *Entity) {
	if ent.MoveType == MoveWalk {
		return
	}

	if ent.MoveType == MoveBounce {
		s.checkGround(ent)
	} else {
		ent.GroundEntity = nil
	}
	s.checkWater(ent)
}

// checkGround 向下探测 GroundDist，平面足够平坦时才算站立
func (s *Stepper) checkGround(ent *Entity) {
	pos := ent.State.Origin
	pos[2] -= GroundDist

	tr := s.World.Trace(ent.State.Origin, pos, ent.Mins, ent.Maxs, ent, MaskSolid)
	if tr.Ent != nil && tr.Plane.Normal[2] >= StepNormal {
		if ent.GroundEntity == nil {
			s.debugf("%s 落在 %s 上", ent, tr.Ent)
		}
		ent.GroundEntity = tr.Ent
		ent.GroundPlane = tr.Plane
		ent.GroundSurface = tr.Surface
		ent.GroundContents = tr.Contents
	} else {
		if ent.GroundEntity != nil {
			s.debugf("%s 离开地面 %s", ent, ent.GroundEntity)
		}
		ent.GroundEntity = nil
	}
}

// checkWater 水位只有 0/1 两级，进出水时播放音效
func (s *Stepper) checkWater(ent *Entity) {
	oldLevel := ent.WaterLevel

	var pos, mins, maxs mgl32.Vec3
	if ent.State.Solid == core.SolidBSP {
		pos = core.LerpVec3(ent.AbsMins, ent.AbsMaxs, 0.5)
		mins = pos.Sub(ent.AbsMins)
		maxs = ent.AbsMaxs.Sub(pos)
		mins = mgl32.Vec3{-mins[0], -mins[1], -mins[2]}
	} else {
		pos, mins, maxs = ent.State.Origin, ent.Mins, ent.Maxs
	}

	tr := s.World.Trace(pos, pos, mins, maxs, ent, MaskLiquid)
	ent.WaterType = tr.Contents
	if ent.WaterType != 0 {
		ent.WaterLevel = 1
	} else {
		ent.WaterLevel = 0
	}

	switch {
	case oldLevel == 0 && ent.WaterLevel != 0:
		s.sound(pos, ent, SoundWaterIn)
		if ent.MoveType == MoveBounce {
			ent.Velocity = ent.Velocity.Mul(0.66)
		}
	case oldLevel != 0 && ent.WaterLevel == 0:
		s.sound(pos, ent, SoundWaterOut)
	}
}

func (s *Stepper) sound(pos mgl32.Vec3, ent *Entity, name string) {
	if s.Sounds != nil {
		s.Sounds.PositionedSound(pos, ent, name, core.AttenIdle)
	}
}
