package physics

import (
	"arena/pkg/core"

	"github.com/go-gl/mathgl/mgl32"
)

// pushRecord 被推动实体移动前的状态，用于整体回滚
type pushRecord struct {
	ent      *Entity
	origin   mgl32.Vec3
	angles   mgl32.Vec3
	deltaYaw int16
}

func (s *Stepper) pushImpact(ent *Entity) error {
	if len(s.pushes) == core.MaxEntities {
		return ErrPushOverflow
	}

	rec := pushRecord{ent: ent, origin: ent.State.Origin, angles: ent.State.Angles}
	if ent.Client != nil {
		rec.deltaYaw = ent.Client.PM.DeltaAngles[core.Yaw]
		ent.Client.PM.Flags |= core.PmfPushed
	}
	s.pushes = append(s.pushes, rec)
	return nil
}

func (s *Stepper) pushRevert(rec *pushRecord) {
	rec.ent.State.Origin = rec.origin
	rec.ent.State.Angles = rec.angles
	if rec.ent.Client != nil {
		rec.ent.Client.PM.DeltaAngles[core.Yaw] = rec.deltaYaw
		rec.ent.Client.PM.Flags &^= core.PmfPushed
	}
	s.World.LinkEntity(rec.ent)
}

func (s *Stepper) popRevert() {
	n := len(s.pushes) - 1
	s.pushRevert(&s.pushes[n])
	s.pushes = s.pushes[:n]
}

// pushRotate 站在推动者上的实体随之旋转，客户端通过 delta 角实现
func (s *Stepper) pushRotate(self, ent *Entity, yaw float32) {
	if ent.GroundEntity != self {
		return
	}
	if ent.Client != nil {
		yaw += core.UnpackAngle(ent.Client.PM.DeltaAngles[core.Yaw])
		ent.Client.PM.DeltaAngles[core.Yaw] = core.PackAngle(yaw)
	} else {
		ent.State.Angles[core.Yaw] += yaw
	}
}

// pushMove 移动推动者并携带乘客，受阻时回滚全部记录并返回阻挡者
func (s *Stepper) pushMove(self *Entity, move, amove mgl32.Vec3) (*Entity, error) {
	if err := s.pushImpact(self); err != nil {
		return nil, err
	}

	self.State.Origin = self.State.Origin.Add(move)
	self.State.Angles = self.State.Angles.Add(amove)
	s.World.LinkEntity(self)

	forward, right, up := core.AngleVectors(amove.Mul(-1))

	ents, err := s.World.BoxEntities(self.AbsMins, self.AbsMaxs, BoxAll)
	if err != nil {
		return nil, err
	}

	for _, ent := range ents {
		if ent == self || ent.State.Solid == core.SolidBSP || ent.MoveType < MoveWalk {
			continue
		}

		if s.GoodPosition(ent) && ent.GroundEntity != self {
			continue
		}

		if self.MoveType == MovePush || ent.GroundEntity == self {
			if err := s.pushImpact(ent); err != nil {
				return nil, err
			}

			ent.State.Origin = ent.State.Origin.Add(move)

			translate := ent.State.Origin.Sub(self.State.Origin)
			rotate := mgl32.Vec3{
				translate.Dot(forward),
				-translate.Dot(right),
				translate.Dot(up),
			}
			ent.State.Origin = ent.State.Origin.Add(rotate.Sub(translate))

			if s.GoodPosition(ent) {
				s.pushRotate(self, ent, amove[core.Yaw])
				continue
			}

			// 乘客被世界挤下推动者是允许的，但不再旋转
			if ent.GroundEntity == self {
				s.popRevert()
				if s.GoodPosition(ent) {
					continue
				}
			}
		}

		if b, ok := self.Behavior.(Blocker); ok {
			b.Blocked(s, self, ent)
			if !ent.InUse || ent.Dead {
				continue
			}
		}

		s.debugf("%s blocked by %s", self, ent)

		for len(s.pushes) > 0 {
			s.popRevert()
		}
		return ent, nil
	}

	for i := len(s.pushes) - 1; i >= 0; i-- {
		ent := s.pushes[i].ent
		if !ent.InUse {
			continue
		}
		s.World.LinkEntity(ent)
		s.CategorizePosition(ent)
		if err := s.TouchOccupy(ent); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// push 由队伍主实体发起整队移动，任一成员受阻则整队下一帧重试
func (s *Stepper) push(ent *Entity) error {
	if ent.Flags&FlagTeamSlave != 0 {
		return nil
	}

	s.pushes = s.pushes[:0]

	parts := make([]*Entity, 0, len(ent.Team)+1)
	parts = append(parts, ent)
	parts = append(parts, ent.Team...)

	sec := s.FrameSeconds()
	var obstacle *Entity
	for _, part := range parts {
		if part.Velocity == (mgl32.Vec3{}) && part.AVelocity == (mgl32.Vec3{}) {
			continue
		}
		var err error
		obstacle, err = s.pushMove(part, part.Velocity.Mul(sec), part.AVelocity.Mul(sec))
		if err != nil {
			return err
		}
		if obstacle != nil {
			break
		}
	}

	if obstacle != nil {
		for _, part := range parts {
			if part.NextThink != 0 {
				part.NextThink += s.FrameMillis
			}
		}
		return nil
	}

	for _, part := range parts {
		s.runThink(part)
	}
	return nil
}
